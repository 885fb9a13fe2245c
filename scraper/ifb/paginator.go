package ifb

import (
	"context"
	"fmt"
	"time"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const postBackTarget = "ctl00$ContentPlaceHolder1$grdCrowdFundingData"

// The current grid is tagged before a postback so the wait below only
// succeeds once the replacement grid has been rendered.
var (
	markStaleScript = `(function() {
		var t = document.getElementById('` + TableID + `');
		if (t) t.setAttribute('data-stale', '1');
		return true;
	})()`
	freshTableSelector = tableSelector + ":not([data-stale])"
)

// Paginator walks the listing pages of one source in order, stopping at the
// first page that reaches past the target year.
type Paginator struct {
	session    browser.Session
	extractor  *Extractor
	baseURL    string
	targetYear int
	maxPages   int
	navTimeout time.Duration
	settle     time.Duration
	logger     *utils.Logger
}

// NewPaginator creates a Paginator; it owns the page cursor for the run.
func NewPaginator(cfg *config.Config, session browser.Session, extractor *Extractor, logger *utils.Logger) *Paginator {
	return &Paginator{
		session:    session,
		extractor:  extractor,
		baseURL:    cfg.BaseURL,
		targetYear: cfg.TargetYear,
		maxPages:   cfg.MaxPages,
		navTimeout: cfg.NavTimeout,
		settle:     cfg.SettleDelay,
		logger:     logger.With("ifb"),
	}
}

// Traverse returns every target-year record in feed order. Only a failure to
// load the first page is an error; later navigation failures end traversal
// with the records gathered so far.
func (p *Paginator) Traverse(ctx context.Context) ([]*models.ListingRecord, error) {
	p.logger.Info("Starting multi-page extraction from %s (target year %d)", p.baseURL, p.targetYear)

	if err := p.session.Navigate(ctx, p.baseURL); err != nil {
		return nil, fmt.Errorf("ifb: load listing: %w", err)
	}
	if err := p.session.WaitReady(ctx, tableSelector, p.navTimeout); err != nil {
		p.logger.Warn("listing table did not appear: %v", err)
	}
	if err := sleepCtx(ctx, p.settle); err != nil {
		return nil, err
	}

	var all []*models.ListingRecord
	for page := 1; ; page++ {
		p.logger.Info("Processing page %d ...", page)

		if page > 1 {
			if err := p.gotoPage(ctx, page); err != nil {
				p.logger.Info("Cannot move to page %d, stopping: %v", page, err)
				break
			}
		}

		markup, err := p.session.Markup(ctx)
		if err != nil {
			p.logger.Error("read page %d markup: %v", page, err)
			break
		}

		records := p.extractor.Extract(ctx, markup)
		if len(records) == 0 {
			p.logger.Info("Page %d has no projects, stopping", page)
			break
		}

		kept, boundary := p.filterYear(records)
		all = append(all, kept...)
		p.logger.Info("Page %d: %d projects, %d kept, %d in %d so far",
			page, len(records), len(kept), len(all), p.targetYear)

		if boundary {
			p.logger.Info("Page %d reaches past %d, stopping pagination", page, p.targetYear)
			break
		}
		if p.maxPages > 0 && page >= p.maxPages {
			p.logger.Info("Reached MAX_PAGES=%d, stopping pagination", p.maxPages)
			break
		}
	}

	p.logger.Info("Traversal complete: %d projects from %d", len(all), p.targetYear)
	return all, nil
}

// filterYear keeps target-year records and reports whether any record carried
// another year. Records without a readable year count toward neither.
func (p *Paginator) filterYear(records []*models.ListingRecord) ([]*models.ListingRecord, bool) {
	var kept []*models.ListingRecord
	boundary := false
	for _, rec := range records {
		year, ok := ClassifyYear(rec.StartDate)
		switch {
		case !ok:
			p.logger.Warn("Invalid start date %q for %s; skipped", rec.StartDate, rec.ProjectName)
		case year != p.targetYear:
			p.logger.Info("Project %s starts %s (not %d)", rec.ProjectName, rec.StartDate, p.targetYear)
			boundary = true
		default:
			kept = append(kept, rec)
		}
	}
	return kept, boundary
}

func (p *Paginator) gotoPage(ctx context.Context, page int) error {
	if err := p.session.Evaluate(ctx, markStaleScript, nil); err != nil {
		return fmt.Errorf("mark grid: %w", err)
	}
	script := fmt.Sprintf("__doPostBack('%s', 'Page$%d')", postBackTarget, page)
	if err := p.session.Evaluate(ctx, script, nil); err != nil {
		return fmt.Errorf("postback: %w", err)
	}
	if err := p.session.WaitReady(ctx, freshTableSelector, p.navTimeout); err != nil {
		return fmt.Errorf("wait for grid: %w", err)
	}
	return sleepCtx(ctx, p.settle)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
