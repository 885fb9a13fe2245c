package ifb

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const (
	// TableID is the element id of the listing grid.
	TableID = "ContentPlaceHolder1_grdCrowdFundingData"

	minCells = 10

	// DescriptionUnavailable is stored when no description could be found.
	DescriptionUnavailable = "توضیحات در دسترس نیست"
	// DescriptionFailed is stored when revealing the description failed.
	DescriptionFailed = "خطا در دریافت توضیحات"

	modalPollInterval = 200 * time.Millisecond
)

var (
	showDescRegexp  = regexp.MustCompile(`showDesc\('(\d+)'\)`)
	goToDocsRegexp  = regexp.MustCompile(`GoToDocuments\('(\d+)'\)`)
	tableSelector   = "table#" + TableID
	messageSelector = "small#Message, div#Message"
	// #Message keeps the previous row's text until showDesc refills it, so it
	// is emptied first and polled until the new text arrives.
	showDescScript = `(function() {
		var el = document.getElementById('Message');
		if (el) el.textContent = '';
		showDesc('%s');
		return true;
	})()`
	readMessageScript = `(function() {
		var el = document.getElementById('Message');
		return el ? (el.innerText || el.textContent || '') : '';
	})()`
	dismissModalScript = `(function() {
		var msg = document.getElementById('Message');
		if (msg) msg.textContent = '';
		var modal = document.getElementById('FileForm');
		if (modal) {
			modal.style.display = 'none';
			modal.classList.remove('in');
		}
		var backdrops = document.getElementsByClassName('modal-backdrop');
		while (backdrops.length > 0) backdrops[0].remove();
		document.body.classList.remove('modal-open');
		return true;
	})()`
)

// Extractor turns one listing page into ListingRecords. Revealing a row's
// description drives the shared browser tab, so Extract must run while the
// listing page is the loaded document.
type Extractor struct {
	session   browser.Session
	baseURL   string
	modalWait time.Duration
	logger    *utils.Logger
	now       func() time.Time
}

// NewExtractor creates an Extractor bound to the shared session.
func NewExtractor(cfg *config.Config, session browser.Session, logger *utils.Logger) *Extractor {
	return &Extractor{
		session:   session,
		baseURL:   cfg.BaseURL,
		modalWait: cfg.SettleDelay,
		logger:    logger.With("extractor"),
		now:       time.Now,
	}
}

// Extract parses the listing grid in markup. Malformed rows are logged and
// skipped; a missing grid yields no records.
func (e *Extractor) Extract(ctx context.Context, markup string) []*models.ListingRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Error("parse listing markup: %v", err)
		return nil
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		e.logger.Error("listing table #%s not found on current page", TableID)
		return nil
	}

	var records []*models.ListingRecord
	ownRows(table).Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		if row.Find("table").Length() > 0 {
			e.logger.Debug("skipping pager row %d", i)
			return
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() < minCells {
			e.logger.Error("row %d has %d cells, want at least %d; skipped", i, cells.Length(), minCells)
			return
		}
		rec, err := e.parseRow(ctx, cells)
		if err != nil {
			e.logger.Error("row %d: %v", i, err)
			return
		}
		e.logger.Info("row %s: %s (id %s)", rec.RowNumber, rec.ProjectName, orDash(rec.IFBProjectID))
		records = append(records, rec)
	})
	return records
}

// ownRows returns the rows of table, excluding rows of nested tables.
func ownRows(table *goquery.Selection) *goquery.Selection {
	node := table.Get(0)
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").Get(0) == node
	})
}

func (e *Extractor) parseRow(ctx context.Context, cells *goquery.Selection) (*models.ListingRecord, error) {
	cell := func(i int) *goquery.Selection { return cells.Eq(i) }
	text := func(i int) string { return strings.TrimSpace(cell(i).Text()) }

	rec := &models.ListingRecord{
		RowNumber:   text(0),
		ProjectName: text(1),
		CompanyName: text(2),
		NationalID:  text(3),
		Status:      text(5),
		StartDate:   text(6),
		EndDate:     text(7),
		Description: DescriptionUnavailable,
		ScrapedAt:   e.now(),
	}
	if href, ok := cell(4).Find("a").First().Attr("href"); ok {
		rec.PlatformURL = strings.TrimSpace(href)
	}

	if onclick, ok := cell(8).Find("a").First().Attr("onclick"); ok {
		if m := showDescRegexp.FindStringSubmatch(onclick); m != nil {
			rec.IFBProjectID = m[1]
			rec.Description = e.revealDescription(ctx, m[1])
		}
	}

	if rec.IFBProjectID == "" {
		if onclick, ok := cell(9).Find("i.icon-folder").First().Attr("onclick"); ok {
			if m := goToDocsRegexp.FindStringSubmatch(onclick); m != nil {
				rec.IFBProjectID = m[1]
			}
		}
	}

	if rec.IFBProjectID != "" {
		docsURL, err := documentsURL(e.baseURL, rec.IFBProjectID)
		if err != nil {
			return nil, err
		}
		rec.DocumentsURL = docsURL
	}
	return rec, nil
}

// revealDescription opens the description modal for id, reads its text and
// closes it again so the next row starts from a clean page.
func (e *Extractor) revealDescription(ctx context.Context, id string) string {
	if err := e.session.Evaluate(ctx, fmt.Sprintf(showDescScript, id), nil); err != nil {
		e.logger.Error("show description %s: %v", id, err)
		return DescriptionFailed
	}

	if text := e.pollMessage(ctx); text != "" {
		e.dismissModal(ctx)
		return text
	}

	markup, err := e.session.Markup(ctx)
	if err != nil {
		e.logger.Error("read markup for description %s: %v", id, err)
		return DescriptionFailed
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Error("parse markup for description %s: %v", id, err)
		return DescriptionFailed
	}
	if msg := doc.Find(messageSelector).First(); msg.Length() > 0 {
		e.dismissModal(ctx)
		return utils.NormaliseText(msg.Text())
	}
	return DescriptionUnavailable
}

// pollMessage reads #Message until it has text or modalWait elapses.
func (e *Extractor) pollMessage(ctx context.Context) string {
	deadline := time.Now().Add(e.modalWait)
	for {
		var text string
		if err := e.session.Evaluate(ctx, readMessageScript, &text); err != nil {
			e.logger.Warn("read description modal: %v", err)
			return ""
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
		if !time.Now().Before(deadline) {
			return ""
		}
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(modalPollInterval):
		}
	}
}

func (e *Extractor) dismissModal(ctx context.Context) {
	if err := e.session.Evaluate(ctx, dismissModalScript, nil); err != nil {
		e.logger.Warn("dismiss description modal: %v", err)
	}
}

func documentsURL(base, id string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("doc_id", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
