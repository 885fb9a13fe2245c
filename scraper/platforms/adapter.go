// Package platforms enriches listing records with the details published on
// the crowdfunding platform each record links to.
package platforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const scrollPause = time.Second

// Adapter extracts platform details for one listing record.
type Adapter interface {
	Name() string
	Enrich(ctx context.Context, rec *models.ListingRecord) Result
}

// Result is what an adapter found. Fields may be partial when Outcome is
// OutcomeFailed; Err is set only in that case.
type Result struct {
	Fields  models.Fields
	Outcome models.Outcome
	Err     error
}

func matched(f models.Fields) Result {
	return Result{Fields: f, Outcome: models.OutcomeMatched}
}

func noMatch(f models.Fields) Result {
	return Result{Fields: f, Outcome: models.OutcomeNoMatch}
}

func failed(f models.Fields, err error) Result {
	return Result{Fields: f, Outcome: models.OutcomeFailed, Err: err}
}

func skipped() Result {
	return Result{Fields: models.Fields{}, Outcome: models.OutcomeSkipped}
}

// base carries the browser plumbing every adapter shares.
type base struct {
	session     browser.Session
	settle      time.Duration
	waitTimeout time.Duration
	scrollTimes int
	logger      *utils.Logger
}

func newBase(cfg *config.Config, session browser.Session, logger *utils.Logger, name string) base {
	return base{
		session:     session,
		settle:      cfg.SettleDelay,
		waitTimeout: cfg.NavTimeout,
		scrollTimes: cfg.ScrollTimes,
		logger:      logger.With(name),
	}
}

func (b *base) navigate(ctx context.Context, url string) error {
	if err := b.session.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// snapshot waits for ready (bounded, absence is tolerated), lets the page
// settle, optionally scrolls to trigger lazy loading, then parses the DOM.
func (b *base) snapshot(ctx context.Context, ready string, scroll bool) (*goquery.Document, error) {
	if err := b.session.WaitReady(ctx, ready, b.waitTimeout); err != nil {
		b.logger.Debug("%s not found before timeout: %v", ready, err)
	}
	if err := sleepCtx(ctx, b.settle); err != nil {
		return nil, err
	}
	if scroll && b.scrollTimes > 0 {
		if err := b.session.Scroll(ctx, b.scrollTimes, scrollPause); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
	}
	markup, err := b.session.Markup(ctx)
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return doc, nil
}

// ensureListing makes sure the current page is the platform's project list:
// when the loaded URL lacks marker, reveal is tried once and then fallback is
// loaded directly.
func (b *base) ensureListing(ctx context.Context, marker string, reveal func(context.Context) error, fallback string) error {
	current, err := b.session.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("current url: %w", err)
	}
	if strings.Contains(current, marker) {
		return nil
	}
	if err = reveal(ctx); err == nil {
		return nil
	}
	b.logger.Debug("listing link unavailable on %s: %v", current, err)
	return b.navigate(ctx, fallback)
}

// matchCard returns the first card, in document order, whose title contains
// the target name or is contained by it. A card that encloses other cards is
// a wrapper and is skipped; otherwise its first title is used.
func matchCard(cards *goquery.Selection, titleSelector, target string) *goquery.Selection {
	target = utils.NormaliseText(target)
	if target == "" {
		return nil
	}
	var found *goquery.Selection
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if card.FindSelection(cards).Length() > 0 {
			return true
		}
		title := utils.NormaliseText(card.Find(titleSelector).First().Text())
		if title == "" {
			return true
		}
		if strings.Contains(title, target) || strings.Contains(target, title) {
			found = card
			return false
		}
		return true
	})
	return found
}

// findCards returns the matches of the first selector that matches anything.
func findCards(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if cards := doc.Find(sel); cards.Length() > 0 {
			return cards
		}
	}
	return doc.Find(selectors[len(selectors)-1])
}

// labelRule maps a label substring to a field. Rules are tried in order and
// the first whose label occurs in the text wins.
type labelRule struct {
	label string
	field models.Field
	clean func(string) string
}

func applyLabel(f models.Fields, rules []labelRule, label, value string) {
	for _, r := range rules {
		if !strings.Contains(label, r.label) {
			continue
		}
		if r.clean != nil {
			value = r.clean(value)
		}
		f.Set(r.field, value)
		return
	}
}

func text(s *goquery.Selection) string {
	return utils.NormaliseText(s.Text())
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

// containingText returns the elements of sel whose text contains needle.
func containingText(sel *goquery.Selection, needle string) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), needle)
	})
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
