// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Errors reported by Session.
var (
	ErrTimeout   = errors.New("browsertest: wait timed out")
	ErrNoElement = errors.New("browsertest: no element matches selector")
)

const blankPage = "<html><head></head><body></body></html>"

// Session is a scripted, single-tab fake. Pages maps URLs to markup;
// Redirects maps a requested URL to the URL that ends up loaded.
type Session struct {
	Pages       map[string]string
	Redirects   map[string]string
	NavigateErr map[string]error

	// EvalFunc handles Evaluate; a nil EvalFunc accepts every script.
	EvalFunc func(s *Session, script string, out any) error
	// ClickFunc handles Click; a nil ClickFunc fails with ErrNoElement.
	ClickFunc func(s *Session, selector string) error

	URL  string
	HTML string

	Navigations []string
	Scripts     []string
	Clicks      []string
	Scrolls     int
	Closed      bool
}

// New returns a Session serving pages.
func New(pages map[string]string) *Session {
	return &Session{Pages: pages, HTML: blankPage}
}

// Load makes url the current document, following Redirects.
func (s *Session) Load(url string) {
	if to, ok := s.Redirects[url]; ok {
		url = to
	}
	s.URL = url
	if html, ok := s.Pages[url]; ok {
		s.HTML = html
		return
	}
	s.HTML = blankPage
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Navigations = append(s.Navigations, url)
	if err := s.NavigateErr[url]; err != nil {
		return err
	}
	s.Load(url)
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	return s.URL, ctx.Err()
}

func (s *Session) Markup(ctx context.Context) (string, error) {
	return s.HTML, ctx.Err()
}

func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Scripts = append(s.Scripts, script)
	if s.EvalFunc == nil {
		return nil
	}
	return s.EvalFunc(s, script, out)
}

// WaitReady succeeds when selector matches the current markup.
func (s *Session) WaitReady(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Clicks = append(s.Clicks, selector)
	if s.ClickFunc == nil {
		return fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	return s.ClickFunc(s, selector)
}

func (s *Session) Scroll(ctx context.Context, times int, _ time.Duration) error {
	s.Scrolls += times
	return ctx.Err()
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Assign decodes v into out the way a browser evaluation result would be.
func Assign(out any, v any) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
