package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type rodSession struct {
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
}

// NewRodSession launches Chrome through go-rod and opens one stealth page.
func NewRodSession(opts Options) (Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", "1920,1080")
	if opts.ChromeBin != "" {
		l = l.Bin(opts.ChromeBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("rod: launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("rod: connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("rod: open page: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.userAgent()}); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("rod: set user agent: %w", err)
	}

	return &rodSession{
		browser:    browser,
		page:       page,
		navTimeout: opts.navTimeout(),
	}, nil
}

// bounded returns the page limited by ctx and timeout; the caller must invoke
// done to release the timer.
func (s *rodSession) bounded(ctx context.Context, timeout time.Duration) (p *rod.Page, done func()) {
	p = s.page.Context(ctx).Timeout(timeout)
	return p, func() { p.CancelTimeout() }
}

// evalFunc wraps an expression in the arrow function Page.Eval expects.
func evalFunc(js string) string {
	return "() => (" + js + ")"
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p, done := s.bounded(ctx, s.navTimeout)
	defer done()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("rod: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("rod: wait load %s: %w", url, err)
	}
	return nil
}

func (s *rodSession) CurrentURL(ctx context.Context) (string, error) {
	p, done := s.bounded(ctx, s.navTimeout)
	defer done()
	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("rod: page info: %w", err)
	}
	return info.URL, nil
}

func (s *rodSession) Markup(ctx context.Context) (string, error) {
	p, done := s.bounded(ctx, s.navTimeout)
	defer done()
	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("rod: read markup: %w", err)
	}
	return html, nil
}

func (s *rodSession) Evaluate(ctx context.Context, script string, out any) error {
	p, done := s.bounded(ctx, s.navTimeout)
	defer done()
	obj, err := p.Eval(evalFunc(script))
	if err != nil {
		return fmt.Errorf("rod: evaluate: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(obj.Value.JSON("", "")), out); err != nil {
		return fmt.Errorf("rod: decode evaluation result: %w", err)
	}
	return nil
}

func (s *rodSession) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	p, done := s.bounded(ctx, timeout)
	defer done()
	if _, err := p.Element(selector); err != nil {
		return fmt.Errorf("rod: wait for %q: %w", selector, err)
	}
	return nil
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	p, done := s.bounded(ctx, s.navTimeout)
	defer done()
	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("rod: find %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("rod: click %q: %w", selector, err)
	}
	return nil
}

func (s *rodSession) Scroll(ctx context.Context, times int, pause time.Duration) error {
	for i := 0; i < times; i++ {
		if err := s.scrollOnce(ctx); err != nil {
			return fmt.Errorf("rod: scroll %d/%d: %w", i+1, times, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

func (s *rodSession) scrollOnce(ctx context.Context) error {
	p, done := s.bounded(ctx, s.navTimeout)
	defer done()
	_, err := p.Eval(evalFunc(scrollToBottomJS))
	return err
}

func (s *rodSession) Close() error {
	return s.browser.Close()
}
