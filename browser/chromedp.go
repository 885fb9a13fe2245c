package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

type chromedpSession struct {
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	navTimeout  time.Duration
}

// NewChromedpSession launches Chrome through chromedp and opens one tab.
func NewChromedpSession(opts Options) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(opts.userAgent()),
	)
	if opts.ChromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}

	return &chromedpSession{
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		navTimeout:  opts.navTimeout(),
	}, nil
}

// run executes actions on the tab, bounded by timeout and aborted when ctx is done.
func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.navTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chromedp: navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromedpSession) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.navTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("chromedp: location: %w", err)
	}
	return loc, nil
}

func (s *chromedpSession) Markup(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.navTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp: read markup: %w", err)
	}
	return html, nil
}

func (s *chromedpSession) Evaluate(ctx context.Context, script string, out any) error {
	if err := s.run(ctx, s.navTimeout, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("chromedp: evaluate: %w", err)
	}
	return nil
}

func (s *chromedpSession) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("chromedp: wait for %q: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.navTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("chromedp: click %q: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Scroll(ctx context.Context, times int, pause time.Duration) error {
	for i := 0; i < times; i++ {
		err := s.run(ctx, s.navTimeout,
			chromedp.Evaluate(scrollToBottomJS, nil),
			chromedp.Sleep(pause),
		)
		if err != nil {
			return fmt.Errorf("chromedp: scroll %d/%d: %w", i+1, times, err)
		}
	}
	return nil
}

func (s *chromedpSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
