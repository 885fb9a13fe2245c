// Package browser provides the single navigation surface shared by the
// paginator, the record extractor and every platform adapter.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("browser: unknown driver")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Session is one logical browser tab. Calls must not overlap: every method
// returns only once the browser has finished the operation.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the address of the loaded document.
	CurrentURL(ctx context.Context) (string, error)
	// Markup returns the serialised DOM of the current document.
	Markup(ctx context.Context) (string, error)
	// Evaluate runs a JavaScript expression and decodes its result into out.
	// out may be nil when the result is not needed.
	Evaluate(ctx context.Context, script string, out any) error
	// WaitReady blocks until selector matches an element or timeout elapses.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Scroll scrolls to the bottom of the page times times, pausing in between.
	Scroll(ctx context.Context, times int, pause time.Duration) error
	Close() error
}

// Options configures the browser process.
type Options struct {
	Headless   bool
	ChromeBin  string
	NavTimeout time.Duration
	UserAgent  string
}

func (o Options) userAgent() string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	return defaultUserAgent
}

func (o Options) navTimeout() time.Duration {
	if o.NavTimeout > 0 {
		return o.NavTimeout
	}
	return 30 * time.Second
}

// Open starts a browser with the named driver ("chromedp" or "rod").
func Open(driver string, opts Options) (Session, error) {
	if opts.ChromeBin == "" {
		opts.ChromeBin = FindChromeBinary()
	}
	switch driver {
	case "", "chromedp":
		return NewChromedpSession(opts)
	case "rod":
		return NewRodSession(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

const scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`

// FindChromeBinary locates Chrome/Chromium binary.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
