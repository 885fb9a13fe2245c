package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TARGET_YEAR", "")
	t.Setenv("HEADLESS", "")
	t.Setenv("STORE_BACKEND", "")

	cfg := Load()
	if cfg.TargetYear != 1404 {
		t.Errorf("TargetYear: got %d, want 1404", cfg.TargetYear)
	}
	if !cfg.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.StoreBackend != StoreSheets {
		t.Errorf("StoreBackend: got %q, want %q", cfg.StoreBackend, StoreSheets)
	}
	if cfg.RunID == "" {
		t.Error("RunID should be stamped at load")
	}
}

func TestLoadDefaultsValidate(t *testing.T) {
	for _, key := range []string{"TARGET_YEAR", "NAV_TIMEOUT_SEC", "BROWSER_DRIVER", "IDENTITY_STRATEGY", "STORE_BACKEND", "SPREADSHEET_ID"} {
		t.Setenv(key, "")
	}

	if err := Load().Validate(); err != nil {
		t.Errorf("default config should validate without a spreadsheet: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TARGET_YEAR", "1403")
	t.Setenv("HEADLESS", "false")
	t.Setenv("NAV_TIMEOUT_SEC", "12")
	t.Setenv("BROWSER_DRIVER", "ROD")
	t.Setenv("MAX_PAGES", "not-a-number")

	cfg := Load()
	if cfg.TargetYear != 1403 {
		t.Errorf("TargetYear: got %d", cfg.TargetYear)
	}
	if cfg.Headless {
		t.Error("Headless should be false")
	}
	if cfg.NavTimeout != 12*time.Second {
		t.Errorf("NavTimeout: got %v", cfg.NavTimeout)
	}
	if cfg.BrowserDriver != "rod" {
		t.Errorf("BrowserDriver: got %q", cfg.BrowserDriver)
	}
	if cfg.MaxPages != 0 {
		t.Errorf("MaxPages should fall back to 0 on bad input, got %d", cfg.MaxPages)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			TargetYear:       1404,
			NavTimeout:       30 * time.Second,
			BrowserDriver:    "chromedp",
			IdentityStrategy: "digest",
			StoreBackend:     StoreNone,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"ok", func(c *Config) {}, nil},
		{"year", func(c *Config) { c.TargetYear = 14 }, ErrInvalidTargetYear},
		{"timeout", func(c *Config) { c.NavTimeout = 0 }, ErrInvalidNavTimeout},
		{"driver", func(c *Config) { c.BrowserDriver = "selenium" }, ErrUnknownDriver},
		{"strategy", func(c *Config) { c.IdentityStrategy = "id" }, ErrUnknownStrategy},
		{"backend", func(c *Config) { c.StoreBackend = "mongo" }, ErrUnknownStoreBackend},
		{"sheets without id", func(c *Config) { c.StoreBackend = StoreSheets }, nil},
	}

	for _, tt := range tests {
		c := valid()
		tt.mutate(c)
		err := c.Validate()
		if tt.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}
