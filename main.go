package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/scraper/ifb"
	"crowdfund-scraper/scraper/platforms"
	"crowdfund-scraper/services"
	"crowdfund-scraper/storage"
	"crowdfund-scraper/utils"
)

type overrides struct {
	year     int
	maxPages int
	headless bool
	driver   string
	store    string
	strategy string
	debug    bool
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:          "crowdfund-scraper",
		Short:        "Scrape IFB crowdfunding projects, enrich them from their platforms and store the new ones.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			o.apply(cmd, cfg)
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.year, "year", 0, "target start-date year (TARGET_YEAR)")
	f.IntVar(&o.maxPages, "max-pages", 0, "stop after this many listing pages, 0 for no limit (MAX_PAGES)")
	f.BoolVar(&o.headless, "headless", true, "run the browser without a window (HEADLESS)")
	f.StringVar(&o.driver, "driver", "", "browser driver: chromedp or rod (BROWSER_DRIVER)")
	f.StringVar(&o.store, "store", "", "store backend: sheets, postgres, sqlite or none (STORE_BACKEND)")
	f.StringVar(&o.strategy, "strategy", "", "identity strategy: digest or url (IDENTITY_STRATEGY)")
	f.BoolVar(&o.debug, "debug", false, "enable debug logging (LOG_DEBUG)")
	return cmd
}

// apply copies explicitly set flags over the environment configuration.
func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("year") {
		cfg.TargetYear = o.year
	}
	if f.Changed("max-pages") {
		cfg.MaxPages = o.maxPages
	}
	if f.Changed("headless") {
		cfg.Headless = o.headless
	}
	if f.Changed("driver") {
		cfg.BrowserDriver = o.driver
	}
	if f.Changed("store") {
		cfg.StoreBackend = o.store
	}
	if f.Changed("strategy") {
		cfg.IdentityStrategy = o.strategy
	}
	if f.Changed("debug") {
		cfg.Debug = o.debug
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := utils.NewLogger()
	logger.SetDebug(cfg.Debug)

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			logger.Warn("Cannot open log file %s: %v", cfg.LogFile, err)
		} else {
			defer logFile.Close()
			logger.MirrorTo(logFile)
		}
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return err
	}

	logger.Info("=== IFB Crowdfunding Scraper starting (run %s) ===", cfg.RunID)
	logger.Info("Config: year %d | driver %s | headless %t | store %s | identity %s | max pages %d",
		cfg.TargetYear, cfg.BrowserDriver, cfg.Headless, cfg.StoreBackend, cfg.IdentityStrategy, cfg.MaxPages)

	strategy, err := services.NewIdentityStrategy(cfg.IdentityStrategy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.Open(cfg.BrowserDriver, browser.Options{
		Headless:   cfg.Headless,
		ChromeBin:  cfg.ChromeBin,
		NavTimeout: cfg.NavTimeout,
	})
	if err != nil {
		logger.Error("Failed to start browser: %v", err)
		return err
	}
	defer session.Close()

	sinks := openSinks(cfg, logger)
	for _, s := range sinks {
		defer s.Close()
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("Store %s unavailable, persistence will be skipped: %v", cfg.StoreBackend, err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	extractor := ifb.NewExtractor(cfg, session, logger)
	paginator := ifb.NewPaginator(cfg, session, extractor, logger)
	dispatcher := platforms.NewDefaultDispatcher(cfg, session, logger)
	dedup := services.NewDeduplicator(strategy, logger)

	pipeline := services.NewPipeline(cfg, paginator, dispatcher, dedup, store, sinks, logger)
	summary, err := pipeline.Run(ctx)
	if err != nil {
		logger.Error("Run failed: %v", err)
		return err
	}

	reports := services.NewReportService(logger)
	reports.Print(os.Stdout, reports.Generate(summary))

	fmt.Printf("  Done in %s. Output → %s\n\n", summary.Duration.Round(time.Second), cfg.OutputDir)
	return nil
}

// openSinks creates the local JSON and CSV artifacts. A sink that cannot be
// created is logged and left out.
func openSinks(cfg *config.Config, logger *utils.Logger) []storage.RecordWriter {
	base := filepath.Join(cfg.OutputDir, cfg.OutputBasename)
	var sinks []storage.RecordWriter

	jsonWriter, err := storage.NewJSONWriter(base + ".json")
	if err != nil {
		logger.Error("Failed to create JSON writer: %v", err)
	} else {
		sinks = append(sinks, jsonWriter)
	}

	csvWriter, err := storage.NewCSVWriter(base + ".csv")
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
	} else {
		sinks = append(sinks, csvWriter)
	}
	return sinks
}
