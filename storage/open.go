package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crowdfund-scraper/config"
	"crowdfund-scraper/utils"
)

// Open builds the store selected by cfg.StoreBackend. It returns a nil Store
// for the "none" backend. A sheets backend without SPREADSHEET_ID fails here
// rather than at config validation, so the run goes on without persistence.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (Store, error) {
	retry := utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}

	switch cfg.StoreBackend {
	case config.StoreNone:
		return nil, nil
	case config.StoreSheets:
		if cfg.SpreadsheetID == "" {
			return nil, config.ErrMissingSpreadsheet
		}
		creds, err := CredentialsOption(cfg.GoogleCredentials, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		s, err := NewSheetsStore(ctx, cfg.SpreadsheetID, cfg.SheetName, logger, creds)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePostgres:
		s, err := OpenPostgres(ctx, cfg.DSN(), cfg.PostgresTable, retry, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
		s, err := OpenSQLite(ctx, cfg.SQLitePath, cfg.SQLiteTable, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreBackend, cfg.StoreBackend)
	}
}
