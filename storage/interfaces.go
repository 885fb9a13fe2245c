package storage

import (
	"context"
	"errors"

	"crowdfund-scraper/models"
)

// ErrUnknownColumn is returned when a key column is not one of models.Columns.
var ErrUnknownColumn = errors.New("storage: unknown column")

// Store is an append-only destination for enriched records. It performs no
// deduplication of its own: callers filter with the keys it reports.
type Store interface {
	// FetchExistingKeys returns every non-empty value stored under column.
	// A missing sheet, tab or table yields an empty set.
	FetchExistingKeys(ctx context.Context, column string) (map[string]struct{}, error)
	// AppendRows appends records in models.Columns order.
	AppendRows(ctx context.Context, records []*models.EnrichedRecord) error
	Close() error
}

// RecordWriter is a local artifact sink for one run's records.
type RecordWriter interface {
	Write(records []*models.EnrichedRecord) error
	Close() error
}
