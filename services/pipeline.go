package services

import (
	"context"
	"fmt"
	"time"

	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/scraper/platforms"
	"crowdfund-scraper/storage"
	"crowdfund-scraper/utils"
)

// Traverser produces the listing records of one run.
type Traverser interface {
	Traverse(ctx context.Context) ([]*models.ListingRecord, error)
}

// Enricher looks up platform details for a listing record and names the
// adapter that handled it.
type Enricher interface {
	Enrich(ctx context.Context, rec *models.ListingRecord) (string, platforms.Result)
}

// RunSummary describes what one run did.
type RunSummary struct {
	RunID    string
	Records  []*models.EnrichedRecord
	New      []*models.EnrichedRecord
	Existing int
	Appended int
	StoreErr error
	Duration time.Duration
}

// Pipeline runs traverse, enrich, write artifacts, dedup and append, in that
// order, on a single shared browser tab.
type Pipeline struct {
	runID     string
	traverser Traverser
	enricher  Enricher
	dedup     *Deduplicator
	store     storage.Store
	sinks     []storage.RecordWriter
	pacer     *utils.Pacer
	retry     utils.RetryConfig
	logger    *utils.Logger
}

// NewPipeline wires a pipeline. store may be nil, in which case records are
// only written to sinks.
func NewPipeline(
	cfg *config.Config,
	traverser Traverser,
	enricher Enricher,
	dedup *Deduplicator,
	store storage.Store,
	sinks []storage.RecordWriter,
	logger *utils.Logger,
) *Pipeline {
	return &Pipeline{
		runID:     cfg.RunID,
		traverser: traverser,
		enricher:  enricher,
		dedup:     dedup,
		store:     store,
		sinks:     sinks,
		pacer:     utils.NewPacer(cfg.RateLimit),
		retry:     utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger},
		logger:    logger.With("pipeline"),
	}
}

// Run executes one full run. Only a failed traversal or a cancelled context
// is returned as an error; store problems are recorded in the summary.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	sum := &RunSummary{RunID: p.runID}

	listings, err := p.traverser.Traverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: traverse: %w", err)
	}
	p.logger.Info("Collected %d listing records", len(listings))

	records, err := p.enrichAll(ctx, listings)
	if err != nil {
		return nil, err
	}
	sum.Records = records
	p.dedup.AttachKeys(records)

	for _, sink := range p.sinks {
		if err := sink.Write(records); err != nil {
			p.logger.Error("Writing local artifact: %v", err)
		}
	}

	p.persist(ctx, sum)
	sum.Duration = time.Since(start)
	return sum, nil
}

func (p *Pipeline) enrichAll(ctx context.Context, listings []*models.ListingRecord) ([]*models.EnrichedRecord, error) {
	records := make([]*models.EnrichedRecord, 0, len(listings))
	for i, l := range listings {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: enrich: %w", err)
		}
		if l.PlatformURL != "" {
			if err := p.pacer.Wait(ctx); err != nil {
				return nil, fmt.Errorf("pipeline: enrich: %w", err)
			}
		}

		p.logger.Info("[%d/%d] %s", i+1, len(listings), l.ProjectName)
		rec := models.NewEnrichedRecord(l, p.runID)
		name, res := p.enricher.Enrich(ctx, l)
		rec.Adapter = name
		rec.Outcome = res.Outcome
		rec.Details.Merge(res.Fields)
		if res.Err != nil {
			rec.EnrichError = res.Err.Error()
		}
		records = append(records, rec)
	}
	return records, nil
}

// persist appends the new records to the store. The key read is retried;
// the append is attempted once so a partial failure is never repeated.
func (p *Pipeline) persist(ctx context.Context, sum *RunSummary) {
	if p.store == nil {
		p.logger.Info("No store configured; skipping persistence")
		return
	}

	column := p.dedup.Strategy().Column()
	var existing map[string]struct{}
	err := p.retry.Do(ctx, "fetch existing keys", func() error {
		var err error
		existing, err = p.store.FetchExistingKeys(ctx, column)
		return err
	})
	if err != nil {
		sum.StoreErr = err
		p.logger.Error("Store unavailable, persistence skipped: %v", err)
		return
	}
	sum.Existing = len(existing)

	sum.New = p.dedup.FilterNew(sum.Records, KeySet(existing))
	if len(sum.New) == 0 {
		p.logger.Info("Nothing new to store")
		return
	}

	if err := p.store.AppendRows(ctx, sum.New); err != nil {
		sum.StoreErr = err
		p.logger.Error("Appending %d rows failed: %v", len(sum.New), err)
		return
	}
	sum.Appended = len(sum.New)

	if c, ok := p.store.(interface {
		Count(context.Context) (int, error)
	}); ok {
		if n, err := c.Count(ctx); err == nil {
			p.logger.Info("Store now holds %d rows", n)
		}
	}
}
