package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/scraper/platforms"
	"crowdfund-scraper/storage"
)

type stubTraverser struct {
	records []*models.ListingRecord
	err     error
}

func (s stubTraverser) Traverse(context.Context) ([]*models.ListingRecord, error) {
	return s.records, s.err
}

type stubEnricher struct {
	results map[string]platforms.Result
	calls   int
}

func (s *stubEnricher) Enrich(_ context.Context, rec *models.ListingRecord) (string, platforms.Result) {
	s.calls++
	if rec.PlatformURL == "" {
		return "", platforms.Result{Fields: models.Fields{}, Outcome: models.OutcomeSkipped}
	}
	if res, ok := s.results[rec.ProjectName]; ok {
		return "stub", res
	}
	return "stub", platforms.Result{Fields: models.Fields{}, Outcome: models.OutcomeNoMatch}
}

type memStore struct {
	keys        map[string]struct{}
	fetchErrs   []error
	appendErr   error
	fetchCalls  int
	appendCalls int
	rows        []*models.EnrichedRecord
}

func (m *memStore) FetchExistingKeys(_ context.Context, column string) (map[string]struct{}, error) {
	m.fetchCalls++
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.keys, nil
}

func (m *memStore) AppendRows(_ context.Context, records []*models.EnrichedRecord) error {
	m.appendCalls++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows = append(m.rows, records...)
	return nil
}

func (m *memStore) Close() error { return nil }

type memSink struct {
	written []*models.EnrichedRecord
	err     error
}

func (m *memSink) Write(records []*models.EnrichedRecord) error {
	m.written = records
	return m.err
}

func (m *memSink) Close() error { return nil }

func listing(name, url string) *models.ListingRecord {
	return &models.ListingRecord{ProjectName: name, CompanyName: "Co", StartDate: "1404/01/01", PlatformURL: url}
}

func newTestPipeline(t *testing.T, tr Traverser, en Enricher, store *memStore, sinks ...*memSink) *Pipeline {
	t.Helper()
	cfg := &config.Config{RunID: "run-42", MaxRetries: 3}
	strategy, err := NewIdentityStrategy(StrategyURL)
	require.NoError(t, err)

	var st storage.Store
	if store != nil {
		st = store
	}
	var writers []storage.RecordWriter
	for _, sink := range sinks {
		writers = append(writers, sink)
	}

	p := NewPipeline(cfg, tr, en, NewDeduplicator(strategy, newTestLogger()), st, writers, newTestLogger())
	p.retry.BaseDelay = time.Millisecond
	return p
}

func TestPipelineRun(t *testing.T) {
	tr := stubTraverser{records: []*models.ListingRecord{
		listing("A", "https://hamafarin.ir/a"),
		listing("B", "https://fundocrowd.ir/b"),
		listing("C", ""),
		listing("D", "https://ifund.ir/d"),
	}}
	en := &stubEnricher{results: map[string]platforms.Result{
		"A": {Fields: models.Fields{models.FieldTargetAmount: "100"}, Outcome: models.OutcomeMatched},
		"B": {Fields: models.Fields{models.FieldTargetAmount: "50"}, Outcome: models.OutcomeFailed, Err: errors.New("detail page: timeout")},
	}}
	store := &memStore{keys: map[string]struct{}{"https://hamafarin.ir/a": {}}}
	sink := &memSink{}

	sum, err := newTestPipeline(t, tr, en, store, sink).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Records, 4)
	assert.Equal(t, "run-42", sum.RunID)
	assert.Equal(t, 4, en.calls)
	assert.Len(t, sink.written, 4, "local artifacts hold every record")

	a, b, c := sum.Records[0], sum.Records[1], sum.Records[2]
	assert.Equal(t, models.OutcomeMatched, a.Outcome)
	assert.Equal(t, "100", a.Details[models.FieldTargetAmount])
	assert.Equal(t, models.OutcomeFailed, b.Outcome)
	assert.Equal(t, "50", b.Details[models.FieldTargetAmount], "partial fields are kept")
	assert.Equal(t, "detail page: timeout", b.EnrichError)
	assert.Equal(t, models.OutcomeSkipped, c.Outcome)
	assert.Equal(t, "run-42", c.RunID)
	assert.NotEmpty(t, a.UniqueKey)

	assert.Equal(t, 1, sum.Existing)
	assert.Equal(t, []string{"https://fundocrowd.ir/b", "https://ifund.ir/d"}, urls(sum.New),
		"stored and keyless records are not appended")
	assert.Equal(t, 2, sum.Appended)
	assert.Len(t, store.rows, 2)
	assert.NoError(t, sum.StoreErr)
}

func TestPipelineTraverseFailureAborts(t *testing.T) {
	en := &stubEnricher{}
	store := &memStore{}
	_, err := newTestPipeline(t, stubTraverser{err: errors.New("listing unreachable")}, en, store).Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, en.calls)
	assert.Zero(t, store.fetchCalls)
}

func TestPipelineRetriesKeyRead(t *testing.T) {
	tr := stubTraverser{records: []*models.ListingRecord{listing("A", "https://x.ir/a")}}
	store := &memStore{keys: map[string]struct{}{}, fetchErrs: []error{errors.New("503"), nil}}

	sum, err := newTestPipeline(t, tr, &stubEnricher{}, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.fetchCalls)
	assert.Equal(t, 1, sum.Appended)
}

func TestPipelineStoreUnavailable(t *testing.T) {
	tr := stubTraverser{records: []*models.ListingRecord{listing("A", "https://x.ir/a")}}
	boom := errors.New("permission denied")
	store := &memStore{fetchErrs: []error{boom, boom, boom}}
	sink := &memSink{}

	sum, err := newTestPipeline(t, tr, &stubEnricher{}, store, sink).Run(context.Background())
	require.NoError(t, err, "store failures do not fail the run")
	assert.ErrorIs(t, sum.StoreErr, boom)
	assert.Equal(t, 3, store.fetchCalls)
	assert.Zero(t, store.appendCalls)
	assert.Len(t, sink.written, 1)
}

func TestPipelineAppendIsNotRetried(t *testing.T) {
	tr := stubTraverser{records: []*models.ListingRecord{listing("A", "https://x.ir/a")}}
	store := &memStore{keys: map[string]struct{}{}, appendErr: errors.New("quota exceeded")}

	sum, err := newTestPipeline(t, tr, &stubEnricher{}, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.appendCalls)
	assert.Error(t, sum.StoreErr)
	assert.Zero(t, sum.Appended)
}

func TestPipelineWithoutStore(t *testing.T) {
	tr := stubTraverser{records: []*models.ListingRecord{listing("A", "https://x.ir/a")}}
	sink := &memSink{err: errors.New("disk full")}

	sum, err := newTestPipeline(t, tr, &stubEnricher{}, nil, sink).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.Records, 1)
	assert.Empty(t, sum.New)
	assert.NoError(t, sum.StoreErr)
}

func TestPipelineCancelled(t *testing.T) {
	tr := stubTraverser{records: []*models.ListingRecord{listing("A", "https://x.ir/a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t, tr, &stubEnricher{}, &memStore{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
