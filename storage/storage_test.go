package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

func quietLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, io.Discard)
}

func record(name, key string) *models.EnrichedRecord {
	r := models.NewEnrichedRecord(&models.ListingRecord{
		RowNumber:   "1",
		ProjectName: name,
		CompanyName: "شرکت نمونه",
		StartDate:   "1404/01/15",
		PlatformURL: "https://hamafarin.ir/businessplans/" + name,
		ScrapedAt:   time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}, "run-1")
	r.UniqueKey = key
	r.Adapter = "hamafarin"
	r.Outcome = models.OutcomeMatched
	r.Details.Set(models.FieldTargetAmount, "1,000")
	return r
}

func openTestSQLite(t *testing.T, path string) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path, "ifb_projects", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, filepath.Join(t.TempDir(), "projects.db"))

	keys, err := s.FetchExistingKeys(ctx, models.ColUniqueKey)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.AppendRows(ctx, []*models.EnrichedRecord{
		record("a", "k1"), record("b", "k2"), record("c", ""),
	}))

	keys, err = s.FetchExistingKeys(ctx, models.ColUniqueKey)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"k1": {}, "k2": {}}, keys)

	urls, err := s.FetchExistingKeys(ctx, models.ColPlatformURL)
	require.NoError(t, err)
	assert.Len(t, urls, 3)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStoreDoesNotDeduplicate(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, filepath.Join(t.TempDir(), "projects.db"))

	require.NoError(t, s.AppendRows(ctx, []*models.EnrichedRecord{record("a", "k1")}))
	require.NoError(t, s.AppendRows(ctx, []*models.EnrichedRecord{record("a", "k1")}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStoreBatchesAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "projects.db")
	s := openTestSQLite(t, path)

	var batch []*models.EnrichedRecord
	for i := 0; i < 2*insertBatchSize+7; i++ {
		batch = append(batch, record(fmt.Sprintf("p%d", i), fmt.Sprintf("k%d", i)))
	}
	require.NoError(t, s.AppendRows(ctx, batch))
	require.NoError(t, s.Close())

	reopened := openTestSQLite(t, path)
	keys, err := reopened.FetchExistingKeys(ctx, models.ColUniqueKey)
	require.NoError(t, err)
	assert.Len(t, keys, len(batch))
}

func TestSQLiteStoreRejectsUnknownColumn(t *testing.T) {
	s := openTestSQLite(t, filepath.Join(t.TempDir(), "projects.db"))

	_, err := s.FetchExistingKeys(context.Background(), "id; DROP TABLE ifb_projects")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestOpenSQLiteRejectsBadTableName(t *testing.T) {
	_, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), "projects; --", quietLogger())
	assert.Error(t, err)
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "projects.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write([]*models.EnrichedRecord{record("طرح یک", "k1"), record("طرح دو", "k2")}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, utf8BOM), "file starts with a UTF-8 BOM")

	rows, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Columns, rows[0])
	assert.Equal(t, "طرح یک", rows[1][1])
	assert.Equal(t, "طرح دو", rows[2][1])
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	w, err := NewJSONWriter(path)
	require.NoError(t, err)

	rec := record("طرح یک", "k1")
	rec.Description = "R&D <phase 1>"
	require.NoError(t, w.Write([]*models.EnrichedRecord{rec}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "طرح یک")
	assert.Contains(t, string(raw), "R&D <phase 1>")

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "k1", rows[0][models.ColUniqueKey])
	assert.Equal(t, "1,000", rows[0][string(models.FieldTargetAmount)])
	assert.Equal(t, "2025/06/01 10:30:00", rows[0][models.ColScrapedDate])
}
