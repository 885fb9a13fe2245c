package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"crowdfund-scraper/models"
)

// fakeSheets serves the handful of Sheets v4 endpoints the store uses, for a
// spreadsheet holding at most one tab.
type fakeSheets struct {
	mu       sync.Mutex
	missing  bool
	tabs     []string
	rows     [][]interface{}
	requests []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.requests = append(f.requests, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	if f.missing {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
		return
	}

	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{}`))
	case strings.Contains(path, "/values/") && strings.HasSuffix(path, ":append"):
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		_, _ = w.Write([]byte(`{}`))
	case strings.Contains(path, "/values/") && r.Method == http.MethodPut:
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(vr.Values, f.rows...)
		_, _ = w.Write([]byte(`{}`))
	case strings.Contains(path, "/values/"):
		rows := f.rows
		if strings.HasSuffix(path, "!1:1") && len(rows) > 1 {
			rows = rows[:1]
		}
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: rows})
	default:
		ss := sheets.Spreadsheet{}
		for _, t := range f.tabs {
			ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: t}})
		}
		_ = json.NewEncoder(w).Encode(ss)
	}
}

func (f *fakeSheets) valueReads() int {
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, "GET ") && strings.Contains(r, "/values/") {
			n++
		}
	}
	return n
}

func newTestSheetsStore(t *testing.T, fake *fakeSheets) *SheetsStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewSheetsStore(context.Background(), "sheet-1", "Projects", quietLogger(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return s
}

func TestSheetsFetchExistingKeys(t *testing.T) {
	fake := &fakeSheets{
		tabs: []string{"Projects"},
		rows: [][]interface{}{
			{"row_number", "unique_key"},
			{"1", "k1"},
			{"2", ""},
			{"3", "k2"},
			{"4"},
		},
	}
	s := newTestSheetsStore(t, fake)

	keys, err := s.FetchExistingKeys(context.Background(), models.ColUniqueKey)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"k1": {}, "k2": {}}, keys)

	keys, err = s.FetchExistingKeys(context.Background(), models.ColPlatformURL)
	require.NoError(t, err)
	assert.Empty(t, keys, "absent column reads as empty")
}

func TestSheetsMissingTabOrSpreadsheetIsEmpty(t *testing.T) {
	noTab := &fakeSheets{tabs: []string{"Other"}}
	keys, err := newTestSheetsStore(t, noTab).FetchExistingKeys(context.Background(), models.ColUniqueKey)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Zero(t, noTab.valueReads())

	gone := &fakeSheets{missing: true}
	keys, err = newTestSheetsStore(t, gone).FetchExistingKeys(context.Background(), models.ColUniqueKey)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSheetsAppendCreatesTabAndHeader(t *testing.T) {
	fake := &fakeSheets{}
	s := newTestSheetsStore(t, fake)

	require.NoError(t, s.AppendRows(context.Background(), []*models.EnrichedRecord{
		record("a", "k1"), record("b", "k2"),
	}))

	assert.Equal(t, []string{"Projects"}, fake.tabs)
	require.Len(t, fake.rows, 3)
	assert.Len(t, fake.rows[0], len(models.Columns))
	assert.Equal(t, models.ColRowNumber, fake.rows[0][0])

	keyIdx := indexOf(models.Columns, models.ColUniqueKey)
	assert.Equal(t, "k1", fake.rows[1][keyIdx])
	assert.Equal(t, "k2", fake.rows[2][keyIdx])
}

func TestSheetsAppendAlignsToExistingHeader(t *testing.T) {
	fake := &fakeSheets{
		tabs: []string{"Projects"},
		rows: [][]interface{}{{"unique_key", "notes", "project_name"}},
	}
	s := newTestSheetsStore(t, fake)

	require.NoError(t, s.AppendRows(context.Background(), []*models.EnrichedRecord{record("a", "k9")}))

	require.Len(t, fake.rows, 2)
	assert.Equal(t, []interface{}{"k9", "", "a"}, fake.rows[1])
	assert.Len(t, fake.tabs, 1, "existing tab is reused")
}
