package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

// ErrNoCredentials is returned when neither inline nor file credentials exist.
var ErrNoCredentials = errors.New("sheets: no service account credentials")

// SheetsStore appends enriched records to one tab of a Google spreadsheet.
// The first row of the tab is the header; rows are aligned to it by name.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *utils.Logger
}

// CredentialsOption returns service account credentials, preferring the
// inline JSON over the file at path.
func CredentialsOption(inline, path string) (option.ClientOption, error) {
	if strings.TrimSpace(inline) != "" {
		return option.WithCredentialsJSON([]byte(inline)), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCredentials, path)
		}
		return nil, fmt.Errorf("sheets: read credentials: %w", err)
	}
	return option.WithCredentialsJSON(b), nil
}

// NewSheetsStore builds a Sheets v4 client for spreadsheetID.
func NewSheetsStore(ctx context.Context, spreadsheetID, sheetName string, logger *utils.Logger, opts ...option.ClientOption) (*SheetsStore, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.With("sheets"),
	}, nil
}

func (s *SheetsStore) tabRange(cells string) string {
	r := "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'"
	if cells != "" {
		r += "!" + cells
	}
	return r
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// hasTab reports whether the configured tab exists. A missing spreadsheet is
// reported as a missing tab.
func (s *SheetsStore) hasTab(ctx context.Context) (bool, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if isNotFound(err) {
		s.logger.Warn("Spreadsheet %s not found", s.spreadsheetID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sheets: get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheetName {
			return true, nil
		}
	}
	return false, nil
}

// FetchExistingKeys reads column from every data row of the tab.
func (s *SheetsStore) FetchExistingKeys(ctx context.Context, column string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	ok, err := s.hasTab(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("Tab %q does not exist yet; no stored keys", s.sheetName)
		return keys, nil
	}

	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.tabRange("")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read values: %w", err)
	}
	if len(vr.Values) == 0 {
		return keys, nil
	}

	idx := indexOf(cellStrings(vr.Values[0]), column)
	if idx < 0 {
		s.logger.Warn("Tab %q has no %q column; treating as empty", s.sheetName, column)
		return keys, nil
	}
	for _, row := range vr.Values[1:] {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(row[idx])); v != "" {
			keys[v] = struct{}{}
		}
	}
	s.logger.Info("Read %d stored keys from %q", len(keys), s.sheetName)
	return keys, nil
}

// AppendRows creates the tab and header on first use, then appends records
// aligned to the header in a single request.
func (s *SheetsStore) AppendRows(ctx context.Context, records []*models.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}

	ok, err := s.hasTab(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.addTab(ctx); err != nil {
			return err
		}
	}

	header, err := s.header(ctx)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		if err := s.writeHeader(ctx); err != nil {
			return err
		}
		header = models.Columns
	}

	rows := s.alignRows(header, records)
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.tabRange("A1"), &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	s.logger.Info("Appended %d rows to %q", len(rows), s.sheetName)
	return nil
}

func (s *SheetsStore) addTab(ctx context.Context) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.sheetName},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: add tab %q: %w", s.sheetName, err)
	}
	s.logger.Info("Created tab %q", s.sheetName)
	return nil
}

func (s *SheetsStore) header(ctx context.Context) ([]string, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.tabRange("1:1")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read header: %w", err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	return cellStrings(vr.Values[0]), nil
}

func (s *SheetsStore) writeHeader(ctx context.Context) error {
	row := make([]interface{}, len(models.Columns))
	for i, c := range models.Columns {
		row[i] = c
	}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.tabRange("A1"), &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: write header: %w", err)
	}
	return nil
}

// alignRows orders each record's values by header. Header cells that are not
// known columns stay blank; known columns absent from the header are dropped.
func (s *SheetsStore) alignRows(header []string, records []*models.EnrichedRecord) [][]interface{} {
	var missing []string
	for _, c := range models.Columns {
		if indexOf(header, c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		s.logger.Warn("Tab %q header lacks %d columns (%s); their values are not written",
			s.sheetName, len(missing), strings.Join(missing, ", "))
	}

	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		row := make([]interface{}, len(header))
		for i, h := range header {
			if models.IsColumn(h) {
				row[i] = r.Value(h)
			} else {
				row[i] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *SheetsStore) Close() error { return nil }

func cellStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(fmt.Sprint(c))
	}
	return out
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}
