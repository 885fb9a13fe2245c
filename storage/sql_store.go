package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const insertBatchSize = 50

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name        string
	driver      string
	idColumn    string
	createdAt   string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "postgres",
		idColumn:    "id SERIAL PRIMARY KEY",
		createdAt:   "created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite",
		idColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
		createdAt:   "created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP",
		placeholder: func(int) string { return "?" },
	}
)

// SQLStore persists enriched records to one PostgreSQL or SQLite table with
// a TEXT column per models.Columns entry.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  *utils.Logger
}

// OpenPostgres connects to PostgreSQL, retrying the initial ping, and
// migrates table.
func OpenPostgres(ctx context.Context, dsn, table string, retry utils.RetryConfig, logger *utils.Logger) (*SQLStore, error) {
	return openSQL(ctx, postgresDialect, dsn, table, retry, logger)
}

// OpenSQLite opens (or creates) the database file at path and migrates table.
func OpenSQLite(ctx context.Context, path, table string, logger *utils.Logger) (*SQLStore, error) {
	return openSQL(ctx, sqliteDialect, path, table, utils.RetryConfig{MaxAttempts: 1}, logger)
}

func openSQL(ctx context.Context, d dialect, dsn, table string, retry utils.RetryConfig, logger *utils.Logger) (*SQLStore, error) {
	if !tableNameRegexp.MatchString(table) {
		return nil, fmt.Errorf("%s: invalid table name %q", d.name, table)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.name, err)
	}
	if d.driver == sqliteDialect.driver {
		db.SetMaxOpenConns(1)
	}

	if err := retry.Do(ctx, d.name+" ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}

	s := &SQLStore{db: db, dialect: d, table: table, logger: logger.With(d.name)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return s, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLStore) migrate(ctx context.Context) error {
	defs := []string{s.dialect.idColumn}
	for _, c := range models.Columns {
		defs = append(defs, quoteIdent(c)+" TEXT NOT NULL DEFAULT ''")
	}
	defs = append(defs, s.dialect.createdAt)

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(s.table), strings.Join(defs, ",\n\t")),
	}
	for _, c := range []string{models.ColPlatformURL, models.ColUniqueKey} {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
			quoteIdent("idx_"+s.table+"_"+c), quoteIdent(s.table), quoteIdent(c)))
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// FetchExistingKeys returns the distinct non-empty values of column.
func (s *SQLStore) FetchExistingKeys(ctx context.Context, column string) (map[string]struct{}, error) {
	if !models.IsColumn(column) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	col := quoteIdent(column)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s <> ''", col, quoteIdent(s.table), col))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch keys: %w", s.dialect.name, err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%s: scan key: %w", s.dialect.name, err)
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// AppendRows inserts records in batches inside one transaction, so a failed
// append leaves the table unchanged.
func (s *SQLStore) AppendRows(ctx context.Context, records []*models.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	for i := 0; i < len(records); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.insertBatch(ctx, tx, records[i:end]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: insert: %w", s.dialect.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.name, err)
	}
	s.logger.Info("Appended %d rows to %s", len(records), s.table)
	return nil
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, batch []*models.EnrichedRecord) error {
	cols := make([]string, len(models.Columns))
	for i, c := range models.Columns {
		cols[i] = quoteIdent(c)
	}

	width := len(models.Columns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*width)

	for idx, r := range batch {
		holders := make([]string, width)
		for j := range holders {
			holders[j] = s.dialect.placeholder(idx*width + j + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(holders, ",")+")")
		for _, v := range r.Row() {
			valueArgs = append(valueArgs, v)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdent(s.table), strings.Join(cols, ","), strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// Count returns the number of stored rows.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(s.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: count: %w", s.dialect.name, err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
