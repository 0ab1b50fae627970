package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements TestsRepo and ReportsRepo over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	keep    int
	now     func() time.Time
}

// NewSQLStore wraps an open database. It does not apply the schema; see
// Migrate. keep is the per-test report quota.
func NewSQLStore(db *sql.DB, dialect Dialect, keep int) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, keep: keep, now: time.Now}
}

// OpenSQLite opens (creating if needed) a SQLite database at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string, keep int) (*SQLStore, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageError("failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageError("failed to open database", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, storageError(fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}

	s := NewSQLStore(db, DialectSQLite, keep)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects with lib/pq and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, keep int) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storageError("failed to open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageError("failed to connect to database", err)
	}

	s := NewSQLStore(db, DialectPostgres, keep)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return storageError("failed to apply schema", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveNewVersion implements TestsRepo.
func (s *SQLStore) SaveNewVersion(ctx context.Context, testID string, def domain.TestDefinition) (*domain.TestVersion, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return nil, storageError("failed to encode definition", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var latest int
	row := tx.QueryRowContext(ctx, s.rebind("SELECT COALESCE(MAX(version), 0) FROM test_versions WHERE test_id = ?"), testID)
	if err := row.Scan(&latest); err != nil {
		return nil, storageError("failed to read latest version", err)
	}

	v := &domain.TestVersion{
		TestID:     testID,
		Version:    latest + 1,
		Definition: def,
		CreatedAt:  s.now().UTC(),
		Storage:    domain.StorageDB,
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind("INSERT INTO test_versions (test_id, version, definition, created_at) VALUES (?, ?, ?, ?)"),
		v.TestID, v.Version, string(data), formatTime(v.CreatedAt),
	); err != nil {
		return nil, storageError("failed to insert version", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageError("failed to commit version", err)
	}
	return v, nil
}

// GetLatest implements TestsRepo.
func (s *SQLStore) GetLatest(ctx context.Context, testID string) (*domain.TestVersion, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind("SELECT test_id, version, definition, created_at FROM test_versions WHERE test_id = ? ORDER BY version DESC LIMIT 1"),
		testID,
	)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("failed to read version", err)
	}
	return v, nil
}

// ListLatest implements TestsRepo.
func (s *SQLStore) ListLatest(ctx context.Context) ([]domain.TestVersion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.test_id, t.version, t.definition, t.created_at
FROM test_versions t
JOIN (SELECT test_id, MAX(version) AS version FROM test_versions GROUP BY test_id) m
  ON t.test_id = m.test_id AND t.version = m.version
ORDER BY t.test_id`)
	if err != nil {
		return nil, storageError("failed to list versions", err)
	}
	defer rows.Close()

	out := []domain.TestVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, storageError("failed to read version", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list versions", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*domain.TestVersion, error) {
	var (
		v          domain.TestVersion
		definition string
		createdAt  string
	)
	if err := row.Scan(&v.TestID, &v.Version, &definition, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(definition), &v.Definition); err != nil {
		return nil, fmt.Errorf("decode definition of %s v%d: %w", v.TestID, v.Version, err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at of %s v%d: %w", v.TestID, v.Version, err)
	}
	v.CreatedAt = t
	v.Storage = domain.StorageDB
	return &v, nil
}

// SaveReport implements ReportsRepo. Reports beyond the per-test quota
// are deleted in the same transaction.
func (s *SQLStore) SaveReport(ctx context.Context, report domain.RunReport) (*domain.RunReport, error) {
	tests, err := json.Marshal(report.Tests)
	if err != nil {
		return nil, storageError("failed to encode report", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		s.rebind("INSERT INTO run_reports (id, kind, created_at, finished_at, tests) VALUES (?, ?, ?, ?, ?)"),
		report.ID, report.Kind, formatTime(report.CreatedAt), formatTime(report.FinishedAt), string(tests),
	); err != nil {
		return nil, storageError("failed to insert report", err)
	}

	if s.keep > 0 {
		if err := s.prune(ctx, tx); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, storageError("failed to commit report", err)
	}
	return &report, nil
}

func (s *SQLStore) prune(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "SELECT id, kind, created_at, finished_at, tests FROM run_reports ORDER BY created_at DESC, id DESC")
	if err != nil {
		return storageError("failed to list reports", err)
	}
	all := []domain.RunReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return storageError("failed to read report", err)
		}
		all = append(all, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storageError("failed to list reports", err)
	}

	_, dropped := domain.PruneReports(all, s.keep)
	for _, r := range dropped {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM run_reports WHERE id = ?"), r.ID); err != nil {
			return storageError("failed to prune report "+r.ID, err)
		}
	}
	return nil
}

// GetReport implements ReportsRepo.
func (s *SQLStore) GetReport(ctx context.Context, id string) (*domain.RunReport, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT id, kind, created_at, finished_at, tests FROM run_reports WHERE id = ?"), id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("failed to read report", err)
	}
	return r, nil
}

// ListReports implements ReportsRepo.
func (s *SQLStore) ListReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT id, kind, created_at, finished_at, tests FROM run_reports ORDER BY created_at DESC, id DESC LIMIT ?"),
		limit,
	)
	if err != nil {
		return nil, storageError("failed to list reports", err)
	}
	defer rows.Close()

	out := []domain.RunReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, storageError("failed to read report", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to list reports", err)
	}
	return out, nil
}

// DeleteReport implements ReportsRepo.
func (s *SQLStore) DeleteReport(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM run_reports WHERE id = ?"), id)
	if err != nil {
		return false, storageError("failed to delete report", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("failed to delete report", err)
	}
	return n > 0, nil
}

func scanReport(row scanner) (*domain.RunReport, error) {
	var (
		r                     domain.RunReport
		createdAt, finishedAt string
		tests                 string
	)
	if err := row.Scan(&r.ID, &r.Kind, &createdAt, &finishedAt, &tests); err != nil {
		return nil, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at of report %s: %w", r.ID, err)
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("decode finished_at of report %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(tests), &r.Tests); err != nil {
		return nil, fmt.Errorf("decode tests of report %s: %w", r.ID, err)
	}
	return &r, nil
}
