// Package state keeps the history of applied software selections in a SQLite
// database.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SelectionRecord is one selection that passed the dependency check.
type SelectionRecord struct {
	AppliedAt   time.Time
	Environment string
	TxID        string
	Source      string
	Groups      []string
	ID          int64
}

// Store manages the SQLite database of applied selections.
type Store struct {
	db     *sql.DB
	source string
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode, the check task writes while the UI reads
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close() //nolint:errcheck,gosec // best-effort cleanup on error path
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close() //nolint:errcheck,gosec // best-effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// WithSource tags every saved selection with the installation source name.
func (s *Store) WithSource(name string) *Store {
	s.source = name
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, environment, group_ids, tx_id, source, applied_at FROM applied_selections`

type scanner interface {
	Scan(dest ...any) error
}

func scanSelection(row scanner) (SelectionRecord, error) {
	var (
		r         SelectionRecord
		groups    string
		appliedAt string
	)

	if err := row.Scan(&r.ID, &r.Environment, &groups, &r.TxID, &r.Source, &appliedAt); err != nil {
		return r, err
	}

	r.Groups = splitGroups(groups)

	var err error
	r.AppliedAt, err = parseTime(appliedAt)
	if err != nil {
		return r, fmt.Errorf("parsing applied_at: %w", err)
	}

	return r, nil
}

func joinGroups(groups []string) string {
	return strings.Join(groups, "\n")
}

func splitGroups(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}

// SaveSelection stores a selection validated under transaction txID.
func (s *Store) SaveSelection(environment string, groups []string, txID string) error {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applied_selections (environment, group_ids, tx_id, source)
		VALUES (?, ?, ?, ?)
	`, environment, joinGroups(groups), txID, s.source)
	if err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}

	return nil
}

// LatestSelection returns the most recent applied selection.
// Returns nil if none was recorded.
func (s *Store) LatestSelection() (*SelectionRecord, error) {
	row := s.db.QueryRowContext(context.Background(), selectColumns+`
		ORDER BY id DESC
		LIMIT 1
	`)

	r, err := scanSelection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil means "not found", distinct from error
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest selection: %w", err)
	}

	return &r, nil
}

// SelectionByID returns a specific selection record by ID.
// Returns nil if it does not exist.
func (s *Store) SelectionByID(id int64) (*SelectionRecord, error) {
	row := s.db.QueryRowContext(context.Background(), selectColumns+`
		WHERE id = ?
	`, id)

	r, err := scanSelection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil means "not found", distinct from error
	}
	if err != nil {
		return nil, fmt.Errorf("querying selection by ID: %w", err)
	}

	return &r, nil
}

// History returns the N most recent applied selections, newest first.
func (s *Store) History(limit int) ([]SelectionRecord, error) {
	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying selection history: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck,gosec // defer close is best-effort

	var records []SelectionRecord
	for rows.Next() {
		r, err := scanSelection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning selection record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Prune keeps only the N most recent selections, deleting older ones.
func (s *Store) Prune(keepN int) error {
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM applied_selections
		WHERE id NOT IN (
			SELECT id FROM applied_selections
			ORDER BY id DESC
			LIMIT ?
		)
	`, keepN)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}

	return nil
}

// migrate runs schema migrations.
func (s *Store) migrate() error {
	currentVersion := s.getSchemaVersion()

	migrations := []func(*sql.Tx) error{
		migrateV1,
	}

	ctx := context.Background()
	for i := currentVersion; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}

		if err := migrations[i](tx); err != nil {
			_ = tx.Rollback() //nolint:errcheck,gosec // rollback best-effort on migration failure
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
			_ = tx.Rollback() //nolint:errcheck,gosec // rollback best-effort
			return fmt.Errorf("updating schema version: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback() //nolint:errcheck,gosec // rollback best-effort
			return fmt.Errorf("inserting schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version, or 0 on a fresh database.
func (s *Store) getSchemaVersion() int {
	ctx := context.Background()
	var tableName string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&tableName)
	if err != nil {
		return 0
	}

	var version int
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return 0
	}

	return version
}

// parseTime parses a timestamp string from SQLite, trying multiple formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

// migrateV1 creates the initial schema.
func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS applied_selections (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			environment  TEXT NOT NULL,
			group_ids    TEXT NOT NULL,
			tx_id        TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			applied_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applied_selections_env
			ON applied_selections(environment, id DESC)`,
	}

	ctx := context.Background()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	return nil
}
