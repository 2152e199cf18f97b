/*
Package sqlite provides a SQLite-backed implementation of the planning
storage interfaces.

PURPOSE:
  Implements planning.AssignmentStore and planning.Directory using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  planning.AssignmentStore: Assignment records
  planning.Directory:       Resources and sites (read side)

  SaveResource / SaveSite are the write side used by the collaborators that
  own those records (HR, fleet, site CRUD) and by the demo scenarios.

NO HARD DELETE:
  There are no DELETE statements on assignments outside Reset. Cancellation
  is an UPDATE of the status column.

KEY TABLES:
  resources:   Employees and equipment with optional rates
  sites:       Job sites
  assignments: Resource-to-site commitments over [start_date, end_date]

INDEXES:
  - idx_assignments_resource_window: Overlap queries (hot path)
  - idx_assignments_site:            Per-site listings and cost reports

STORAGE FORMATS:
  Days are stored as YYYY-MM-DD, so string comparison is date comparison.
  Decimals are stored as TEXT to keep exact values.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Per-resource serialization of the
  accept/commit path is done above this layer by planning.Planner.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/planner.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := planning.NewAssignmentService(store, store)

SEE ALSO:
  - planning/store.go: Interface definitions
  - planning/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements the planning storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Resources (owned by HR / fleet collaborators)
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('employee', 'equipment')),
		display_name TEXT NOT NULL,
		hourly_rate TEXT,
		daily_rate TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		equipment_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resources_kind
		ON resources(kind);

	-- Sites
	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT,
		created_at TEXT NOT NULL
	);

	-- Assignments (cancelled rows are retained)
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL REFERENCES resources(id),
		resource_kind TEXT NOT NULL,
		site_id TEXT NOT NULL REFERENCES sites(id),
		title TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		percent_of_capacity INTEGER NOT NULL CHECK (percent_of_capacity BETWEEN 1 AND 200),
		hours_per_day TEXT,
		status TEXT NOT NULL DEFAULT 'planned',
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (end_date >= start_date)
	);

	-- Overlap queries: resource_id = ? AND start_date <= ? AND end_date >= ?
	CREATE INDEX IF NOT EXISTS idx_assignments_resource_window
		ON assignments(resource_id, start_date, end_date);

	CREATE INDEX IF NOT EXISTS idx_assignments_site
		ON assignments(site_id, start_date);

	CREATE INDEX IF NOT EXISTS idx_assignments_status
		ON assignments(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Children first: assignments reference resources and sites.
	tables := []string{"assignments", "resources", "sites"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", ns.String, err)
	}
	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
