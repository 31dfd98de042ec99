/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements inventory.TxStore and inventory.SweepLog over the tables the
  construction platform already uses for resources, allocations and task
  resources.

INTERFACES IMPLEMENTED:
  inventory.Store:    Resources, allocations, task assignments
  inventory.TxStore:  Atomic multi-step writes
  inventory.SweepLog: Expiry sweep history

KEY TABLES:
  resources:            Ledger entries (versioned for compare-and-set)
  resource_allocations: Project claims against resources
  task_resources:       Task draws on project allocations
  expiry_runs:          One row per automatic expiry sweep

  Deleting a resource cascades to its allocations and task resources.

DECIMALS:
  Quantities, costs, rates and durations are stored as TEXT and read back
  through decimal.Decimal, so values round-trip exactly.

TIMESTAMPS:
  Stored as fixed-width UTC text, which keeps lexical order equal to time
  order for the created_at < cutoff comparison in ListExpirable.

CONCURRENCY:
  The pool is capped at one connection. Writers queue on it instead of
  failing with SQLITE_BUSY, and ":memory:" databases stay a single database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/edifice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := inventory.NewEngine(store, nil)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/edifice/resource-engine/inventory"
)

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ dbtx = (*sql.DB)(nil)
	_ dbtx = (*sql.Tx)(nil)

	_ inventory.TxStore  = (*Store)(nil)
	_ inventory.SweepLog = (*Store)(nil)
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// queries holds every statement of inventory.Store. Outside a transaction it
// runs on the pool; inside WithTx it runs on the *sql.Tx.
type queries struct {
	q dbtx
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{q: db}, db: db}
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		cost TEXT NOT NULL,
		status TEXT NOT NULL,
		returnable BOOLEAN NOT NULL DEFAULT FALSE,
		hour_rate TEXT,
		day_rate TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resources_name
		ON resources(name);

	CREATE TABLE IF NOT EXISTS resource_allocations (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		project_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		days TEXT,
		hours TEXT,
		consumed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_resource
		ON resource_allocations(resource_id, consumed);
	CREATE INDEX IF NOT EXISTS idx_allocations_project
		ON resource_allocations(project_id);

	-- Expiry sweep scans active allocations by age
	CREATE INDEX IF NOT EXISTS idx_allocations_active_created
		ON resource_allocations(created_at) WHERE consumed = FALSE;

	CREATE TABLE IF NOT EXISTS task_resources (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		quantity TEXT NOT NULL,
		days TEXT,
		hours TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_resources_task
		ON task_resources(task_id);

	CREATE TABLE IF NOT EXISTS expiry_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'running',
		cutoff TEXT NOT NULL,
		scanned INTEGER DEFAULT 0,
		expired INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_expiry_runs_started
		ON expiry_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (inventory.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// RESOURCES
// =============================================================================

const resourceColumns = `id, name, type, quantity, unit, cost, status, returnable,
	hour_rate, day_rate, version, created_at, updated_at`

func (s *queries) CreateResource(ctx context.Context, r inventory.Resource) error {
	if r.Version == 0 {
		r.Version = 1
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Category, r.Quantity, r.Unit, r.Cost, r.Status, r.Returnable,
		r.HourRate, r.DayRate, r.Version, formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}
	return nil
}

func (s *queries) GetResource(ctx context.Context, id inventory.ResourceID) (inventory.Resource, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Resource{}, fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, id)
	}
	return r, err
}

func (s *queries) ListResources(ctx context.Context) ([]inventory.Resource, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var out []inventory.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateResource writes r if the stored version still equals r.Version.
func (s *queries) UpdateResource(ctx context.Context, r inventory.Resource) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE resources
		SET name = ?, type = ?, quantity = ?, unit = ?, cost = ?, status = ?, returnable = ?,
			hour_rate = ?, day_rate = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		r.Name, r.Category, r.Quantity, r.Unit, r.Cost, r.Status, r.Returnable,
		r.HourRate, r.DayRate, formatTime(r.UpdatedAt),
		r.ID, r.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var version int64
	err = s.q.QueryRowContext(ctx, `SELECT version FROM resources WHERE id = ?`, r.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, r.ID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: resource %s at version %d, write based on %d",
		inventory.ErrConcurrentModification, r.ID, version, r.Version)
}

func (s *queries) DeleteResource(ctx context.Context, id inventory.ResourceID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	return expectRow(res, fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, id))
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

const allocationColumns = `id, resource_id, project_id, quantity, days, hours, consumed, created_at`

func (s *queries) CreateAllocation(ctx context.Context, a inventory.Allocation) error {
	days, hours := a.Duration.Columns()
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO resource_allocations (`+allocationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ResourceID, a.ProjectID, a.Quantity, days, hours, a.Consumed, formatTime(a.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, a.ResourceID)
		}
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	return nil
}

func (s *queries) GetAllocation(ctx context.Context, id inventory.AllocationID) (inventory.Allocation, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+allocationColumns+` FROM resource_allocations WHERE id = ?`, id)
	a, err := scanAllocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.Allocation{}, fmt.Errorf("%w: %s", inventory.ErrAllocationNotFound, id)
	}
	return a, err
}

func (s *queries) ListAllocationsByResource(ctx context.Context, id inventory.ResourceID) ([]inventory.Allocation, error) {
	return s.queryAllocations(ctx, `SELECT `+allocationColumns+` FROM resource_allocations
		WHERE resource_id = ? ORDER BY created_at, id`, id)
}

func (s *queries) ListAllocationsByProject(ctx context.Context, id inventory.ProjectID) ([]inventory.Allocation, error) {
	return s.queryAllocations(ctx, `SELECT `+allocationColumns+` FROM resource_allocations
		WHERE project_id = ? ORDER BY created_at, id`, id)
}

func (s *queries) ListAllocations(ctx context.Context) ([]inventory.Allocation, error) {
	return s.queryAllocations(ctx, `SELECT `+allocationColumns+` FROM resource_allocations
		ORDER BY created_at, id`)
}

func (s *queries) ListExpirable(ctx context.Context, before time.Time) ([]inventory.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT a.id, a.resource_id, a.project_id, a.quantity, a.days, a.hours, a.consumed, a.created_at
		FROM resource_allocations a
		JOIN resources r ON r.id = a.resource_id
		WHERE r.returnable = TRUE AND a.consumed = FALSE AND a.created_at < ?
		ORDER BY a.created_at, a.id`, formatTime(before))
}

// MarkConsumed flips an active allocation to consumed. The WHERE clause makes
// a repeated call a no-op.
func (s *queries) MarkConsumed(ctx context.Context, id inventory.AllocationID) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE resource_allocations SET consumed = TRUE WHERE id = ? AND consumed = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark allocation consumed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := s.GetAllocation(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *queries) DeleteAllocation(ctx context.Context, id inventory.AllocationID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM resource_allocations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}
	return expectRow(res, fmt.Errorf("%w: %s", inventory.ErrAllocationNotFound, id))
}

func (s *queries) DeleteAllocationsByResource(ctx context.Context, id inventory.ResourceID) (int, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM resource_allocations WHERE resource_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete allocations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *queries) queryAllocations(ctx context.Context, query string, args ...any) ([]inventory.Allocation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var out []inventory.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// TASK RESOURCES
// =============================================================================

func (s *queries) CreateAssignment(ctx context.Context, a inventory.TaskAssignment) error {
	days, hours := a.Duration.Columns()
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO task_resources (id, task_id, resource_id, quantity, days, hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.ResourceID, a.Quantity, days, hours, formatTime(a.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: %s", inventory.ErrResourceNotFound, a.ResourceID)
		}
		return fmt.Errorf("failed to insert task resource: %w", err)
	}
	return nil
}

func (s *queries) ListAssignmentsByTask(ctx context.Context, id inventory.TaskID) ([]inventory.TaskAssignment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, task_id, resource_id, quantity, days, hours, created_at
		FROM task_resources WHERE task_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query task resources: %w", err)
	}
	defer rows.Close()

	var out []inventory.TaskAssignment
	for rows.Next() {
		var (
			a           inventory.TaskAssignment
			days, hours decimal.NullDecimal
			createdAt   string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.ResourceID, &a.Quantity, &days, &hours, &createdAt); err != nil {
			return nil, err
		}
		a.Duration = inventory.DurationFromColumns(days, hours)
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *queries) DeleteAssignment(ctx context.Context, id inventory.AssignmentID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM task_resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task resource: %w", err)
	}
	return expectRow(res, fmt.Errorf("%w: %s", inventory.ErrAssignmentNotFound, id))
}

func (s *queries) DeleteAssignmentsByResource(ctx context.Context, id inventory.ResourceID) (int, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM task_resources WHERE resource_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete task resources: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// EXPIRY RUNS (inventory.SweepLog interface)
// =============================================================================

// SaveSweepRun inserts or updates a sweep run.
func (s *Store) SaveSweepRun(ctx context.Context, r inventory.SweepRun) error {
	var completedAt *string
	if r.CompletedAt != nil {
		c := formatTime(*r.CompletedAt)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expiry_runs (id, status, cutoff, scanned, expired, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			scanned = excluded.scanned,
			expired = excluded.expired,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		r.ID, r.Status, formatTime(r.Cutoff), r.Scanned, r.Expired, nullString(r.Error),
		formatTime(r.StartedAt), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save expiry run: %w", err)
	}
	return nil
}

// ListSweepRuns returns the newest runs first. limit <= 0 returns all.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]inventory.SweepRun, error) {
	query := `
		SELECT id, status, cutoff, scanned, expired, error, started_at, completed_at
		FROM expiry_runs
		ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiry runs: %w", err)
	}
	defer rows.Close()

	var runs []inventory.SweepRun
	for rows.Next() {
		var (
			r                    inventory.SweepRun
			cutoff, startedAt    string
			errText, completedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Status, &cutoff, &r.Scanned, &r.Expired, &errText, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Cutoff = parseTime(cutoff)
		r.StartedAt = parseTime(startedAt)
		r.Error = errText.String
		if completedAt.Valid {
			t := parseTime(completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"task_resources", "resource_allocations", "resources", "expiry_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (inventory.Resource, error) {
	var (
		r                    inventory.Resource
		createdAt, updatedAt string
	)
	err := row.Scan(
		&r.ID, &r.Name, &r.Category, &r.Quantity, &r.Unit, &r.Cost, &r.Status, &r.Returnable,
		&r.HourRate, &r.DayRate, &r.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return inventory.Resource{}, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

func scanAllocation(row rowScanner) (inventory.Allocation, error) {
	var (
		a           inventory.Allocation
		days, hours decimal.NullDecimal
		createdAt   string
	)
	if err := row.Scan(&a.ID, &a.ResourceID, &a.ProjectID, &a.Quantity, &days, &hours, &a.Consumed, &createdAt); err != nil {
		return inventory.Allocation{}, err
	}
	a.Duration = inventory.DurationFromColumns(days, hours)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
