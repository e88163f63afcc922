/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements leave.Store and leave.UsageSource using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  leave.EmployeeStore: Roster reads plus the engine-owned columns
  leave.LotStore:      Append-only lot ledger with in-place remaining
  leave.UsageSource:   Approved leave-days aggregate per window

KEY TABLES:
  employees:   Roster with the denormalized balance cache
  grant_lots:  The grant-lot ledger. Rows are inserted once and only
               remaining_days is ever updated; rowid order is the
               insertion order the engine relies on for FIFO tie-breaks.
  leave_usage: Approved leave records feeding the attendance gate

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. The engine
  also serializes per-employee mutations with its own keyed lock, so
  the mutex here only guards connection-level races.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := leave.NewLedger(store, notifier, leave.DefaultConfig())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store and leave.UsageSource using SQLite.
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Roster. remaining_days is the denormalized balance cache; the
	-- grant_lots table is authoritative.
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		weekly_work_days INTEGER NOT NULL DEFAULT 5,
		initial_grant_date TEXT,
		latest_annual_grant_date TEXT,
		remaining_days TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Grant-lot ledger (append-only; only remaining_days is updated)
	CREATE TABLE IF NOT EXISTS grant_lots (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		grant_date TEXT NOT NULL,
		granted_days TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		remaining_days TEXT NOT NULL,
		grant_type TEXT NOT NULL,
		tenure_at_grant REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grant_lots_employee
		ON grant_lots(employee_id);

	-- Sweeper hot path: expired lots with days still on them
	CREATE INDEX IF NOT EXISTS idx_grant_lots_expiry
		ON grant_lots(expiry_date);

	-- Approved leave records (attendance gate input)
	CREATE TABLE IF NOT EXISTS leave_usage (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		used_on TEXT NOT NULL,
		days TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'approved',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_usage_employee_date
		ON leave_usage(employee_id, used_on);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE (leave.EmployeeStore interface)
// =============================================================================

// GetEmployee returns nil, nil when the employee is not in the roster.
func (s *Store) GetEmployee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, hire_date, weekly_work_days,
		       initial_grant_date, latest_annual_grant_date,
		       remaining_days, created_at
		FROM employees
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return &emp, nil
}

// ListEmployees returns the roster ordered by creation, oldest first.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, hire_date, weekly_work_days,
		       initial_grant_date, latest_annual_grant_date,
		       remaining_days, created_at
		FROM employees
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// SaveEmployee inserts or replaces a roster row.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO employees
		(id, name, hire_date, weekly_work_days, initial_grant_date,
		 latest_annual_grant_date, remaining_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hire_date = excluded.hire_date,
			weekly_work_days = excluded.weekly_work_days,
			initial_grant_date = excluded.initial_grant_date,
			latest_annual_grant_date = excluded.latest_annual_grant_date
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID,
		emp.Name,
		emp.HireDate.String(),
		emp.WeeklyWorkDays,
		nullDate(emp.InitialGrantDate),
		nullDate(emp.LatestAnnualGrantDate),
		emp.Balance.Value.String(),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// SetBalance writes the denormalized balance cache.
func (s *Store) SetBalance(ctx context.Context, id leave.EmployeeID, balance leave.Days) error {
	return s.updateEmployee(ctx, id,
		"UPDATE employees SET remaining_days = ? WHERE id = ?",
		balance.Value.String())
}

// SetInitialGrantDate records the one-time initial grant date.
func (s *Store) SetInitialGrantDate(ctx context.Context, id leave.EmployeeID, d leave.Date) error {
	return s.updateEmployee(ctx, id,
		"UPDATE employees SET initial_grant_date = ? WHERE id = ?",
		d.String())
}

// SetAnnualGrantDate records the latest annual grant date.
func (s *Store) SetAnnualGrantDate(ctx context.Context, id leave.EmployeeID, d leave.Date) error {
	return s.updateEmployee(ctx, id,
		"UPDATE employees SET latest_annual_grant_date = ? WHERE id = ?",
		d.String())
}

func (s *Store) updateEmployee(ctx context.Context, id leave.EmployeeID, query string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if affected == 0 {
		return &leave.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return nil
}

// =============================================================================
// LOT STORE (leave.LotStore interface)
// =============================================================================

// AppendLot persists a new lot. The ledger never deletes lots.
func (s *Store) AppendLot(ctx context.Context, lot leave.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := lot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO grant_lots
		(id, employee_id, grant_date, granted_days, expiry_date,
		 remaining_days, grant_type, tenure_at_grant, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		lot.ID,
		lot.EmployeeID,
		lot.GrantDate.String(),
		lot.GrantedDays.Value.String(),
		lot.ExpiryDate.String(),
		lot.RemainingDays.Value.String(),
		string(lot.Type),
		lot.TenureAtGrant,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append lot: %w", err)
	}
	return nil
}

// LotsByEmployee returns lots in insertion order (rowid).
func (s *Store) LotsByEmployee(ctx context.Context, id leave.EmployeeID) ([]leave.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, grant_date, granted_days, expiry_date,
		       remaining_days, grant_type, tenure_at_grant, created_at
		FROM grant_lots
		WHERE employee_id = ?
		ORDER BY rowid ASC
	`

	return s.queryLots(ctx, query, id)
}

// AllLots returns every lot in the ledger in insertion order.
func (s *Store) AllLots(ctx context.Context) ([]leave.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, grant_date, granted_days, expiry_date,
		       remaining_days, grant_type, tenure_at_grant, created_at
		FROM grant_lots
		ORDER BY rowid ASC
	`

	return s.queryLots(ctx, query)
}

// SetRemaining updates one lot's remaining days in place.
func (s *Store) SetRemaining(ctx context.Context, lotID string, remaining leave.Days) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE grant_lots SET remaining_days = ? WHERE id = ?",
		remaining.Value.String(), lotID)
	if err != nil {
		return fmt.Errorf("failed to update lot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update lot: %w", err)
	}
	if affected == 0 {
		return &leave.NotFoundError{Kind: "lot", ID: lotID}
	}
	return nil
}

func (s *Store) queryLots(ctx context.Context, query string, args ...any) ([]leave.Lot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []leave.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// =============================================================================
// USAGE SOURCE (leave.UsageSource interface)
// =============================================================================

// ApprovedLeaveDays sums approved leave records inside the window,
// endpoints inclusive.
func (s *Store) ApprovedLeaveDays(ctx context.Context, id leave.EmployeeID, from, to leave.Date) (leave.Days, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COALESCE(days, '0')
		FROM leave_usage
		WHERE employee_id = ? AND status = 'approved'
		  AND used_on >= ? AND used_on <= ?
	`

	rows, err := s.db.QueryContext(ctx, query, id, from.String(), to.String())
	if err != nil {
		return leave.ZeroDays(), fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	total := leave.ZeroDays()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return leave.ZeroDays(), fmt.Errorf("failed to scan usage: %w", err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return leave.ZeroDays(), fmt.Errorf("invalid usage days %q: %w", raw, err)
		}
		total = total.Add(leave.Days{Value: d})
	}
	return total, rows.Err()
}

// AddUsage records one approved leave span.
func (s *Store) AddUsage(ctx context.Context, id string, employeeID leave.EmployeeID, usedOn leave.Date, days leave.Days, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_usage (id, employee_id, used_on, days, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		id, employeeID, usedOn.String(), days.Value.String(), status,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (leave.Employee, error) {
	var (
		emp       leave.Employee
		hireDate  string
		initial   sql.NullString
		annual    sql.NullString
		remaining string
		createdAt string
	)

	err := row.Scan(&emp.ID, &emp.Name, &hireDate, &emp.WeeklyWorkDays,
		&initial, &annual, &remaining, &createdAt)
	if err != nil {
		return leave.Employee{}, err
	}

	if emp.HireDate, err = leave.ParseDate(hireDate); err != nil {
		return leave.Employee{}, fmt.Errorf("invalid hire_date %q: %w", hireDate, err)
	}
	if emp.InitialGrantDate, err = parseNullDate(initial); err != nil {
		return leave.Employee{}, fmt.Errorf("invalid initial_grant_date: %w", err)
	}
	if emp.LatestAnnualGrantDate, err = parseNullDate(annual); err != nil {
		return leave.Employee{}, fmt.Errorf("invalid latest_annual_grant_date: %w", err)
	}

	bal, err := decimal.NewFromString(remaining)
	if err != nil {
		return leave.Employee{}, fmt.Errorf("invalid remaining_days %q: %w", remaining, err)
	}
	emp.Balance = leave.Days{Value: bal}

	if emp.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return leave.Employee{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	return emp, nil
}

func scanLot(row rowScanner) (leave.Lot, error) {
	var (
		lot       leave.Lot
		grantDate string
		granted   string
		expiry    string
		remaining string
		grantType string
		createdAt string
	)

	err := row.Scan(&lot.ID, &lot.EmployeeID, &grantDate, &granted,
		&expiry, &remaining, &grantType, &lot.TenureAtGrant, &createdAt)
	if err != nil {
		return leave.Lot{}, err
	}

	if lot.GrantDate, err = leave.ParseDate(grantDate); err != nil {
		return leave.Lot{}, fmt.Errorf("invalid grant_date %q: %w", grantDate, err)
	}
	if lot.ExpiryDate, err = leave.ParseDate(expiry); err != nil {
		return leave.Lot{}, fmt.Errorf("invalid expiry_date %q: %w", expiry, err)
	}

	g, err := decimal.NewFromString(granted)
	if err != nil {
		return leave.Lot{}, fmt.Errorf("invalid granted_days %q: %w", granted, err)
	}
	r, err := decimal.NewFromString(remaining)
	if err != nil {
		return leave.Lot{}, fmt.Errorf("invalid remaining_days %q: %w", remaining, err)
	}
	lot.GrantedDays = leave.Days{Value: g}
	lot.RemainingDays = leave.Days{Value: r}
	lot.Type = leave.GrantType(grantType)

	if lot.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return leave.Lot{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	return lot, nil
}

func nullDate(d *leave.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDate(s sql.NullString) (*leave.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := leave.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
