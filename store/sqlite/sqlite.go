/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the workflow.Store surface (input repositories, calculation
  upserts, snapshot and audit sinks) using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  calculation_snapshots and audit_log have no UPDATE or DELETE statements
  anywhere in this package. Corrections happen through rollback, which
  writes a new audit entry and overwrites only the calculation row.

KEY TABLES:
  drivers, driver_performance, monthly_budgets, incentive_settings,
  custom_formulas, driver_salary_history, conversion_rates: engine inputs
  incentive_calculations: one row per (driver_id, year, month), upserted
  calculation_snapshots:  immutable pre-mutation copies
  audit_log:              append-only action trail

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers don't
  block and crash recovery is cleaner.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.
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

	"github.com/fleetops/incentive-engine/incentive"
	"github.com/fleetops/incentive-engine/workflow"
)

var _ workflow.Store = (*Store)(nil)

// Store implements the workflow persistence interfaces using SQLite.
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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		driver_type TEXT NOT NULL,
		base_salary_usd TEXT NOT NULL,
		base_salary_zig TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_drivers_status ON drivers(status);

	CREATE TABLE IF NOT EXISTS driver_performance (
		driver_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		actual_km TEXT NOT NULL,
		fuel_efficiency TEXT,
		on_time_rate TEXT,
		customer_rating TEXT,
		safety_score TEXT,
		PRIMARY KEY (driver_id, year, month)
	);

	CREATE TABLE IF NOT EXISTS monthly_budgets (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		driver_type TEXT NOT NULL,
		budgeted_km TEXT NOT NULL,
		truck_count INTEGER NOT NULL,
		PRIMARY KEY (year, month, driver_type)
	);

	CREATE TABLE IF NOT EXISTS incentive_settings (
		setting_key TEXT NOT NULL,
		setting_value TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settings_key_active
		ON incentive_settings(setting_key, is_active);

	CREATE TABLE IF NOT EXISTS custom_formulas (
		name TEXT NOT NULL,
		formula_key TEXT NOT NULL,
		formula_expression TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS driver_salary_history (
		driver_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		base_salary_usd TEXT NOT NULL,
		base_salary_zig TEXT NOT NULL,
		PRIMARY KEY (driver_id, year, month)
	);

	CREATE TABLE IF NOT EXISTS conversion_rates (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		rate TEXT NOT NULL,
		PRIMARY KEY (year, month)
	);

	-- One row per (driver, year, month), upserted by the batch runner
	CREATE TABLE IF NOT EXISTS incentive_calculations (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		base_salary TEXT NOT NULL,
		km_incentive TEXT NOT NULL,
		performance_bonus TEXT NOT NULL,
		safety_bonus TEXT NOT NULL,
		deductions TEXT NOT NULL,
		total_incentive TEXT NOT NULL,
		total_earnings TEXT NOT NULL,
		details_json TEXT NOT NULL,
		status TEXT NOT NULL,
		approved_by TEXT,
		approved_date TEXT,
		paid_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(driver_id, year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_period
		ON incentive_calculations(year, month);
	CREATE INDEX IF NOT EXISTS idx_calculations_period_status
		ON incentive_calculations(year, month, status);

	-- Immutable pre-mutation copies (append-only)
	CREATE TABLE IF NOT EXISTS calculation_snapshots (
		id TEXT PRIMARY KEY,
		calculation_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		data_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_calculation
		ON calculation_snapshots(calculation_id, created_at DESC);

	-- Append-only action trail
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		calculation_id TEXT,
		snapshot_id TEXT,
		old_value TEXT,
		new_value TEXT,
		actor TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_calculation
		ON audit_log(calculation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INPUT WRITES - Roster and measurement glue for seeding and admin
// =============================================================================

func (s *Store) SaveDriver(ctx context.Context, d incentive.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drivers (id, name, driver_type, base_salary_usd, base_salary_zig, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_salary_usd = excluded.base_salary_usd,
			base_salary_zig = excluded.base_salary_zig,
			status = excluded.status`,
		d.ID, d.Name, d.Type, d.BaseSalaryUSD.String(), d.BaseSalaryZIG.String(), d.Status,
	)
	return err
}

func (s *Store) SavePerformance(ctx context.Context, p incentive.Performance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO driver_performance
			(driver_id, year, month, actual_km, fuel_efficiency, on_time_rate, customer_rating, safety_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(driver_id, year, month) DO UPDATE SET
			actual_km = excluded.actual_km,
			fuel_efficiency = excluded.fuel_efficiency,
			on_time_rate = excluded.on_time_rate,
			customer_rating = excluded.customer_rating,
			safety_score = excluded.safety_score`,
		p.DriverID, p.Year, p.Month, p.ActualKM.String(),
		nullDecimal(p.FuelEfficiency), nullDecimal(p.OnTimeRate),
		nullDecimal(p.CustomerRating), nullDecimal(p.SafetyScore),
	)
	return err
}

func (s *Store) SaveBudget(ctx context.Context, b incentive.MonthlyBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_budgets (year, month, driver_type, budgeted_km, truck_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(year, month, driver_type) DO UPDATE SET
			budgeted_km = excluded.budgeted_km,
			truck_count = excluded.truck_count`,
		b.Year, b.Month, b.DriverType, b.BudgetedKM.String(), b.TruckCount,
	)
	return err
}

func (s *Store) SaveSetting(ctx context.Context, row incentive.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incentive_settings (setting_key, setting_value, is_active, created_at)
		VALUES (?, ?, ?, ?)`,
		row.Key, row.Value, boolInt(row.Active), nowString(),
	)
	return err
}

func (s *Store) SaveFormula(ctx context.Context, f incentive.CustomFormula) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_formulas (name, formula_key, formula_expression, priority, is_active)
		VALUES (?, ?, ?, ?, ?)`,
		f.Name, f.Key, f.Expression, f.Priority, boolInt(f.Active),
	)
	return err
}

func (s *Store) SaveSalaryHistory(ctx context.Context, h incentive.SalaryHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO driver_salary_history (driver_id, year, month, base_salary_usd, base_salary_zig)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(driver_id, year, month) DO UPDATE SET
			base_salary_usd = excluded.base_salary_usd,
			base_salary_zig = excluded.base_salary_zig`,
		h.DriverID, h.Year, h.Month, h.BaseSalaryUSD.String(), h.BaseSalaryZIG.String(),
	)
	return err
}

func (s *Store) SaveConversionRate(ctx context.Context, r incentive.ConversionRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversion_rates (year, month, rate)
		VALUES (?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET rate = excluded.rate`,
		r.Year, r.Month, r.Rate.String(),
	)
	return err
}

// =============================================================================
// INPUT STORE - Read side
// =============================================================================

func (s *Store) ListDrivers(ctx context.Context) ([]incentive.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, driver_type, base_salary_usd, base_salary_zig, status
		FROM drivers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query drivers: %w", err)
	}
	defer rows.Close()

	var out []incentive.Driver
	for rows.Next() {
		var d incentive.Driver
		var usd, zig string
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &usd, &zig, &d.Status); err != nil {
			return nil, err
		}
		if d.BaseSalaryUSD, err = decimal.NewFromString(usd); err != nil {
			return nil, fmt.Errorf("driver %s: bad base_salary_usd: %w", d.ID, err)
		}
		if d.BaseSalaryZIG, err = decimal.NewFromString(zig); err != nil {
			return nil, fmt.Errorf("driver %s: bad base_salary_zig: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListPerformance(ctx context.Context, year, month int) ([]incentive.Performance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT driver_id, year, month, actual_km, fuel_efficiency, on_time_rate, customer_rating, safety_score
		FROM driver_performance WHERE year = ? AND month = ?`, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance: %w", err)
	}
	defer rows.Close()

	var out []incentive.Performance
	for rows.Next() {
		var p incentive.Performance
		var actual string
		var fuel, onTime, rating, safety sql.NullString
		if err := rows.Scan(&p.DriverID, &p.Year, &p.Month, &actual, &fuel, &onTime, &rating, &safety); err != nil {
			return nil, err
		}
		if p.ActualKM, err = decimal.NewFromString(actual); err != nil {
			return nil, fmt.Errorf("performance %s %d-%02d: bad actual_km: %w", p.DriverID, p.Year, p.Month, err)
		}
		p.FuelEfficiency = scanDecimal(fuel)
		p.OnTimeRate = scanDecimal(onTime)
		p.CustomerRating = scanDecimal(rating)
		p.SafetyScore = scanDecimal(safety)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListBudgets(ctx context.Context, year, month int) ([]incentive.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, driver_type, budgeted_km, truck_count
		FROM monthly_budgets WHERE year = ? AND month = ?`, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var out []incentive.MonthlyBudget
	for rows.Next() {
		var b incentive.MonthlyBudget
		var km string
		if err := rows.Scan(&b.Year, &b.Month, &b.DriverType, &km, &b.TruckCount); err != nil {
			return nil, err
		}
		if b.BudgetedKM, err = decimal.NewFromString(km); err != nil {
			return nil, fmt.Errorf("budget %d-%02d %s: bad budgeted_km: %w", b.Year, b.Month, b.DriverType, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) ListSettings(ctx context.Context) ([]incentive.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT setting_key, setting_value, is_active FROM incentive_settings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	var out []incentive.Setting
	for rows.Next() {
		var row incentive.Setting
		var active int
		if err := rows.Scan(&row.Key, &row.Value, &active); err != nil {
			return nil, err
		}
		row.Active = active != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) ListFormulas(ctx context.Context) ([]incentive.CustomFormula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, formula_key, COALESCE(formula_expression, ''), priority, is_active
		FROM custom_formulas ORDER BY priority DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query formulas: %w", err)
	}
	defer rows.Close()

	var out []incentive.CustomFormula
	for rows.Next() {
		var f incentive.CustomFormula
		var active int
		if err := rows.Scan(&f.Name, &f.Key, &f.Expression, &f.Priority, &active); err != nil {
			return nil, err
		}
		f.Active = active != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) ListSalaryHistory(ctx context.Context) ([]incentive.SalaryHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT driver_id, year, month, base_salary_usd, base_salary_zig
		FROM driver_salary_history ORDER BY driver_id, year, month`)
	if err != nil {
		return nil, fmt.Errorf("failed to query salary history: %w", err)
	}
	defer rows.Close()

	var out []incentive.SalaryHistory
	for rows.Next() {
		var h incentive.SalaryHistory
		var usd, zig string
		if err := rows.Scan(&h.DriverID, &h.Year, &h.Month, &usd, &zig); err != nil {
			return nil, err
		}
		if h.BaseSalaryUSD, err = decimal.NewFromString(usd); err != nil {
			return nil, err
		}
		if h.BaseSalaryZIG, err = decimal.NewFromString(zig); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) ListConversionRates(ctx context.Context) ([]incentive.ConversionRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, rate FROM conversion_rates ORDER BY year, month`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion rates: %w", err)
	}
	defer rows.Close()

	var out []incentive.ConversionRate
	for rows.Next() {
		var r incentive.ConversionRate
		var rate string
		if err := rows.Scan(&r.Year, &r.Month, &rate); err != nil {
			return nil, err
		}
		if r.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nowString() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDecimal(v sql.NullString) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil
	}
	return &d
}
