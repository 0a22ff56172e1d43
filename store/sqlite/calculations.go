/*
calculations.go - Calculation rows, snapshots, and the audit trail

The incentive_calculations table is the single output repository: upserts
key on (driver_id, year, month) so recalculating a period updates in place.
Snapshots and audit entries are insert-only.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/incentive-engine/incentive"
)

const calcColumns = `id, driver_id, year, month, base_salary, km_incentive,
	performance_bonus, safety_bonus, deductions, total_incentive, total_earnings,
	details_json, status, approved_by, approved_date, paid_date, created_at, updated_at`

// =============================================================================
// CALCULATION STORE
// =============================================================================

func (s *Store) GetCalculation(ctx context.Context, id incentive.CalculationID) (*incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+calcColumns+` FROM incentive_calculations WHERE id = ?`, id)
	return scanCalculation(row)
}

func (s *Store) GetCalculationByKey(ctx context.Context, driverID incentive.DriverID, year, month int) (*incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+calcColumns+` FROM incentive_calculations WHERE driver_id = ? AND year = ? AND month = ?`,
		driverID, year, month)
	return scanCalculation(row)
}

func (s *Store) ListCalculations(ctx context.Context, year, month int) ([]incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCalculations(ctx,
		`SELECT `+calcColumns+` FROM incentive_calculations WHERE year = ? AND month = ? ORDER BY driver_id`,
		year, month)
}

func (s *Store) ListCalculationsByStatus(ctx context.Context, year, month int, status incentive.Status) ([]incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCalculations(ctx,
		`SELECT `+calcColumns+` FROM incentive_calculations
		 WHERE year = ? AND month = ? AND status = ? ORDER BY driver_id`,
		year, month, status)
}

// UpsertCalculation inserts or updates by the (driver_id, year, month)
// unique key. The stored id survives an update so snapshots and audit
// entries keep pointing at the same record.
func (s *Store) UpsertCalculation(ctx context.Context, calc *incentive.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incentive_calculations (`+calcColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(driver_id, year, month) DO UPDATE SET
			base_salary = excluded.base_salary,
			km_incentive = excluded.km_incentive,
			performance_bonus = excluded.performance_bonus,
			safety_bonus = excluded.safety_bonus,
			deductions = excluded.deductions,
			total_incentive = excluded.total_incentive,
			total_earnings = excluded.total_earnings,
			details_json = excluded.details_json,
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_date = excluded.approved_date,
			paid_date = excluded.paid_date,
			updated_at = excluded.updated_at`,
		calcArgs(calc)...,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert calculation: %w", err)
	}

	// The insert may have collapsed onto an existing row; reflect its id.
	var id incentive.CalculationID
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM incentive_calculations WHERE driver_id = ? AND year = ? AND month = ?`,
		calc.DriverID, calc.Year, calc.Month,
	).Scan(&id)
	if err != nil {
		return err
	}
	calc.ID = id
	return nil
}

func (s *Store) UpdateCalculation(ctx context.Context, calc *incentive.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE incentive_calculations SET
			base_salary = ?, km_incentive = ?, performance_bonus = ?, safety_bonus = ?,
			deductions = ?, total_incentive = ?, total_earnings = ?, details_json = ?,
			status = ?, approved_by = ?, approved_date = ?, paid_date = ?, updated_at = ?
		WHERE id = ?`,
		calc.BaseSalary.String(), calc.KMIncentive.String(), calc.PerformanceBonus.String(),
		calc.SafetyBonus.String(), calc.Deductions.String(), calc.TotalIncentive.String(),
		calc.TotalEarnings.String(), marshalDetails(calc.Details),
		calc.Status, calc.ApprovedBy, nullTime(calc.ApprovedDate), nullTime(calc.PaidDate),
		calc.UpdatedAt.UTC().Format(time.RFC3339Nano),
		calc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update calculation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return incentive.ErrCalculationNotFound
	}
	return nil
}

// =============================================================================
// SNAPSHOT STORE - Insert-only
// =============================================================================

func (s *Store) AppendSnapshot(ctx context.Context, snap incentive.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculation_snapshots (id, calculation_id, reason, data_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.CalculationID, snap.Reason, string(data),
		snap.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context, id incentive.CalculationID) (*incentive.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, calculation_id, reason, data_json, created_at
		FROM calculation_snapshots
		WHERE calculation_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, id)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

func (s *Store) ListSnapshots(ctx context.Context, id incentive.CalculationID) ([]incentive.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calculation_id, reason, data_json, created_at
		FROM calculation_snapshots
		WHERE calculation_id = ?
		ORDER BY created_at ASC, rowid ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []incentive.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT STORE - Insert-only
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry incentive.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, calculation_id, snapshot_id, old_value, new_value, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, string(entry.CalculationID), entry.SnapshotID,
		nullBytes(entry.OldValue), nullBytes(entry.NewValue), entry.Actor,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, id incentive.CalculationID) ([]incentive.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, action, COALESCE(calculation_id, ''), COALESCE(snapshot_id, ''),
		       old_value, new_value, COALESCE(actor, ''), created_at
		FROM audit_log`
	args := []any{}
	if id != "" {
		query += ` WHERE calculation_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []incentive.AuditEntry
	for rows.Next() {
		var e incentive.AuditEntry
		var calcID, createdAt string
		var oldValue, newValue sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &calcID, &e.SnapshotID, &oldValue, &newValue, &e.Actor, &createdAt); err != nil {
			return nil, err
		}
		e.CalculationID = incentive.CalculationID(calcID)
		if oldValue.Valid {
			e.OldValue = []byte(oldValue.String)
		}
		if newValue.Valid {
			e.NewValue = []byte(newValue.String)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) queryCalculations(ctx context.Context, query string, args ...any) ([]incentive.Calculation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var out []incentive.Calculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *calc)
	}
	return out, rows.Err()
}

func scanCalculation(row rowScanner) (*incentive.Calculation, error) {
	var calc incentive.Calculation
	var baseSalary, kmIncentive, perfBonus, safetyBonus, deductions, totalIncentive, totalEarnings string
	var detailsJSON, createdAt, updatedAt string
	var approvedBy, approvedDate, paidDate sql.NullString

	err := row.Scan(
		&calc.ID, &calc.DriverID, &calc.Year, &calc.Month,
		&baseSalary, &kmIncentive, &perfBonus, &safetyBonus, &deductions,
		&totalIncentive, &totalEarnings, &detailsJSON, &calc.Status,
		&approvedBy, &approvedDate, &paidDate, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&calc.BaseSalary, baseSalary},
		{&calc.KMIncentive, kmIncentive},
		{&calc.PerformanceBonus, perfBonus},
		{&calc.SafetyBonus, safetyBonus},
		{&calc.Deductions, deductions},
		{&calc.TotalIncentive, totalIncentive},
		{&calc.TotalEarnings, totalEarnings},
	} {
		if *field.dst, err = decimal.NewFromString(field.src); err != nil {
			return nil, fmt.Errorf("calculation %s: bad decimal column: %w", calc.ID, err)
		}
	}

	if err := json.Unmarshal([]byte(detailsJSON), &calc.Details); err != nil {
		return nil, fmt.Errorf("calculation %s: bad details payload: %w", calc.ID, err)
	}

	if approvedBy.Valid {
		calc.ApprovedBy = &approvedBy.String
	}
	if calc.ApprovedDate, err = scanTime(approvedDate); err != nil {
		return nil, err
	}
	if calc.PaidDate, err = scanTime(paidDate); err != nil {
		return nil, err
	}
	if calc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if calc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &calc, nil
}

func scanSnapshot(row rowScanner) (*incentive.Snapshot, error) {
	var snap incentive.Snapshot
	var dataJSON, createdAt string
	if err := row.Scan(&snap.ID, &snap.CalculationID, &snap.Reason, &dataJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
		return nil, fmt.Errorf("snapshot %s: bad data payload: %w", snap.ID, err)
	}
	var err error
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	return &snap, nil
}

func calcArgs(calc *incentive.Calculation) []any {
	return []any{
		calc.ID, calc.DriverID, calc.Year, calc.Month,
		calc.BaseSalary.String(), calc.KMIncentive.String(), calc.PerformanceBonus.String(),
		calc.SafetyBonus.String(), calc.Deductions.String(), calc.TotalIncentive.String(),
		calc.TotalEarnings.String(), marshalDetails(calc.Details), calc.Status,
		calc.ApprovedBy, nullTime(calc.ApprovedDate), nullTime(calc.PaidDate),
		calc.CreatedAt.UTC().Format(time.RFC3339Nano), calc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func marshalDetails(d incentive.Details) string {
	b, _ := json.Marshal(d)
	return string(b)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func scanTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
