// Package memory provides an in-memory Store implementation (for testing/dev).
package memory

import (
	"context"
	"sync"

	"github.com/fleetops/incentive-engine/incentive"
	"github.com/fleetops/incentive-engine/workflow"
)

var _ workflow.Store = (*Store)(nil)

type calcKey struct {
	DriverID incentive.DriverID
	Year     int
	Month    int
}

// Store keeps everything in maps guarded by a RWMutex. Reads return copies
// so callers can't mutate stored state behind the lock.
type Store struct {
	mu sync.RWMutex

	drivers     []incentive.Driver
	performance []incentive.Performance
	budgets     []incentive.MonthlyBudget
	settings    []incentive.Setting
	formulas    []incentive.CustomFormula
	history     []incentive.SalaryHistory
	rates       []incentive.ConversionRate

	calcsByID  map[incentive.CalculationID]*incentive.Calculation
	calcsByKey map[calcKey]incentive.CalculationID

	snapshots map[incentive.CalculationID][]incentive.Snapshot
	audit     []incentive.AuditEntry
}

func New() *Store {
	return &Store{
		calcsByID:  make(map[incentive.CalculationID]*incentive.Calculation),
		calcsByKey: make(map[calcKey]incentive.CalculationID),
		snapshots:  make(map[incentive.CalculationID][]incentive.Snapshot),
	}
}

// =============================================================================
// INPUT FIXTURES - Write side for seeding and tests
// =============================================================================

func (s *Store) AddDriver(d incentive.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers = append(s.drivers, d)
}

func (s *Store) AddPerformance(p incentive.Performance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Unique per (driver, year, month): last write wins.
	for i, existing := range s.performance {
		if existing.DriverID == p.DriverID && existing.Year == p.Year && existing.Month == p.Month {
			s.performance[i] = p
			return
		}
	}
	s.performance = append(s.performance, p)
}

func (s *Store) AddBudget(b incentive.MonthlyBudget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.budgets {
		if existing.Year == b.Year && existing.Month == b.Month && existing.DriverType == b.DriverType {
			s.budgets[i] = b
			return
		}
	}
	s.budgets = append(s.budgets, b)
}

func (s *Store) AddSetting(row incentive.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = append(s.settings, row)
}

func (s *Store) AddFormula(f incentive.CustomFormula) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formulas = append(s.formulas, f)
}

func (s *Store) AddSalaryHistory(h incentive.SalaryHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, h)
}

func (s *Store) AddConversionRate(r incentive.ConversionRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = append(s.rates, r)
}

// =============================================================================
// INPUT STORE
// =============================================================================

func (s *Store) ListDrivers(_ context.Context) ([]incentive.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]incentive.Driver(nil), s.drivers...), nil
}

func (s *Store) ListPerformance(_ context.Context, year, month int) ([]incentive.Performance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []incentive.Performance
	for _, p := range s.performance {
		if p.Year == year && p.Month == month {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListBudgets(_ context.Context, year, month int) ([]incentive.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []incentive.MonthlyBudget
	for _, b := range s.budgets {
		if b.Year == year && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) ListSettings(_ context.Context) ([]incentive.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]incentive.Setting(nil), s.settings...), nil
}

func (s *Store) ListFormulas(_ context.Context) ([]incentive.CustomFormula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]incentive.CustomFormula(nil), s.formulas...), nil
}

func (s *Store) ListSalaryHistory(_ context.Context) ([]incentive.SalaryHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]incentive.SalaryHistory(nil), s.history...), nil
}

func (s *Store) ListConversionRates(_ context.Context) ([]incentive.ConversionRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]incentive.ConversionRate(nil), s.rates...), nil
}

// =============================================================================
// CALCULATION STORE
// =============================================================================

func (s *Store) GetCalculation(_ context.Context, id incentive.CalculationID) (*incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	calc, ok := s.calcsByID[id]
	if !ok {
		return nil, nil
	}
	copied := *calc
	return &copied, nil
}

func (s *Store) GetCalculationByKey(_ context.Context, driverID incentive.DriverID, year, month int) (*incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.calcsByKey[calcKey{DriverID: driverID, Year: year, Month: month}]
	if !ok {
		return nil, nil
	}
	copied := *s.calcsByID[id]
	return &copied, nil
}

func (s *Store) ListCalculations(_ context.Context, year, month int) ([]incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []incentive.Calculation
	for _, calc := range s.calcsByID {
		if calc.Year == year && calc.Month == month {
			out = append(out, *calc)
		}
	}
	return out, nil
}

func (s *Store) ListCalculationsByStatus(_ context.Context, year, month int, status incentive.Status) ([]incentive.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []incentive.Calculation
	for _, calc := range s.calcsByID {
		if calc.Year == year && calc.Month == month && calc.Status == status {
			out = append(out, *calc)
		}
	}
	return out, nil
}

func (s *Store) UpsertCalculation(_ context.Context, calc *incentive.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := calcKey{DriverID: calc.DriverID, Year: calc.Year, Month: calc.Month}
	if existingID, ok := s.calcsByKey[key]; ok && existingID != calc.ID {
		// Never two records for the same key: the existing id wins.
		calc.ID = existingID
	}
	copied := *calc
	s.calcsByID[calc.ID] = &copied
	s.calcsByKey[key] = calc.ID
	return nil
}

func (s *Store) UpdateCalculation(_ context.Context, calc *incentive.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calcsByID[calc.ID]; !ok {
		return incentive.ErrCalculationNotFound
	}
	copied := *calc
	s.calcsByID[calc.ID] = &copied
	return nil
}

// =============================================================================
// SNAPSHOT STORE - Append-only
// =============================================================================

func (s *Store) AppendSnapshot(_ context.Context, snap incentive.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.CalculationID] = append(s.snapshots[snap.CalculationID], snap)
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, id incentive.CalculationID) (*incentive.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snapshots[id]
	if len(snaps) == 0 {
		return nil, nil
	}
	// Newest created_at wins; insertion order breaks ties.
	best := snaps[0]
	for _, snap := range snaps[1:] {
		if !snap.CreatedAt.Before(best.CreatedAt) {
			best = snap
		}
	}
	return &best, nil
}

func (s *Store) ListSnapshots(_ context.Context, id incentive.CalculationID) ([]incentive.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]incentive.Snapshot(nil), s.snapshots[id]...), nil
}

// =============================================================================
// AUDIT STORE - Append-only
// =============================================================================

func (s *Store) AppendAudit(_ context.Context, entry incentive.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) ListAudit(_ context.Context, id incentive.CalculationID) ([]incentive.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == "" {
		return append([]incentive.AuditEntry(nil), s.audit...), nil
	}
	var out []incentive.AuditEntry
	for _, entry := range s.audit {
		if entry.CalculationID == id {
			out = append(out, entry)
		}
	}
	return out, nil
}
