/*
store.go - Persistence interfaces for the workflow layer

The engine treats storage as an external record store with query-by-field
capability. Input repositories are read-only; the calculation repository has
upsert-by-unique-key semantics; snapshot and audit sinks are append-only.
*/
package workflow

import (
	"context"

	"github.com/fleetops/incentive-engine/incentive"
)

// InputStore supplies the read-only collections a batch run consumes.
type InputStore interface {
	ListDrivers(ctx context.Context) ([]incentive.Driver, error)
	ListPerformance(ctx context.Context, year, month int) ([]incentive.Performance, error)
	ListBudgets(ctx context.Context, year, month int) ([]incentive.MonthlyBudget, error)
	ListSettings(ctx context.Context) ([]incentive.Setting, error)
	ListFormulas(ctx context.Context) ([]incentive.CustomFormula, error)
	ListSalaryHistory(ctx context.Context) ([]incentive.SalaryHistory, error)
	ListConversionRates(ctx context.Context) ([]incentive.ConversionRate, error)
}

// CalculationStore persists computed results. Unique per
// (driver, year, month): Upsert updates in place when a record for that key
// exists and inserts otherwise, never duplicating.
type CalculationStore interface {
	GetCalculation(ctx context.Context, id incentive.CalculationID) (*incentive.Calculation, error)
	GetCalculationByKey(ctx context.Context, driverID incentive.DriverID, year, month int) (*incentive.Calculation, error)
	ListCalculations(ctx context.Context, year, month int) ([]incentive.Calculation, error)
	ListCalculationsByStatus(ctx context.Context, year, month int, status incentive.Status) ([]incentive.Calculation, error)
	UpsertCalculation(ctx context.Context, calc *incentive.Calculation) error
	UpdateCalculation(ctx context.Context, calc *incentive.Calculation) error
}

// SnapshotStore is the append-only snapshot sink. Snapshots are never
// mutated or deleted once created.
type SnapshotStore interface {
	AppendSnapshot(ctx context.Context, snap incentive.Snapshot) error
	LatestSnapshot(ctx context.Context, id incentive.CalculationID) (*incentive.Snapshot, error)
	ListSnapshots(ctx context.Context, id incentive.CalculationID) ([]incentive.Snapshot, error)
}

// AuditStore is the append-only audit sink.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry incentive.AuditEntry) error
	ListAudit(ctx context.Context, id incentive.CalculationID) ([]incentive.AuditEntry, error)
}

// Store is the full persistence surface the workflow service depends on.
type Store interface {
	InputStore
	CalculationStore
	SnapshotStore
	AuditStore
}
