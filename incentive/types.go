/*
Package incentive contains the pure calculation core for monthly driver
incentive pay.

PURPOSE:
  Everything in this package is a deterministic function of its inputs:
  bonus evaluation, single-driver calculation, batch calculation, what-if
  projections, and historical salary resolution. Persistence, audit logging,
  and the approval workflow live in the workflow package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Driver / Performance / MonthlyBudget: roster and measurement inputs
  - Setting / CustomFormula: configuration rows, folded into typed config
  - Calculation: the persisted per-(driver, year, month) result
  - Snapshot / AuditEntry: immutable trail records consumed by workflow
  - Details / BonusBreakdown: the itemized payload consumed by exports

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every monetary and kilometer quantity
  2. Absence over zero: optional performance metrics are pointers; a missing
     metric omits its bonus field entirely
  3. One record per (driver, year, month): enforced by every store
  4. Determinism: identical inputs always produce identical results

SEE ALSO:
  - calculator.go: single-driver calculation
  - batch.go: period-wide calculation
  - workflow/: status transitions, snapshots, audit
*/
package incentive

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DriverID string
type CalculationID string

// =============================================================================
// DRIVER - Fleet roster entry
// =============================================================================

// DriverType selects which budget, divisor, and fuel-tier configuration
// applies. It never changes after a driver is created.
type DriverType string

const (
	DriverLocal  DriverType = "local"
	DriverExport DriverType = "export"
)

type DriverStatus string

const (
	DriverActive     DriverStatus = "active"
	DriverInactive   DriverStatus = "inactive"
	DriverSuspended  DriverStatus = "suspended"
	DriverTerminated DriverStatus = "terminated"
)

// Driver is owned by fleet administration; the engine reads it only.
// BaseSalaryUSD/BaseSalaryZIG are the driver's CURRENT salary fields. For
// historical periods the resolved salary from salary history must be used
// instead (see salary.go).
type Driver struct {
	ID            DriverID
	Name          string
	Type          DriverType
	BaseSalaryUSD decimal.Decimal
	BaseSalaryZIG decimal.Decimal
	Status        DriverStatus
}

// Active reports whether the driver is eligible for batch calculation.
func (d Driver) Active() bool { return d.Status == DriverActive }

// =============================================================================
// PERFORMANCE - One record per (driver, year, month)
// =============================================================================

// Performance holds a driver's measured metrics for one period.
// ActualKM is required; the four quality metrics are optional and a nil
// pointer means the metric was never captured, which is different from zero.
type Performance struct {
	DriverID       DriverID
	Year           int
	Month          int
	ActualKM       decimal.Decimal
	FuelEfficiency *decimal.Decimal
	OnTimeRate     *decimal.Decimal
	CustomerRating *decimal.Decimal
	SafetyScore    *decimal.Decimal
}

// =============================================================================
// MONTHLY BUDGET - Rate denominator per (year, month, driver type)
// =============================================================================

type MonthlyBudget struct {
	Year       int
	Month      int
	DriverType DriverType
	BudgetedKM decimal.Decimal
	TruckCount int
}

// =============================================================================
// SETTINGS & CUSTOM FORMULAS - Raw configuration rows
// =============================================================================

// Setting is one key/value configuration row. Only the active row per key is
// honored. Divisor values are plain numbers; fuel-tier values are a JSON
// tier table (see settings.go).
type Setting struct {
	Key    string
	Value  string
	Active bool
}

// Well-known setting keys.
const (
	SettingDivisorLocal    = "incentive_divisor_local"
	SettingDivisorExport   = "incentive_divisor_export"
	SettingFuelBonusLocal  = "fuel_efficiency_bonus_local"
	SettingFuelBonusExport = "fuel_efficiency_bonus_export"
)

// CustomFormula is a named override hook for bonus computation. Only the
// presence of an active formula for a key is consulted; Expression is an
// extension point for a future evaluator and is never parsed.
type CustomFormula struct {
	Name       string
	Key        string
	Expression string
	Priority   int
	Active     bool
}

// FormulaKeySafetyBonus is the only formula key with a consumer today.
const FormulaKeySafetyBonus = "safety_bonus"

// =============================================================================
// FUEL BONUS CONFIG - Tier table parsed from settings
// =============================================================================

// FuelTier awards Bonus when MinEfficiency <= value < MaxEfficiency.
// The interval is half-open: a value equal to MaxEfficiency belongs to the
// next tier, not this one.
type FuelTier struct {
	MinEfficiency decimal.Decimal `json:"min_efficiency"`
	MaxEfficiency decimal.Decimal `json:"max_efficiency"`
	Bonus         decimal.Decimal `json:"bonus"`
}

type FuelBonusConfig struct {
	Enabled bool       `json:"enabled"`
	Tiers   []FuelTier `json:"tiers"`
}

// =============================================================================
// CALCULATION - The persisted result
// =============================================================================

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPaid            Status = "paid"
)

// Calculation is the computed, persisted incentive result for one driver and
// period. Unique per (DriverID, Year, Month). The workflow package mutates
// Status and the approval/payment stamps; everything else is written by the
// batch runner.
type Calculation struct {
	ID     CalculationID
	DriverID DriverID
	Year   int
	Month  int

	BaseSalary       decimal.Decimal
	KMIncentive      decimal.Decimal
	PerformanceBonus decimal.Decimal
	SafetyBonus      decimal.Decimal
	Deductions       decimal.Decimal
	TotalIncentive   decimal.Decimal
	TotalEarnings    decimal.Decimal

	Details Details

	Status       Status
	ApprovedBy   *string
	ApprovedDate *time.Time
	PaidDate     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Details records every intermediate value of a calculation. The JSON field
// names are consumed by exports and analytics and must not change.
type Details struct {
	BudgetKM         decimal.Decimal `json:"budget_km"`
	TruckCount       int             `json:"truck_count"`
	TargetKMPerTruck decimal.Decimal `json:"target_km_per_truck"`
	Divisor          decimal.Decimal `json:"divisor"`
	RatePerKM        decimal.Decimal `json:"rate_per_km"`
	ActualKM         decimal.Decimal `json:"actual_km"`
	AchievementPct   decimal.Decimal `json:"achievement_pct"`
	BonusBreakdown   BonusBreakdown  `json:"bonus_breakdown"`
}

// BonusBreakdown holds independently computed bonus fields. A nil field
// means the underlying metric was absent on the performance record, or the
// fuel configuration was disabled; it is omitted from JSON rather than
// serialized as zero.
type BonusBreakdown struct {
	SafetyBonus         *decimal.Decimal `json:"safety_bonus,omitempty"`
	OnTimeBonus         *decimal.Decimal `json:"on_time_bonus,omitempty"`
	CustomerBonus       *decimal.Decimal `json:"customer_bonus,omitempty"`
	FuelEfficiencyBonus *decimal.Decimal `json:"fuel_efficiency_bonus,omitempty"`
}

// =============================================================================
// SNAPSHOT - Point-in-time copy for rollback
// =============================================================================

// Snapshot is an immutable copy of a Calculation taken immediately before a
// status-changing mutation. Snapshots are never updated or deleted; rollback
// reads the newest one and restores its numbers verbatim.
type Snapshot struct {
	ID            string
	CalculationID CalculationID
	Reason        string
	Data          Calculation
	CreatedAt     time.Time
}

// =============================================================================
// AUDIT - Append-only action log
// =============================================================================

type AuditAction string

const (
	AuditInsert         AuditAction = "insert"
	AuditUpdate         AuditAction = "update"
	AuditDelete         AuditAction = "delete"
	AuditBatchCalculate AuditAction = "batch_calculate"
	AuditApprove        AuditAction = "approve"
	AuditRollback       AuditAction = "rollback"
)

// AuditEntry records a single mutating action. Write-once: the engine never
// updates or deletes entries. OldValue/NewValue carry JSON snapshots of the
// affected record (or the batch summary for batch_calculate).
type AuditEntry struct {
	ID            string
	Action        AuditAction
	CalculationID CalculationID // empty for batch-level entries
	SnapshotID    string        // set for rollback entries
	OldValue      []byte
	NewValue      []byte
	Actor         string
	CreatedAt     time.Time
}

// =============================================================================
// SALARY HISTORY & CONVERSION RATES
// =============================================================================

// SalaryHistory is a period-keyed record of a driver's salary at that time.
type SalaryHistory struct {
	DriverID      DriverID
	Year          int
	Month         int
	BaseSalaryUSD decimal.Decimal
	BaseSalaryZIG decimal.Decimal
}

// ConversionRate is the ZIG-per-USD rate for one period. Rates are supplied
// by an external process, never fetched here.
type ConversionRate struct {
	Year  int
	Month int
	Rate  decimal.Decimal
}

// =============================================================================
// CALCULATION RESULT - Pure output of Calculate
// =============================================================================

// Result is the in-memory outcome of a single-driver calculation before it
// is persisted as a Calculation.
type Result struct {
	DriverID   DriverID
	DriverName string
	DriverType DriverType
	Year       int
	Month      int

	BaseSalary       decimal.Decimal
	KMIncentive      decimal.Decimal
	PerformanceBonus decimal.Decimal
	SafetyBonus      decimal.Decimal
	FuelBonus        decimal.Decimal
	Deductions       decimal.Decimal
	TotalIncentive   decimal.Decimal
	TotalEarnings    decimal.Decimal
	AchievementPct   decimal.Decimal

	Details Details
}
