package incentive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/incentive-engine/incentive"
)

func batchFixture() incentive.BatchInput {
	return incentive.BatchInput{
		Year: 2025, Month: 6,
		Drivers: []incentive.Driver{
			{ID: "D-1", Name: "Alpha", Type: incentive.DriverLocal,
				BaseSalaryUSD: dec("650"), Status: incentive.DriverActive},
			{ID: "D-2", Name: "Bravo", Type: incentive.DriverLocal,
				BaseSalaryUSD: dec("600"), Status: incentive.DriverActive},
			{ID: "D-3", Name: "Charlie", Type: incentive.DriverExport,
				BaseSalaryUSD: dec("900"), Status: incentive.DriverActive},
		},
		Performance: []incentive.Performance{
			{DriverID: "D-1", Year: 2025, Month: 6, ActualKM: dec("5000"), SafetyScore: decPtr("96")},
			{DriverID: "D-3", Year: 2025, Month: 6, ActualKM: dec("8000")},
		},
		Budgets: []incentive.MonthlyBudget{
			{Year: 2025, Month: 6, DriverType: incentive.DriverLocal,
				BudgetedKM: dec("20000"), TruckCount: 4},
		},
		Settings: incentive.LoadSettings([]incentive.Setting{
			{Key: incentive.SettingDivisorLocal, Value: "1000", Active: true},
			{Key: incentive.SettingDivisorExport, Value: "1000", Active: true},
		}),
	}
}

// =============================================================================
// SUMMARY INVARIANT
// =============================================================================

func TestRunBatch_SummaryInvariant(t *testing.T) {
	// GIVEN: Three active drivers, one missing its performance record
	// THEN: success + failed == totalProcessed, always

	out := incentive.RunBatch(batchFixture())

	assert.Equal(t, 3, out.Summary.TotalProcessed)
	assert.Equal(t, 2, out.Summary.SuccessCount)
	assert.Equal(t, 1, out.Summary.FailedCount)
	assert.Equal(t, out.Summary.TotalProcessed, out.Summary.SuccessCount+out.Summary.FailedCount)
	assert.Len(t, out.Success, 2)
	assert.Len(t, out.Failed, 1)
}

func TestRunBatch_MissingPerformanceRecordedAsFailure(t *testing.T) {
	out := incentive.RunBatch(batchFixture())

	require.Len(t, out.Failed, 1)
	f := out.Failed[0]
	assert.Equal(t, incentive.DriverID("D-2"), f.DriverID)
	assert.Equal(t, "Bravo", f.DriverName)
	assert.Equal(t, incentive.ErrMissingPerformance.Error(), f.Reason)
}

func TestRunBatch_InactiveDriversSkippedEntirely(t *testing.T) {
	// Inactive, suspended, and terminated drivers do not count toward
	// totalProcessed and produce neither a success nor a failure.
	in := batchFixture()
	in.Drivers = append(in.Drivers,
		incentive.Driver{ID: "D-4", Name: "Delta", Type: incentive.DriverLocal, Status: incentive.DriverInactive},
		incentive.Driver{ID: "D-5", Name: "Echo", Type: incentive.DriverLocal, Status: incentive.DriverSuspended},
		incentive.Driver{ID: "D-6", Name: "Foxtrot", Type: incentive.DriverLocal, Status: incentive.DriverTerminated},
	)

	out := incentive.RunBatch(in)

	assert.Equal(t, 3, out.Summary.TotalProcessed)
	for _, r := range out.Success {
		assert.NotContains(t, []incentive.DriverID{"D-4", "D-5", "D-6"}, r.DriverID)
	}
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestRunBatch_NilSettingsFallsBackToDefaults(t *testing.T) {
	// GIVEN: No settings at all
	// THEN: divisor 1 and fuel disabled, not an error

	in := batchFixture()
	in.Settings = nil

	out := incentive.RunBatch(in)

	require.Len(t, out.Success, 2)
	for _, r := range out.Success {
		assert.True(t, r.Details.Divisor.Equal(dec("1")), "driver %s", r.DriverID)
		assert.Nil(t, r.Details.BonusBreakdown.FuelEfficiencyBonus)
	}
}

func TestRunBatch_MissingBudgetTolerated(t *testing.T) {
	// The export driver has no budget row: kilometer incentive collapses to
	// zero but the calculation still succeeds.
	out := incentive.RunBatch(batchFixture())

	var export *incentive.Result
	for i := range out.Success {
		if out.Success[i].DriverID == "D-3" {
			export = &out.Success[i]
		}
	}
	require.NotNil(t, export)
	assert.True(t, export.KMIncentive.IsZero())
	assert.True(t, export.Details.BudgetKM.IsZero())
	assert.Equal(t, 1, export.Details.TruckCount)
}

func TestRunBatch_BudgetFromOtherPeriodIgnored(t *testing.T) {
	in := batchFixture()
	in.Budgets = []incentive.MonthlyBudget{
		{Year: 2025, Month: 5, DriverType: incentive.DriverLocal,
			BudgetedKM: dec("20000"), TruckCount: 4},
	}

	out := incentive.RunBatch(in)

	for _, r := range out.Success {
		assert.True(t, r.KMIncentive.IsZero(), "stale budget must not apply")
	}
}

// =============================================================================
// SALARY RESOLUTION INSIDE THE BATCH
// =============================================================================

func TestRunBatch_UsesResolvedHistoricalSalary(t *testing.T) {
	// GIVEN: D-1's salary was 500 USD + 2650 ZIG in the calculated period,
	//        with a 26.5 ZIG/USD rate
	// THEN: The result's base salary is 500 + 2650/26.5 = 600, not the
	//       live 650

	in := batchFixture()
	in.SalaryHistory = []incentive.SalaryHistory{
		{DriverID: "D-1", Year: 2025, Month: 6,
			BaseSalaryUSD: dec("500"), BaseSalaryZIG: dec("2650")},
	}
	in.Rates = []incentive.ConversionRate{
		{Year: 2025, Month: 6, Rate: dec("26.5")},
	}

	out := incentive.RunBatch(in)

	var d1 *incentive.Result
	for i := range out.Success {
		if out.Success[i].DriverID == "D-1" {
			d1 = &out.Success[i]
		}
	}
	require.NotNil(t, d1)
	assert.True(t, d1.BaseSalary.Equal(dec("600")), "got %s", d1.BaseSalary)
}

// =============================================================================
// TOTALS
// =============================================================================

func TestRunBatch_SummaryTotalsAreSums(t *testing.T) {
	out := incentive.RunBatch(batchFixture())

	incentives := dec("0")
	earnings := dec("0")
	for _, r := range out.Success {
		incentives = incentives.Add(r.TotalIncentive)
		earnings = earnings.Add(r.TotalEarnings)
	}
	assert.True(t, out.Summary.TotalIncentives.Equal(incentives))
	assert.True(t, out.Summary.TotalEarnings.Equal(earnings))
}
