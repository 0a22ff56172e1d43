package workflow_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/incentive-engine/incentive"
	"github.com/fleetops/incentive-engine/store/memory"
)

func seedBatchInputs(store *memory.Store) {
	store.AddDriver(incentive.Driver{
		ID: "D-1", Name: "Alpha", Type: incentive.DriverLocal,
		BaseSalaryUSD: dec("650"), Status: incentive.DriverActive,
	})
	store.AddDriver(incentive.Driver{
		ID: "D-2", Name: "Bravo", Type: incentive.DriverLocal,
		BaseSalaryUSD: dec("600"), Status: incentive.DriverActive,
	})
	store.AddPerformance(incentive.Performance{
		DriverID: "D-1", Year: 2025, Month: 6,
		ActualKM: dec("3300"), SafetyScore: decPtr("96"),
	})
	store.AddBudget(incentive.MonthlyBudget{
		Year: 2025, Month: 6, DriverType: incentive.DriverLocal,
		BudgetedKM: dec("3000"), TruckCount: 1,
	})
	store.AddSetting(incentive.Setting{
		Key: incentive.SettingDivisorLocal, Value: "1000", Active: true,
	})
}

func TestRunBatch_PersistsSuccessesAsDrafts(t *testing.T) {
	// GIVEN: One driver with a performance record, one without
	// WHEN: Running the batch
	// THEN: The computed result is persisted in draft; the missing-record
	//       driver appears only in the failure list

	svc, store := newTestService()
	seedBatchInputs(store)
	ctx := context.Background()

	report, err := svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Persisted)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, report.Output.Summary.TotalProcessed)
	assert.Equal(t, 1, report.Output.Summary.FailedCount)

	calcs, err := store.ListCalculations(ctx, 2025, 6)
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	calc := calcs[0]

	assert.Equal(t, incentive.DriverID("D-1"), calc.DriverID)
	assert.Equal(t, incentive.StatusDraft, calc.Status)
	assert.NotEmpty(t, calc.ID)
	assert.True(t, calc.SafetyBonus.Equal(dec("500")))
	assert.True(t, calc.Details.Divisor.Equal(dec("1000")))
}

func TestRunBatch_SingleAuditEntryPerRun(t *testing.T) {
	svc, store := newTestService()
	seedBatchInputs(store)
	ctx := context.Background()

	_, err := svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	entries, err := store.ListAudit(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1, "one entry per batch, not per driver")

	entry := entries[0]
	assert.Equal(t, incentive.AuditBatchCalculate, entry.Action)
	assert.Empty(t, entry.CalculationID, "batch-level entry references no single record")
	assert.Equal(t, "scheduler", entry.Actor)

	var summary incentive.BatchSummary
	require.NoError(t, json.Unmarshal(entry.NewValue, &summary))
	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 1, summary.SuccessCount)
}

func TestRunBatch_RecalculationUpdatesInPlace(t *testing.T) {
	// GIVEN: A completed batch whose record was approved, then new
	//        performance numbers for the same period
	// WHEN: Running the batch again
	// THEN: Still one record, same id, same workflow state, refreshed
	//       financials

	svc, store := newTestService()
	seedBatchInputs(store)
	ctx := context.Background()

	_, err := svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	first, err := store.ListCalculations(ctx, 2025, 6)
	require.NoError(t, err)
	require.Len(t, first, 1)
	originalID := first[0].ID

	_, err = svc.Transition(ctx, originalID, incentive.StatusPendingApproval, "supervisor")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, originalID, incentive.StatusApproved, "finance-lead")
	require.NoError(t, err)

	// Corrected odometer reading arrives.
	store.AddPerformance(incentive.Performance{
		DriverID: "D-1", Year: 2025, Month: 6,
		ActualKM: dec("3600"), SafetyScore: decPtr("96"),
	})

	_, err = svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	second, err := store.ListCalculations(ctx, 2025, 6)
	require.NoError(t, err)
	require.Len(t, second, 1, "upsert by key, never a duplicate")
	calc := second[0]

	assert.Equal(t, originalID, calc.ID)
	assert.Equal(t, incentive.StatusApproved, calc.Status, "workflow state survives recalculation")
	assert.NotNil(t, calc.ApprovedBy)
	assert.True(t, calc.Details.ActualKM.Equal(dec("3600")), "financials refreshed")
}

func TestRunBatch_PreservesManualDeductions(t *testing.T) {
	svc, store := newTestService()
	seedBatchInputs(store)
	ctx := context.Background()

	_, err := svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	calcs, err := store.ListCalculations(ctx, 2025, 6)
	require.NoError(t, err)
	require.Len(t, calcs, 1)

	withDeduction := calcs[0]
	withDeduction.Deductions = dec("75")
	require.NoError(t, store.UpdateCalculation(ctx, &withDeduction))

	_, err = svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	after, err := store.GetCalculation(ctx, withDeduction.ID)
	require.NoError(t, err)
	assert.True(t, after.Deductions.Equal(dec("75")), "manually entered deduction survives")
}

func TestRunBatch_EmptyRoster(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	report, err := svc.RunBatch(ctx, 2025, 6, "scheduler")
	require.NoError(t, err)

	assert.Zero(t, report.Persisted)
	assert.Zero(t, report.Output.Summary.TotalProcessed)

	entries, err := store.ListAudit(ctx, "")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the run is audited even when it does nothing")
}
