package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/incentive-engine/incentive"
	"github.com/fleetops/incentive-engine/store/memory"
	"github.com/fleetops/incentive-engine/workflow"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService() (*workflow.Service, *memory.Store) {
	store := memory.New()
	svc := workflow.NewService(store)
	return svc, store
}

func seedCalculation(t *testing.T, store *memory.Store, status incentive.Status) incentive.CalculationID {
	t.Helper()
	calc := &incentive.Calculation{
		ID:       "calc-1",
		DriverID: "D-1",
		Year:     2025, Month: 6,
		BaseSalary:       dec("650"),
		KMIncentive:      dec("1100"),
		PerformanceBonus: dec("300"),
		SafetyBonus:      dec("500"),
		Deductions:       dec("0"),
		TotalIncentive:   dec("1900"),
		TotalEarnings:    dec("2550"),
		Status:           status,
		CreatedAt:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.UpsertCalculation(context.Background(), calc))
	return calc.ID
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestTransition_HappyPathStamps(t *testing.T) {
	// GIVEN: A pending_approval calculation
	// WHEN: Approving, then paying
	// THEN: approved stamps approver and date, paid stamps the payment date

	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusPendingApproval)

	approved, err := svc.Transition(ctx, id, incentive.StatusApproved, "finance-lead")
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "finance-lead", *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedDate)
	assert.Nil(t, approved.PaidDate)

	paid, err := svc.Transition(ctx, id, incentive.StatusPaid, "payroll")
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
}

func TestTransition_RevertToDraftKeepsStamps(t *testing.T) {
	// Reverting is not an undo: the approval stamps remain for trace.
	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusPendingApproval)

	_, err := svc.Transition(ctx, id, incentive.StatusApproved, "finance-lead")
	require.NoError(t, err)

	reverted, err := svc.Transition(ctx, id, incentive.StatusDraft, "finance-lead")
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusDraft, reverted.Status)
	assert.NotNil(t, reverted.ApprovedBy)
	assert.NotNil(t, reverted.ApprovedDate)
}

func TestTransition_IllegalRejectedBeforeAnyWrite(t *testing.T) {
	// GIVEN: A draft calculation
	// WHEN: Requesting draft -> paid
	// THEN: The request fails and no snapshot or audit entry exists

	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusDraft)

	_, err := svc.Transition(ctx, id, incentive.StatusPaid, "impatient")
	require.Error(t, err)
	assert.ErrorIs(t, err, incentive.ErrIllegalTransition)

	var itErr *incentive.IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, incentive.StatusDraft, itErr.From)
	assert.Equal(t, incentive.StatusPaid, itErr.To)

	snaps, err := store.ListSnapshots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	entries, err := store.ListAudit(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entries)

	calc, err := store.GetCalculation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusDraft, calc.Status, "record untouched")
}

func TestTransition_UnknownCalculation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Transition(context.Background(), "nope", incentive.StatusPendingApproval, "x")
	assert.ErrorIs(t, err, incentive.ErrCalculationNotFound)
}

func TestTransition_SnapshotBeforeMutation(t *testing.T) {
	// GIVEN: A draft calculation
	// WHEN: Transitioning to pending_approval
	// THEN: The snapshot captures the pre-transition state, and the audit
	//       entry records both sides of the change

	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusDraft)

	_, err := svc.Transition(ctx, id, incentive.StatusPendingApproval, "supervisor")
	require.NoError(t, err)

	snaps, err := store.ListSnapshots(ctx, id)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, incentive.StatusDraft, snaps[0].Data.Status, "snapshot is pre-mutation")
	assert.Equal(t, "Status changed from draft to pending_approval", snaps[0].Reason)

	entries, err := store.ListAudit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, incentive.AuditUpdate, entries[0].Action)
	assert.Equal(t, "supervisor", entries[0].Actor)
	assert.NotEmpty(t, entries[0].OldValue)
	assert.NotEmpty(t, entries[0].NewValue)
}

func TestTransition_ApproveUsesApproveAction(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusPendingApproval)

	_, err := svc.Transition(ctx, id, incentive.StatusApproved, "finance-lead")
	require.NoError(t, err)

	entries, err := store.ListAudit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, incentive.AuditApprove, entries[0].Action)
}

// =============================================================================
// BULK TRANSITIONS
// =============================================================================

func TestBulkTransition_OnlyMatchingStatusMoves(t *testing.T) {
	// GIVEN: Three drafts and one approved record for the period
	// WHEN: Bulk-moving draft -> pending_approval
	// THEN: Exactly the drafts move; the approved record is untouched

	svc, store := newTestService()
	ctx := context.Background()

	for i, id := range []incentive.CalculationID{"calc-a", "calc-b", "calc-c"} {
		calc := &incentive.Calculation{
			ID: id, DriverID: incentive.DriverID(rune('A' + i)),
			Year: 2025, Month: 6, Status: incentive.StatusDraft,
		}
		require.NoError(t, store.UpsertCalculation(ctx, calc))
	}
	approved := &incentive.Calculation{
		ID: "calc-d", DriverID: "D", Year: 2025, Month: 6, Status: incentive.StatusApproved,
	}
	require.NoError(t, store.UpsertCalculation(ctx, approved))

	result, err := svc.BulkTransition(ctx, 2025, 6, incentive.StatusDraft, incentive.StatusPendingApproval, "supervisor")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Transitioned)
	assert.Empty(t, result.Failed)

	still, err := store.GetCalculation(ctx, "calc-d")
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusApproved, still.Status)

	pending, err := store.ListCalculationsByStatus(ctx, 2025, 6, incentive.StatusPendingApproval)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestBulkTransition_EmptyPeriod(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.BulkTransition(context.Background(), 2030, 1,
		incentive.StatusDraft, incentive.StatusPendingApproval, "nobody")
	require.NoError(t, err)
	assert.Zero(t, result.Transitioned)
	assert.Empty(t, result.Failed)
}

// =============================================================================
// ROLLBACK
// =============================================================================

func TestRollback_RestoresSnapshotExactly(t *testing.T) {
	// GIVEN: A calculation approved (snapshot taken of pending_approval)
	// WHEN: Rolling back
	// THEN: Status and every financial/workflow field return to the
	//       snapshot values

	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusPendingApproval)

	_, err := svc.Transition(ctx, id, incentive.StatusApproved, "finance-lead")
	require.NoError(t, err)

	rolled, err := svc.Rollback(ctx, id, "auditor")
	require.NoError(t, err)

	assert.Equal(t, incentive.StatusPendingApproval, rolled.Status)
	assert.Nil(t, rolled.ApprovedBy, "restored from the pre-approval snapshot")
	assert.Nil(t, rolled.ApprovedDate)
	assert.True(t, rolled.KMIncentive.Equal(dec("1100")))
	assert.True(t, rolled.TotalIncentive.Equal(dec("1900")))
	assert.True(t, rolled.TotalEarnings.Equal(dec("2550")))
}

func TestRollback_NoSnapshot(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusDraft)

	_, err := svc.Rollback(ctx, id, "auditor")
	assert.ErrorIs(t, err, incentive.ErrNoSnapshot)

	calc, err := store.GetCalculation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusDraft, calc.Status, "no partial mutation")
}

func TestRollback_SnapshotNotConsumed(t *testing.T) {
	// Rolling back twice restores the same numbers twice; the audit trail
	// records each restoration.
	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusDraft)

	_, err := svc.Transition(ctx, id, incentive.StatusPendingApproval, "supervisor")
	require.NoError(t, err)

	first, err := svc.Rollback(ctx, id, "auditor")
	require.NoError(t, err)
	second, err := svc.Rollback(ctx, id, "auditor")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	snaps, err := store.ListSnapshots(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snaps, 1, "rollback never deletes snapshots")
}

func TestRollback_AuditReferencesSnapshot(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusDraft)

	_, err := svc.Transition(ctx, id, incentive.StatusPendingApproval, "supervisor")
	require.NoError(t, err)
	_, err = svc.Rollback(ctx, id, "auditor")
	require.NoError(t, err)

	snaps, err := store.ListSnapshots(ctx, id)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	entries, err := store.ListAudit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	rollbackEntry := entries[1]
	assert.Equal(t, incentive.AuditRollback, rollbackEntry.Action)
	assert.Equal(t, snaps[0].ID, rollbackEntry.SnapshotID)
	assert.Equal(t, "auditor", rollbackEntry.Actor)
}

func TestRollback_NewestSnapshotWins(t *testing.T) {
	// GIVEN: Two transitions, so two snapshots at increasing times
	// WHEN: Rolling back
	// THEN: The second snapshot (pending_approval state) is restored

	svc, store := newTestService()
	ctx := context.Background()
	id := seedCalculation(t, store, incentive.StatusDraft)

	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	svc.Now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	_, err := svc.Transition(ctx, id, incentive.StatusPendingApproval, "supervisor")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, id, incentive.StatusApproved, "finance-lead")
	require.NoError(t, err)

	rolled, err := svc.Rollback(ctx, id, "auditor")
	require.NoError(t, err)
	assert.Equal(t, incentive.StatusPendingApproval, rolled.Status)
}
