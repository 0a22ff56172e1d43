/*
service.go - Workflow transitions, rollback, and their audit discipline

PURPOSE:
  Applies status transitions to stored calculations with the write ordering
  every mutation must follow:

    1. capture a snapshot of the pre-transition record
    2. apply the mutation
    3. append an audit entry

  The ordering is per-record; nothing orders writes across records.

CONCURRENCY:
  Concurrent transition requests against the same calculation id are
  serialized with a per-id mutex, so one actor's snapshot can never capture
  a state already superseded by another actor's write.

SIDE EFFECTS ON TRANSITION:
  entering approved  stamps approved_by / approved_date
  entering paid      stamps paid_date
  entering draft     clears nothing (stamps remain for historical trace)
*/
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fleetops/incentive-engine/incentive"
	"github.com/fleetops/incentive-engine/metrics"
)

// Service applies workflow operations against a Store.
type Service struct {
	Store   Store
	Metrics *metrics.Manager

	// Now is the clock used for stamps and snapshot timestamps.
	// Overridable in tests; defaults to UTC wall time.
	Now func() time.Time

	locks keyedLocks
}

// NewService creates a workflow service over the given store.
func NewService(store Store) *Service {
	return &Service{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Transition moves a calculation to a new status. An illegal transition is
// rejected before any snapshot, mutation, or audit write happens.
func (s *Service) Transition(ctx context.Context, id incentive.CalculationID, to incentive.Status, actor string) (*incentive.Calculation, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	calc, err := s.Store.GetCalculation(ctx, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, incentive.ErrCalculationNotFound
	}

	from := calc.Status
	if !CanTransition(from, to) {
		return nil, &incentive.IllegalTransitionError{From: from, To: to}
	}

	// 1. Snapshot the pre-transition record.
	snap := incentive.Snapshot{
		ID:            uuid.NewString(),
		CalculationID: calc.ID,
		Reason:        fmt.Sprintf("Status changed from %s to %s", from, to),
		Data:          *calc,
		CreatedAt:     s.Now(),
	}
	if err := s.Store.AppendSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("snapshot before transition: %w", err)
	}

	oldValue, _ := json.Marshal(calc)

	// 2. Apply the mutation.
	now := s.Now()
	calc.Status = to
	switch to {
	case incentive.StatusApproved:
		calc.ApprovedBy = &actor
		calc.ApprovedDate = &now
	case incentive.StatusPaid:
		calc.PaidDate = &now
	}
	calc.UpdatedAt = now

	if err := s.Store.UpdateCalculation(ctx, calc); err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}

	// 3. Audit.
	action := incentive.AuditUpdate
	if to == incentive.StatusApproved {
		action = incentive.AuditApprove
	}
	newValue, _ := json.Marshal(calc)
	if err := s.Store.AppendAudit(ctx, incentive.AuditEntry{
		ID:            uuid.NewString(),
		Action:        action,
		CalculationID: calc.ID,
		OldValue:      oldValue,
		NewValue:      newValue,
		Actor:         actor,
		CreatedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("audit transition: %w", err)
	}

	s.Metrics.Transition(string(from), string(to))
	log.WithFields(log.Fields{
		"calculation": calc.ID,
		"from":        from,
		"to":          to,
		"actor":       actor,
	}).Info("workflow transition applied")

	return calc, nil
}

// BulkFailure is one record's failure inside a bulk transition.
type BulkFailure struct {
	CalculationID incentive.CalculationID `json:"calculationId"`
	DriverID      incentive.DriverID      `json:"driverId"`
	Reason        string                  `json:"reason"`
}

// BulkResult summarizes a bulk transition.
type BulkResult struct {
	Transitioned int           `json:"transitioned"`
	Failed       []BulkFailure `json:"failed"`
}

// BulkTransition applies the same transition to every calculation currently
// in fromStatus for the period. One record's failure does not block the
// others.
func (s *Service) BulkTransition(ctx context.Context, year, month int, from, to incentive.Status, actor string) (*BulkResult, error) {
	calcs, err := s.Store.ListCalculationsByStatus(ctx, year, month, from)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Failed: []BulkFailure{}}
	for _, calc := range calcs {
		if _, err := s.Transition(ctx, calc.ID, to, actor); err != nil {
			result.Failed = append(result.Failed, BulkFailure{
				CalculationID: calc.ID,
				DriverID:      calc.DriverID,
				Reason:        err.Error(),
			})
			continue
		}
		result.Transitioned++
	}
	return result, nil
}

// =============================================================================
// ROLLBACK
// =============================================================================

// Rollback restores a calculation's financial and workflow fields from its
// most recent snapshot. The snapshot is not consumed: rolling back twice
// restores the same numbers twice. No bonus recomputation happens; the
// stored values are restored exactly.
func (s *Service) Rollback(ctx context.Context, id incentive.CalculationID, actor string) (*incentive.Calculation, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	calc, err := s.Store.GetCalculation(ctx, id)
	if err != nil {
		return nil, err
	}
	if calc == nil {
		return nil, incentive.ErrCalculationNotFound
	}

	snap, err := s.Store.LatestSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, incentive.ErrNoSnapshot
	}

	oldValue, _ := json.Marshal(calc)

	restored := snap.Data
	calc.Status = restored.Status
	calc.KMIncentive = restored.KMIncentive
	calc.PerformanceBonus = restored.PerformanceBonus
	calc.SafetyBonus = restored.SafetyBonus
	calc.Deductions = restored.Deductions
	calc.TotalIncentive = restored.TotalIncentive
	calc.TotalEarnings = restored.TotalEarnings
	calc.ApprovedBy = restored.ApprovedBy
	calc.ApprovedDate = restored.ApprovedDate
	calc.PaidDate = restored.PaidDate
	calc.UpdatedAt = s.Now()

	if err := s.Store.UpdateCalculation(ctx, calc); err != nil {
		return nil, fmt.Errorf("apply rollback: %w", err)
	}

	newValue, _ := json.Marshal(calc)
	if err := s.Store.AppendAudit(ctx, incentive.AuditEntry{
		ID:            uuid.NewString(),
		Action:        incentive.AuditRollback,
		CalculationID: calc.ID,
		SnapshotID:    snap.ID,
		OldValue:      oldValue,
		NewValue:      newValue,
		Actor:         actor,
		CreatedAt:     s.Now(),
	}); err != nil {
		return nil, fmt.Errorf("audit rollback: %w", err)
	}

	s.Metrics.Rollback()
	log.WithFields(log.Fields{
		"calculation": calc.ID,
		"snapshot":    snap.ID,
		"actor":       actor,
	}).Info("calculation rolled back")

	return calc, nil
}

// =============================================================================
// PER-RECORD LOCKS
// =============================================================================

// keyedLocks serializes mutations per calculation id. Locks are never
// removed; the id space is bounded by drivers x periods.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[incentive.CalculationID]*sync.Mutex
}

func (k *keyedLocks) lock(id incentive.CalculationID) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[incentive.CalculationID]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
