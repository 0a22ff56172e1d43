/*
machine.go - Calculation status state machine

The legal transition set is a fixed table:

  draft ──▶ pending_approval ──▶ approved ──▶ paid
              │                    │
              └──────▶ draft ◀─────┘

paid is terminal and no transition skips a state forward. Reverting to draft
keeps the approval/payment stamps for historical trace; it is a revert, not
an undo of the approval.
*/
package workflow

import "github.com/fleetops/incentive-engine/incentive"

// transitions is the complete legal transition table. Anything not listed
// here is rejected before any write happens.
var transitions = map[incentive.Status][]incentive.Status{
	incentive.StatusDraft:           {incentive.StatusPendingApproval},
	incentive.StatusPendingApproval: {incentive.StatusApproved, incentive.StatusDraft},
	incentive.StatusApproved:        {incentive.StatusPaid, incentive.StatusDraft},
	incentive.StatusPaid:            {},
}

// AvailableTransitions enumerates the states reachable from current.
// Callers present these instead of validating arbitrary requests; an
// unknown status yields the empty set.
func AvailableTransitions(current incentive.Status) []incentive.Status {
	next, ok := transitions[current]
	if !ok {
		return []incentive.Status{}
	}
	out := make([]incentive.Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to incentive.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
