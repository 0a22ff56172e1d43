/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/incentive-engine/incentive"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DriverDTO represents a roster entry in API responses.
type DriverDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	BaseSalaryUSD decimal.Decimal `json:"baseSalaryUsd"`
	BaseSalaryZIG decimal.Decimal `json:"baseSalaryZig"`
	Status        string          `json:"status"`
}

// CreateDriverRequest is the request to create or replace a driver.
type CreateDriverRequest struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	BaseSalaryUSD decimal.Decimal `json:"baseSalaryUsd"`
	BaseSalaryZIG decimal.Decimal `json:"baseSalaryZig"`
	Status        string          `json:"status"`
}

// CalculationDTO represents a persisted calculation in API responses. The
// nested details payload keeps its fixed export field names.
type CalculationDTO struct {
	ID               string            `json:"id"`
	DriverID         string            `json:"driverId"`
	Year             int               `json:"year"`
	Month            int               `json:"month"`
	BaseSalary       decimal.Decimal   `json:"baseSalary"`
	KMIncentive      decimal.Decimal   `json:"kmIncentive"`
	PerformanceBonus decimal.Decimal   `json:"performanceBonus"`
	SafetyBonus      decimal.Decimal   `json:"safetyBonus"`
	Deductions       decimal.Decimal   `json:"deductions"`
	TotalIncentive   decimal.Decimal   `json:"totalIncentive"`
	TotalEarnings    decimal.Decimal   `json:"totalEarnings"`
	Details          incentive.Details `json:"details"`
	Status           string            `json:"status"`
	ApprovedBy       *string           `json:"approvedBy,omitempty"`
	ApprovedDate     *string           `json:"approvedDate,omitempty"`
	PaidDate         *string           `json:"paidDate,omitempty"`
	CreatedAt        string            `json:"createdAt"`
	UpdatedAt        string            `json:"updatedAt"`
}

// RunBatchRequest triggers a period-wide calculation run.
type RunBatchRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Actor string `json:"actor"`
}

// TransitionRequest moves one calculation to a new workflow status.
type TransitionRequest struct {
	To    string `json:"to"`
	Actor string `json:"actor"`
}

// RollbackRequest restores a calculation from its latest snapshot.
type RollbackRequest struct {
	Actor string `json:"actor"`
}

// BulkTransitionRequest moves every calculation in a period from one status
// to another.
type BulkTransitionRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	From  string `json:"from"`
	To    string `json:"to"`
	Actor string `json:"actor"`
}

// TransitionsDTO lists the statuses reachable from a given one.
type TransitionsDTO struct {
	Status    string   `json:"status"`
	Available []string `json:"available"`
}

// AuditEntryDTO represents one audit log entry.
type AuditEntryDTO struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	CalculationID string `json:"calculationId,omitempty"`
	SnapshotID    string `json:"snapshotId,omitempty"`
	OldValue      string `json:"oldValue,omitempty"`
	NewValue      string `json:"newValue,omitempty"`
	Actor         string `json:"actor,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toDriverDTO(d incentive.Driver) DriverDTO {
	return DriverDTO{
		ID:            string(d.ID),
		Name:          d.Name,
		Type:          string(d.Type),
		BaseSalaryUSD: d.BaseSalaryUSD,
		BaseSalaryZIG: d.BaseSalaryZIG,
		Status:        string(d.Status),
	}
}

func toCalculationDTO(c incentive.Calculation) CalculationDTO {
	dto := CalculationDTO{
		ID:               string(c.ID),
		DriverID:         string(c.DriverID),
		Year:             c.Year,
		Month:            c.Month,
		BaseSalary:       c.BaseSalary,
		KMIncentive:      c.KMIncentive,
		PerformanceBonus: c.PerformanceBonus,
		SafetyBonus:      c.SafetyBonus,
		Deductions:       c.Deductions,
		TotalIncentive:   c.TotalIncentive,
		TotalEarnings:    c.TotalEarnings,
		Details:          c.Details,
		Status:           string(c.Status),
		ApprovedBy:       c.ApprovedBy,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
	if c.ApprovedDate != nil {
		s := c.ApprovedDate.Format(time.RFC3339)
		dto.ApprovedDate = &s
	}
	if c.PaidDate != nil {
		s := c.PaidDate.Format(time.RFC3339)
		dto.PaidDate = &s
	}
	return dto
}

func toAuditEntryDTO(e incentive.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:            e.ID,
		Action:        string(e.Action),
		CalculationID: string(e.CalculationID),
		SnapshotID:    e.SnapshotID,
		OldValue:      string(e.OldValue),
		NewValue:      string(e.NewValue),
		Actor:         e.Actor,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
}
