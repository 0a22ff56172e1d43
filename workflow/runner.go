/*
runner.go - Batch calculation orchestration

Loads the input collections, runs the pure batch calculation, persists each
success with upsert-by-(driver, year, month) semantics, and writes exactly
one audit entry summarizing the run. Existing workflow state survives a
recalculation: status, approval/payment stamps, and manually entered
deductions are preserved when a record is updated in place.
*/
package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fleetops/incentive-engine/incentive"
)

// BatchReport is the persisted outcome of a batch run.
type BatchReport struct {
	Output    incentive.BatchOutput `json:"output"`
	Persisted int                   `json:"persisted"`
	Errors    []BulkFailure         `json:"errors,omitempty"`
}

// RunBatch computes and persists incentive results for every active driver
// in the period.
func (s *Service) RunBatch(ctx context.Context, year, month int, actor string) (*BatchReport, error) {
	started := s.Now()

	input, err := s.loadBatchInput(ctx, year, month)
	if err != nil {
		return nil, err
	}

	output := incentive.RunBatch(*input)

	report := &BatchReport{}
	for i := range output.Success {
		if _, err := s.persistResult(ctx, &output.Success[i]); err != nil {
			// A store failure for one driver does not block the others.
			report.Errors = append(report.Errors, BulkFailure{
				DriverID: output.Success[i].DriverID,
				Reason:   err.Error(),
			})
			continue
		}
		report.Persisted++
	}
	report.Output = output

	// One audit entry per batch, not one per driver.
	summary, _ := json.Marshal(output.Summary)
	if err := s.Store.AppendAudit(ctx, incentive.AuditEntry{
		ID:        uuid.NewString(),
		Action:    incentive.AuditBatchCalculate,
		NewValue:  summary,
		Actor:     actor,
		CreatedAt: s.Now(),
	}); err != nil {
		return nil, fmt.Errorf("audit batch run: %w", err)
	}

	elapsed := s.Now().Sub(started)
	s.Metrics.BatchRun(output.Summary.TotalProcessed, output.Summary.FailedCount, elapsed.Seconds())
	log.WithFields(log.Fields{
		"year":      year,
		"month":     month,
		"processed": output.Summary.TotalProcessed,
		"succeeded": output.Summary.SuccessCount,
		"failed":    output.Summary.FailedCount,
		"persisted": report.Persisted,
		"elapsed":   elapsed,
	}).Info("batch calculation complete")

	return report, nil
}

func (s *Service) loadBatchInput(ctx context.Context, year, month int) (*incentive.BatchInput, error) {
	drivers, err := s.Store.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load drivers: %w", err)
	}
	performance, err := s.Store.ListPerformance(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load performance: %w", err)
	}
	budgets, err := s.Store.ListBudgets(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	settingRows, err := s.Store.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	formulas, err := s.Store.ListFormulas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load formulas: %w", err)
	}
	history, err := s.Store.ListSalaryHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load salary history: %w", err)
	}
	rates, err := s.Store.ListConversionRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conversion rates: %w", err)
	}

	return &incentive.BatchInput{
		Year:          year,
		Month:         month,
		Drivers:       drivers,
		Performance:   performance,
		Budgets:       budgets,
		Settings:      incentive.LoadSettings(settingRows),
		Formulas:      formulas,
		SalaryHistory: history,
		Rates:         rates,
	}, nil
}

// persistResult upserts one result by its (driver, year, month) key. A new
// record starts in draft; an existing record keeps its workflow state and
// deductions while the computed financial fields are refreshed.
func (s *Service) persistResult(ctx context.Context, r *incentive.Result) (*incentive.Calculation, error) {
	unlockKey := incentive.CalculationID(fmt.Sprintf("%s-%d-%02d", r.DriverID, r.Year, r.Month))
	unlock := s.locks.lock(unlockKey)
	defer unlock()

	now := s.Now()
	existing, err := s.Store.GetCalculationByKey(ctx, r.DriverID, r.Year, r.Month)
	if err != nil {
		return nil, err
	}

	var calc *incentive.Calculation
	if existing != nil {
		calc = existing
		calc.BaseSalary = r.BaseSalary
		calc.KMIncentive = r.KMIncentive
		calc.PerformanceBonus = r.PerformanceBonus
		calc.SafetyBonus = r.SafetyBonus
		calc.TotalIncentive = r.TotalIncentive
		calc.TotalEarnings = r.TotalEarnings
		calc.Details = r.Details
		calc.UpdatedAt = now
	} else {
		calc = &incentive.Calculation{
			ID:               incentive.CalculationID(uuid.NewString()),
			DriverID:         r.DriverID,
			Year:             r.Year,
			Month:            r.Month,
			BaseSalary:       r.BaseSalary,
			KMIncentive:      r.KMIncentive,
			PerformanceBonus: r.PerformanceBonus,
			SafetyBonus:      r.SafetyBonus,
			Deductions:       r.Deductions,
			TotalIncentive:   r.TotalIncentive,
			TotalEarnings:    r.TotalEarnings,
			Details:          r.Details,
			Status:           incentive.StatusDraft,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	}

	if err := s.Store.UpsertCalculation(ctx, calc); err != nil {
		return nil, err
	}
	return calc, nil
}
