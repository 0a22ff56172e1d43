/*
batch.go - Period-wide calculation across all active drivers

PURPOSE:
  Runs the single-driver calculation for every active driver in a period,
  collecting successes, per-driver failures, and summary totals. Performs no
  I/O: the caller loads the input collections and persists the output.

FAILURE SCOPING:
  - Missing performance record: recorded in Failed, batch continues
  - Missing budget: tolerated (nil budget, kilometer incentive is 0)
  - Missing or inactive settings: divisor 1, fuel bonuses disabled
  - Any panic inside one driver's calculation: recovered and recorded

The invariant SuccessCount + FailedCount == TotalProcessed always holds,
where TotalProcessed counts the active drivers considered.
*/
package incentive

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BatchInput is the full input set for one period run.
type BatchInput struct {
	Year  int
	Month int

	Drivers       []Driver
	Performance   []Performance
	Budgets       []MonthlyBudget
	Settings      *Settings
	Formulas      []CustomFormula
	SalaryHistory []SalaryHistory
	Rates         []ConversionRate
}

// BatchFailure is one driver's non-fatal failure inside a batch.
type BatchFailure struct {
	DriverID   DriverID `json:"driverId"`
	DriverName string   `json:"driverName"`
	Reason     string   `json:"reason"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	TotalProcessed  int             `json:"totalProcessed"`
	SuccessCount    int             `json:"successCount"`
	FailedCount     int             `json:"failedCount"`
	TotalIncentives decimal.Decimal `json:"totalIncentives"`
	TotalEarnings   decimal.Decimal `json:"totalEarnings"`
}

// BatchOutput is everything the caller needs to persist and audit a run.
type BatchOutput struct {
	Success []Result       `json:"success"`
	Failed  []BatchFailure `json:"failed"`
	Summary BatchSummary   `json:"summary"`
}

// RunBatch computes one result per active driver for the period. Inactive,
// suspended, and terminated drivers are skipped entirely (they do not count
// toward TotalProcessed).
func RunBatch(in BatchInput) BatchOutput {
	settings := in.Settings
	if settings == nil {
		settings = LoadSettings(nil)
	}

	perfByDriver := make(map[DriverID]Performance, len(in.Performance))
	for _, p := range in.Performance {
		if p.Year == in.Year && p.Month == in.Month {
			perfByDriver[p.DriverID] = p
		}
	}

	budgetByType := make(map[DriverType]*MonthlyBudget, len(in.Budgets))
	for i := range in.Budgets {
		b := in.Budgets[i]
		if b.Year == in.Year && b.Month == in.Month {
			budgetByType[b.DriverType] = &in.Budgets[i]
		}
	}

	out := BatchOutput{
		Success: []Result{},
		Failed:  []BatchFailure{},
		Summary: BatchSummary{
			TotalIncentives: decimal.Zero,
			TotalEarnings:   decimal.Zero,
		},
	}

	for _, driver := range in.Drivers {
		if !driver.Active() {
			continue
		}
		out.Summary.TotalProcessed++

		perf, ok := perfByDriver[driver.ID]
		if !ok {
			out.Failed = append(out.Failed, BatchFailure{
				DriverID:   driver.ID,
				DriverName: driver.Name,
				Reason:     ErrMissingPerformance.Error(),
			})
			continue
		}

		result, err := calculateOne(driver, perf, budgetByType[driver.Type], settings, in)
		if err != nil {
			out.Failed = append(out.Failed, BatchFailure{
				DriverID:   driver.ID,
				DriverName: driver.Name,
				Reason:     err.Error(),
			})
			continue
		}

		out.Success = append(out.Success, result)
		out.Summary.TotalIncentives = out.Summary.TotalIncentives.Add(result.TotalIncentive)
		out.Summary.TotalEarnings = out.Summary.TotalEarnings.Add(result.TotalEarnings)
	}

	out.Summary.SuccessCount = len(out.Success)
	out.Summary.FailedCount = len(out.Failed)
	return out
}

// calculateOne isolates one driver's calculation so an unexpected panic is
// scoped to that driver instead of aborting the batch.
func calculateOne(driver Driver, perf Performance, budget *MonthlyBudget, settings *Settings, in BatchInput) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ComputationError{DriverID: driver.ID, Cause: fmt.Errorf("%v", r)}
		}
	}()

	ts := settings.ForType(driver.Type)
	baseSalary := ResolveBaseSalary(driver, in.SalaryHistory, in.Rates, in.Year, in.Month)

	result = Calculate(Input{
		Driver:      driver,
		BaseSalary:  baseSalary,
		Performance: perf,
		Budget:      budget,
		Divisor:     ts.Divisor,
		Formulas:    in.Formulas,
		Fuel:        ts.Fuel,
		Year:        in.Year,
		Month:       in.Month,
	})
	return result, nil
}
