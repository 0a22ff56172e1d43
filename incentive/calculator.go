/*
calculator.go - Single-driver incentive calculation

PURPOSE:
  Combines a driver, one performance record, the matching monthly budget,
  the applicable divisor, and bonus results into one fully itemized result.

ALGORITHM:
  target_km_per_truck = truck_count > 0 ? budgeted_km / truck_count : 0
  rate_per_km         = target > 0 && divisor > 0 ? divisor / target : 0
  km_incentive        = actual_km * rate_per_km
  achievement_pct     = budgeted_km > 0 ? actual_km / budgeted_km * 100 : 0
  performance_bonus   = on_time_bonus + customer_bonus
  total_incentive     = km_incentive + performance_bonus + safety_bonus + fuel_bonus
  total_earnings      = base_salary + total_incentive

A nil budget is not an error: budgeted_km is 0 and truck_count defaults to
1, so the kilometer incentive is 0. Deterministic pure function; the Details
payload records every intermediate for auditability.
*/
package incentive

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Input carries everything a single-driver calculation needs. The caller
// resolves the divisor and fuel configuration for the driver's type, and
// the base salary for the period (see salary.go).
type Input struct {
	Driver      Driver
	BaseSalary  decimal.Decimal
	Performance Performance
	Budget      *MonthlyBudget
	Divisor     decimal.Decimal
	Formulas    []CustomFormula
	Fuel        FuelBonusConfig
	Year        int
	Month       int
}

// Calculate produces the itemized incentive result for one driver.
func Calculate(in Input) Result {
	budgetedKM := decimal.Zero
	truckCount := 1
	if in.Budget != nil {
		budgetedKM = in.Budget.BudgetedKM
		truckCount = in.Budget.TruckCount
	}

	targetPerTruck := decimal.Zero
	if truckCount > 0 {
		targetPerTruck = budgetedKM.Div(decimal.NewFromInt(int64(truckCount)))
	}

	ratePerKM := decimal.Zero
	if targetPerTruck.IsPositive() && in.Divisor.IsPositive() {
		ratePerKM = in.Divisor.Div(targetPerTruck)
	}

	actualKM := in.Performance.ActualKM
	kmIncentive := actualKM.Mul(ratePerKM)

	achievement := decimal.Zero
	if budgetedKM.IsPositive() {
		achievement = actualKM.Div(budgetedKM).Mul(hundred)
	}

	breakdown := EvaluateBonus(in.Performance, in.Formulas, in.Fuel)

	performanceBonus := deref(breakdown.OnTimeBonus).Add(deref(breakdown.CustomerBonus))
	safetyBonus := deref(breakdown.SafetyBonus)
	fuelBonus := deref(breakdown.FuelEfficiencyBonus)

	totalIncentive := kmIncentive.Add(performanceBonus).Add(safetyBonus).Add(fuelBonus)
	totalEarnings := in.BaseSalary.Add(totalIncentive)

	return Result{
		DriverID:   in.Driver.ID,
		DriverName: in.Driver.Name,
		DriverType: in.Driver.Type,
		Year:       in.Year,
		Month:      in.Month,

		BaseSalary:       in.BaseSalary,
		KMIncentive:      kmIncentive,
		PerformanceBonus: performanceBonus,
		SafetyBonus:      safetyBonus,
		FuelBonus:        fuelBonus,
		Deductions:       decimal.Zero,
		TotalIncentive:   totalIncentive,
		TotalEarnings:    totalEarnings,
		AchievementPct:   achievement,

		Details: Details{
			BudgetKM:         budgetedKM,
			TruckCount:       truckCount,
			TargetKMPerTruck: targetPerTruck,
			Divisor:          in.Divisor,
			RatePerKM:        ratePerKM,
			ActualKM:         actualKM,
			AchievementPct:   achievement,
			BonusBreakdown:   breakdown,
		},
	}
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
