/*
projection.go - What-if projections over a computed result

PURPOSE:
  Answers "what would this driver earn with more kilometers?" by re-deriving
  incentive and earnings from an already-computed result under hypothetical
  additional-kilometer scenarios. No recalculation of bonuses happens: the
  performance and safety bonuses carry over unchanged, and the fuel bonus is
  excluded from the projection entirely since it is kilometer-independent.

Pure functions; the projector never touches a store.
*/
package incentive

import "github.com/shopspring/decimal"

// =============================================================================
// SCENARIOS
// =============================================================================

// Scenario is a named hypothetical kilometer increase.
type Scenario struct {
	Name         string          `json:"name"`
	AdditionalKM decimal.Decimal `json:"additionalKm"`
}

// ProjectionDiff is the change a scenario causes relative to the computed
// result.
type ProjectionDiff struct {
	KM          decimal.Decimal `json:"km"`
	Incentive   decimal.Decimal `json:"incentive"`
	Earnings    decimal.Decimal `json:"earnings"`
	Achievement decimal.Decimal `json:"achievement"`
}

// ScenarioProjection is one scenario's projected outcome.
type ScenarioProjection struct {
	Name                 string          `json:"name"`
	ProjectedKM          decimal.Decimal `json:"projectedKm"`
	ProjectedIncentive   decimal.Decimal `json:"projectedIncentive"`
	ProjectedEarnings    decimal.Decimal `json:"projectedEarnings"`
	ProjectedAchievement decimal.Decimal `json:"projectedAchievement"`
	Difference           ProjectionDiff  `json:"difference"`
}

var (
	tenPercent = decimal.RequireFromString("0.1")
	plus500    = decimal.NewFromInt(500)
	plus1000   = decimal.NewFromInt(1000)
	oneTen     = decimal.RequireFromString("1.1")
)

// DefaultScenarios generates the standard scenario set for a result. The
// target-reaching scenarios only appear while the driver is under target.
func DefaultScenarios(r Result) []Scenario {
	target := r.Details.BudgetKM
	actual := r.Details.ActualKM

	var scenarios []Scenario
	if target.IsPositive() && actual.LessThan(target) {
		scenarios = append(scenarios, Scenario{
			Name:         "Reach 100% Target",
			AdditionalKM: target.Sub(actual),
		})
	}
	scenarios = append(scenarios,
		Scenario{Name: "+10% More KM", AdditionalKM: actual.Mul(tenPercent)},
		Scenario{Name: "+500 KM", AdditionalKM: plus500},
		Scenario{Name: "+1,000 KM", AdditionalKM: plus1000},
	)
	if target.IsPositive() {
		stretch := target.Mul(oneTen)
		if actual.LessThan(stretch) {
			scenarios = append(scenarios, Scenario{
				Name:         "Reach 110% Target",
				AdditionalKM: stretch.Sub(actual),
			})
		}
	}
	return scenarios
}

// =============================================================================
// PROJECTION
// =============================================================================

// Project re-derives projected incentive and earnings for each scenario.
func Project(r Result, scenarios []Scenario) []ScenarioProjection {
	target := r.Details.BudgetKM

	projections := make([]ScenarioProjection, 0, len(scenarios))
	for _, s := range scenarios {
		projectedKM := r.Details.ActualKM.Add(s.AdditionalKM)

		// Fuel bonus intentionally excluded: it does not scale with km.
		projectedIncentive := projectedKM.Mul(r.Details.RatePerKM).
			Add(r.PerformanceBonus).
			Add(r.SafetyBonus)
		projectedEarnings := r.BaseSalary.Add(projectedIncentive)

		projectedAchievement := decimal.Zero
		if target.IsPositive() {
			projectedAchievement = projectedKM.Div(target).Mul(hundred)
		}

		projections = append(projections, ScenarioProjection{
			Name:                 s.Name,
			ProjectedKM:          projectedKM,
			ProjectedIncentive:   projectedIncentive,
			ProjectedEarnings:    projectedEarnings,
			ProjectedAchievement: projectedAchievement,
			Difference: ProjectionDiff{
				KM:          s.AdditionalKM,
				Incentive:   projectedIncentive.Sub(r.TotalIncentive),
				Earnings:    projectedEarnings.Sub(r.TotalEarnings),
				Achievement: projectedAchievement.Sub(r.AchievementPct),
			},
		})
	}
	return projections
}
