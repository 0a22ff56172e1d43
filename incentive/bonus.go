/*
bonus.go - Performance bonus evaluation

PURPOSE:
  Maps a driver's raw performance metrics to bonus line items using
  threshold tiers. Each metric is evaluated only if present on the
  performance record; an absent metric omits its bonus field entirely.

CUSTOM FORMULAS:
  The data model anticipates per-installation formula expressions, but no
  interpreter exists yet. An active formula row toggles which BonusPolicy is
  selected; today both paths are the same threshold tiers. BonusPolicy is
  the seam a future expression evaluator plugs into.

Pure functions throughout: no side effects, no errors. A malformed fuel tier
set simply yields no match.
*/
package incentive

import "github.com/shopspring/decimal"

// =============================================================================
// BONUS POLICY - Strategy for metric-to-bonus mapping
// =============================================================================

// BonusPolicy maps individual metric values to bonus amounts.
type BonusPolicy interface {
	SafetyBonus(score decimal.Decimal) decimal.Decimal
	OnTimeBonus(rate decimal.Decimal) decimal.Decimal
	CustomerBonus(rating decimal.Decimal) decimal.Decimal
}

// tierPolicy is the default threshold-tier policy.
type tierPolicy struct{}

var defaultPolicy BonusPolicy = tierPolicy{}

var (
	safetyHighScore  = decimal.NewFromInt(95)
	safetyMidScore   = decimal.NewFromInt(90)
	safetyHighBonus  = decimal.NewFromInt(500)
	safetyMidBonus   = decimal.NewFromInt(300)
	onTimeHighRate   = decimal.NewFromInt(98)
	onTimeMidRate    = decimal.NewFromInt(95)
	onTimeHighBonus  = decimal.NewFromInt(300)
	onTimeMidBonus   = decimal.NewFromInt(200)
	ratingHigh       = decimal.RequireFromString("4.8")
	ratingMid        = decimal.RequireFromString("4.5")
	ratingHighBonus  = decimal.NewFromInt(200)
	ratingMidBonus   = decimal.NewFromInt(100)
)

func (tierPolicy) SafetyBonus(score decimal.Decimal) decimal.Decimal {
	switch {
	case score.GreaterThanOrEqual(safetyHighScore):
		return safetyHighBonus
	case score.GreaterThanOrEqual(safetyMidScore):
		return safetyMidBonus
	default:
		return decimal.Zero
	}
}

func (tierPolicy) OnTimeBonus(rate decimal.Decimal) decimal.Decimal {
	switch {
	case rate.GreaterThanOrEqual(onTimeHighRate):
		return onTimeHighBonus
	case rate.GreaterThanOrEqual(onTimeMidRate):
		return onTimeMidBonus
	default:
		return decimal.Zero
	}
}

func (tierPolicy) CustomerBonus(rating decimal.Decimal) decimal.Decimal {
	switch {
	case rating.GreaterThanOrEqual(ratingHigh):
		return ratingHighBonus
	case rating.GreaterThanOrEqual(ratingMid):
		return ratingMidBonus
	default:
		return decimal.Zero
	}
}

// policyFor selects the bonus policy from active custom formulas. An active
// safety_bonus formula currently selects the same tier policy as the
// default; Expression is inert until a formula interpreter exists.
func policyFor(formulas []CustomFormula) BonusPolicy {
	if HasActiveFormula(formulas, FormulaKeySafetyBonus) {
		return defaultPolicy
	}
	return defaultPolicy
}

// HasActiveFormula reports whether an active formula exists for the key.
func HasActiveFormula(formulas []CustomFormula, key string) bool {
	for _, f := range formulas {
		if f.Active && f.Key == key {
			return true
		}
	}
	return false
}

// =============================================================================
// BONUS EVALUATION
// =============================================================================

// EvaluateBonus produces the bonus breakdown for one performance record.
// A nil metric omits its field; a disabled fuel configuration omits the
// fuel field. If the fuel configuration is enabled but no tier matches,
// the fuel bonus is zero, not omitted.
func EvaluateBonus(p Performance, formulas []CustomFormula, fuel FuelBonusConfig) BonusBreakdown {
	policy := policyFor(formulas)

	var b BonusBreakdown
	if p.SafetyScore != nil {
		v := policy.SafetyBonus(*p.SafetyScore)
		b.SafetyBonus = &v
	}
	if p.OnTimeRate != nil {
		v := policy.OnTimeBonus(*p.OnTimeRate)
		b.OnTimeBonus = &v
	}
	if p.CustomerRating != nil {
		v := policy.CustomerBonus(*p.CustomerRating)
		b.CustomerBonus = &v
	}
	if p.FuelEfficiency != nil && fuel.Enabled && len(fuel.Tiers) > 0 {
		v := fuelBonus(*p.FuelEfficiency, fuel.Tiers)
		b.FuelEfficiencyBonus = &v
	}
	return b
}

// fuelBonus finds the tier where min <= value < max. Half-open on purpose:
// a value exactly at a tier's max belongs to the next tier.
func fuelBonus(value decimal.Decimal, tiers []FuelTier) decimal.Decimal {
	for _, t := range tiers {
		if value.GreaterThanOrEqual(t.MinEfficiency) && value.LessThan(t.MaxEfficiency) {
			return t.Bonus
		}
	}
	return decimal.Zero
}
