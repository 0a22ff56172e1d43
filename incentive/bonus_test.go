package incentive_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/incentive-engine/incentive"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func standardFuelConfig() incentive.FuelBonusConfig {
	return incentive.FuelBonusConfig{
		Enabled: true,
		Tiers: []incentive.FuelTier{
			{MinEfficiency: dec("2.5"), MaxEfficiency: dec("3.0"), Bonus: dec("150")},
			{MinEfficiency: dec("3.0"), MaxEfficiency: dec("100"), Bonus: dec("250")},
		},
	}
}

// =============================================================================
// THRESHOLD TIER TESTS
// =============================================================================

func TestEvaluateBonus_SafetyTiers(t *testing.T) {
	cases := []struct {
		name  string
		score string
		bonus string
	}{
		{"top tier at boundary", "95", "500"},
		{"top tier above", "99.5", "500"},
		{"mid tier at boundary", "90", "300"},
		{"mid tier just below top", "94.99", "300"},
		{"below all tiers", "89.99", "0"},
		{"zero score", "0", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := incentive.Performance{SafetyScore: decPtr(tc.score)}
			b := incentive.EvaluateBonus(p, nil, incentive.FuelBonusConfig{})

			require.NotNil(t, b.SafetyBonus)
			assert.True(t, b.SafetyBonus.Equal(dec(tc.bonus)),
				"score %s: expected %s, got %s", tc.score, tc.bonus, b.SafetyBonus)
		})
	}
}

func TestEvaluateBonus_OnTimeTiers(t *testing.T) {
	cases := []struct {
		rate  string
		bonus string
	}{
		{"98", "300"},
		{"100", "300"},
		{"95", "200"},
		{"97.9", "200"},
		{"94.99", "0"},
	}

	for _, tc := range cases {
		p := incentive.Performance{OnTimeRate: decPtr(tc.rate)}
		b := incentive.EvaluateBonus(p, nil, incentive.FuelBonusConfig{})

		require.NotNil(t, b.OnTimeBonus)
		assert.True(t, b.OnTimeBonus.Equal(dec(tc.bonus)),
			"rate %s: expected %s, got %s", tc.rate, tc.bonus, b.OnTimeBonus)
	}
}

func TestEvaluateBonus_CustomerRatingTiers(t *testing.T) {
	cases := []struct {
		rating string
		bonus  string
	}{
		{"4.8", "200"},
		{"5.0", "200"},
		{"4.5", "100"},
		{"4.79", "100"},
		{"4.49", "0"},
	}

	for _, tc := range cases {
		p := incentive.Performance{CustomerRating: decPtr(tc.rating)}
		b := incentive.EvaluateBonus(p, nil, incentive.FuelBonusConfig{})

		require.NotNil(t, b.CustomerBonus)
		assert.True(t, b.CustomerBonus.Equal(dec(tc.bonus)),
			"rating %s: expected %s, got %s", tc.rating, tc.bonus, b.CustomerBonus)
	}
}

// =============================================================================
// ABSENT METRIC TESTS
// =============================================================================

func TestEvaluateBonus_AbsentMetricsOmitFields(t *testing.T) {
	// GIVEN: A performance record with no optional metrics at all
	// WHEN: Evaluating bonuses
	// THEN: Every bonus field is nil, not zero

	p := incentive.Performance{ActualKM: dec("4000")}
	b := incentive.EvaluateBonus(p, nil, standardFuelConfig())

	assert.Nil(t, b.SafetyBonus)
	assert.Nil(t, b.OnTimeBonus)
	assert.Nil(t, b.CustomerBonus)
	assert.Nil(t, b.FuelEfficiencyBonus)
}

func TestEvaluateBonus_PresentMetricBelowTierIsZeroNotNil(t *testing.T) {
	// A captured metric that earns nothing still shows up as an explicit
	// zero; only an uncaptured metric omits the field.
	p := incentive.Performance{SafetyScore: decPtr("50")}
	b := incentive.EvaluateBonus(p, nil, incentive.FuelBonusConfig{})

	require.NotNil(t, b.SafetyBonus)
	assert.True(t, b.SafetyBonus.IsZero())
}

// =============================================================================
// FUEL TIER TESTS
// =============================================================================

func TestEvaluateBonus_FuelTiers_HalfOpenIntervals(t *testing.T) {
	// GIVEN: Tiers [2.5, 3.0) -> 150 and [3.0, 100) -> 250
	// THEN: A value exactly at 3.0 belongs to the second tier

	cases := []struct {
		efficiency string
		bonus      string
	}{
		{"2.5", "150"},  // inclusive lower bound
		{"2.99", "150"}, // inside first tier
		{"3.0", "250"},  // exclusive upper bound of first tier
		{"99.99", "250"},
		{"100", "0"}, // beyond all tiers
		{"2.49", "0"},
	}

	fuel := standardFuelConfig()
	for _, tc := range cases {
		p := incentive.Performance{FuelEfficiency: decPtr(tc.efficiency)}
		b := incentive.EvaluateBonus(p, nil, fuel)

		require.NotNil(t, b.FuelEfficiencyBonus, "efficiency %s", tc.efficiency)
		assert.True(t, b.FuelEfficiencyBonus.Equal(dec(tc.bonus)),
			"efficiency %s: expected %s, got %s", tc.efficiency, tc.bonus, b.FuelEfficiencyBonus)
	}
}

func TestEvaluateBonus_FuelDisabledOmitsField(t *testing.T) {
	p := incentive.Performance{FuelEfficiency: decPtr("2.8")}

	disabled := standardFuelConfig()
	disabled.Enabled = false
	b := incentive.EvaluateBonus(p, nil, disabled)
	assert.Nil(t, b.FuelEfficiencyBonus)

	empty := incentive.FuelBonusConfig{Enabled: true}
	b = incentive.EvaluateBonus(p, nil, empty)
	assert.Nil(t, b.FuelEfficiencyBonus, "enabled config with no tiers behaves as disabled")
}

// =============================================================================
// CUSTOM FORMULA TESTS
// =============================================================================

func TestHasActiveFormula(t *testing.T) {
	formulas := []incentive.CustomFormula{
		{Name: "old safety", Key: incentive.FormulaKeySafetyBonus, Active: false},
		{Name: "other", Key: "on_time_bonus", Active: true},
	}
	assert.False(t, incentive.HasActiveFormula(formulas, incentive.FormulaKeySafetyBonus))

	formulas = append(formulas, incentive.CustomFormula{
		Name: "new safety", Key: incentive.FormulaKeySafetyBonus, Active: true,
	})
	assert.True(t, incentive.HasActiveFormula(formulas, incentive.FormulaKeySafetyBonus))
}

func TestEvaluateBonus_ActiveFormulaKeepsTierResults(t *testing.T) {
	// The formula expression is an inert extension point: an active
	// safety_bonus formula must not change the computed numbers today.
	p := incentive.Performance{SafetyScore: decPtr("96")}
	formulas := []incentive.CustomFormula{
		{Name: "custom", Key: incentive.FormulaKeySafetyBonus, Expression: "score * 10", Active: true},
	}

	withFormula := incentive.EvaluateBonus(p, formulas, incentive.FuelBonusConfig{})
	withoutFormula := incentive.EvaluateBonus(p, nil, incentive.FuelBonusConfig{})

	require.NotNil(t, withFormula.SafetyBonus)
	require.NotNil(t, withoutFormula.SafetyBonus)
	assert.True(t, withFormula.SafetyBonus.Equal(*withoutFormula.SafetyBonus))
}
