/*
seed.go - Demo dataset loader

Loads a small but complete fleet into the store: local and export drivers,
a period budget, divisor and fuel-tier settings, salary history, and a
conversion rate. Intended for development and demos; seeding is idempotent
for keyed rows (drivers, performance, budgets) and append-only for settings.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/incentive-engine/incentive"
)

// SeedRequest selects the period to seed. Zero values default to the
// previous calendar month.
type SeedRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Seed loads the demo dataset.
// POST /api/seed
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if !validPeriod(req.Year, req.Month) {
		prev := time.Now().AddDate(0, -1, 0)
		req.Year, req.Month = prev.Year(), int(prev.Month())
	}

	if err := h.seedDemo(r.Context(), req.Year, req.Month); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"seeded": true,
		"year":   req.Year,
		"month":  req.Month,
	})
}

func (h *Handler) seedDemo(ctx context.Context, year, month int) error {
	dec := decimal.RequireFromString
	ptr := func(s string) *decimal.Decimal {
		d := dec(s)
		return &d
	}

	drivers := []incentive.Driver{
		{ID: "D-001", Name: "Tendai Moyo", Type: incentive.DriverLocal,
			BaseSalaryUSD: dec("650"), BaseSalaryZIG: dec("0"), Status: incentive.DriverActive},
		{ID: "D-002", Name: "Blessing Chikwava", Type: incentive.DriverLocal,
			BaseSalaryUSD: dec("600"), BaseSalaryZIG: dec("5300"), Status: incentive.DriverActive},
		{ID: "D-003", Name: "Farai Ncube", Type: incentive.DriverExport,
			BaseSalaryUSD: dec("900"), BaseSalaryZIG: dec("0"), Status: incentive.DriverActive},
		{ID: "D-004", Name: "Simba Dube", Type: incentive.DriverLocal,
			BaseSalaryUSD: dec("620"), BaseSalaryZIG: dec("0"), Status: incentive.DriverInactive},
	}
	for _, d := range drivers {
		if err := h.Store.SaveDriver(ctx, d); err != nil {
			return err
		}
	}

	performance := []incentive.Performance{
		{DriverID: "D-001", Year: year, Month: month, ActualKM: dec("5402"),
			SafetyScore: ptr("96"), OnTimeRate: ptr("98.5"), CustomerRating: ptr("4.9"), FuelEfficiency: ptr("2.6")},
		{DriverID: "D-002", Year: year, Month: month, ActualKM: dec("3980"),
			SafetyScore: ptr("91"), OnTimeRate: ptr("95.2"), CustomerRating: ptr("4.6")},
		{DriverID: "D-003", Year: year, Month: month, ActualKM: dec("8750"),
			SafetyScore: ptr("88"), CustomerRating: ptr("4.2")},
	}
	for _, p := range performance {
		if err := h.Store.SavePerformance(ctx, p); err != nil {
			return err
		}
	}

	budgets := []incentive.MonthlyBudget{
		{Year: year, Month: month, DriverType: incentive.DriverLocal,
			BudgetedKM: dec("63681.86"), TruckCount: 4},
		{Year: year, Month: month, DriverType: incentive.DriverExport,
			BudgetedKM: dec("54000"), TruckCount: 3},
	}
	for _, b := range budgets {
		if err := h.Store.SaveBudget(ctx, b); err != nil {
			return err
		}
	}

	fuelTiers, _ := json.Marshal(incentive.FuelBonusConfig{
		Enabled: true,
		Tiers: []incentive.FuelTier{
			{MinEfficiency: dec("2.5"), MaxEfficiency: dec("3.0"), Bonus: dec("150")},
			{MinEfficiency: dec("3.0"), MaxEfficiency: dec("100"), Bonus: dec("250")},
		},
	})
	settings := []incentive.Setting{
		{Key: incentive.SettingDivisorLocal, Value: "1000", Active: true},
		{Key: incentive.SettingDivisorExport, Value: "1000", Active: true},
		{Key: incentive.SettingFuelBonusLocal, Value: string(fuelTiers), Active: true},
	}
	for _, s := range settings {
		if err := h.Store.SaveSetting(ctx, s); err != nil {
			return err
		}
	}

	history := []incentive.SalaryHistory{
		{DriverID: "D-002", Year: year, Month: month,
			BaseSalaryUSD: dec("600"), BaseSalaryZIG: dec("5300")},
	}
	for _, sh := range history {
		if err := h.Store.SaveSalaryHistory(ctx, sh); err != nil {
			return err
		}
	}

	return h.Store.SaveConversionRate(ctx, incentive.ConversionRate{
		Year: year, Month: month, Rate: dec("26.5"),
	})
}
