/*
salary.go - Historical salary resolution with currency normalization

A driver's live base_salary fields describe today, not the period being
calculated. For a given (year, month):

  1. An exact salary-history match for the period wins.
  2. Otherwise the most recent history record strictly before the period
     (ordered year desc, then month desc) wins.
  3. Otherwise the driver's current salary fields apply.

The ZIG component is converted at that period's rate; a missing rate means
no conversion (rate 1), not free money. The returned USD-equivalent total is
the correct base salary input for historical calculations.
*/
package incentive

import "github.com/shopspring/decimal"

// ResolveBaseSalary returns the USD-equivalent base salary for a driver at
// the given period: usd + zig / rate.
func ResolveBaseSalary(d Driver, history []SalaryHistory, rates []ConversionRate, year, month int) decimal.Decimal {
	usd, zig := resolveSalaryParts(d, history, year, month)
	rate := ResolveRate(rates, year, month)
	return usd.Add(zig.Div(rate))
}

// ResolveRate returns the ZIG-per-USD rate for the period, defaulting to 1
// when no rate record exists.
func ResolveRate(rates []ConversionRate, year, month int) decimal.Decimal {
	for _, r := range rates {
		if r.Year == year && r.Month == month && r.Rate.IsPositive() {
			return r.Rate
		}
	}
	return decimal.NewFromInt(1)
}

func resolveSalaryParts(d Driver, history []SalaryHistory, year, month int) (usd, zig decimal.Decimal) {
	var best *SalaryHistory
	for i := range history {
		h := history[i]
		if h.DriverID != d.ID {
			continue
		}
		if h.Year == year && h.Month == month {
			return h.BaseSalaryUSD, h.BaseSalaryZIG
		}
		if !beforePeriod(h.Year, h.Month, year, month) {
			continue
		}
		if best == nil || afterPeriod(h.Year, h.Month, best.Year, best.Month) {
			best = &history[i]
		}
	}
	if best != nil {
		return best.BaseSalaryUSD, best.BaseSalaryZIG
	}
	return d.BaseSalaryUSD, d.BaseSalaryZIG
}

func beforePeriod(y, m, refY, refM int) bool {
	return y < refY || (y == refY && m < refM)
}

func afterPeriod(y, m, refY, refM int) bool {
	return y > refY || (y == refY && m > refM)
}
