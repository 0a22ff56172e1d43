/*
settings.go - Typed configuration from the key/value settings table

The settings table is a flat key/value store scanned for is_active rows.
Rather than ambient lookups during calculation, the rows are folded once per
batch run into a typed Settings struct keyed by driver type and passed
explicitly to the calculators.
*/
package incentive

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TypeSettings is the calculation configuration for one driver type.
type TypeSettings struct {
	Divisor decimal.Decimal
	Fuel    FuelBonusConfig
}

// Settings holds the per-driver-type configuration for a run.
type Settings struct {
	Local  TypeSettings
	Export TypeSettings
}

// ForType returns the settings for a driver type. Unknown types get the
// local settings; in practice DriverType is a closed set.
func (s *Settings) ForType(t DriverType) TypeSettings {
	if t == DriverExport {
		return s.Export
	}
	return s.Local
}

// DefaultTypeSettings is the fallback when a setting row is missing or
// inactive: divisor 1 and fuel bonuses disabled.
func DefaultTypeSettings() TypeSettings {
	return TypeSettings{Divisor: decimal.NewFromInt(1), Fuel: FuelBonusConfig{}}
}

// LoadSettings folds raw setting rows into a typed Settings struct. Only
// active rows are honored; unparseable values fall back to the defaults the
// same way a missing row does.
func LoadSettings(rows []Setting) *Settings {
	s := &Settings{Local: DefaultTypeSettings(), Export: DefaultTypeSettings()}

	for _, row := range rows {
		if !row.Active {
			continue
		}
		switch row.Key {
		case SettingDivisorLocal:
			if d, err := decimal.NewFromString(row.Value); err == nil && d.IsPositive() {
				s.Local.Divisor = d
			}
		case SettingDivisorExport:
			if d, err := decimal.NewFromString(row.Value); err == nil && d.IsPositive() {
				s.Export.Divisor = d
			}
		case SettingFuelBonusLocal:
			if cfg, ok := parseFuelConfig(row.Value); ok {
				s.Local.Fuel = cfg
			}
		case SettingFuelBonusExport:
			if cfg, ok := parseFuelConfig(row.Value); ok {
				s.Export.Fuel = cfg
			}
		}
	}
	return s
}

func parseFuelConfig(value string) (FuelBonusConfig, bool) {
	var cfg FuelBonusConfig
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return FuelBonusConfig{}, false
	}
	return cfg, true
}
