// Package dv computes percentage of daily value for label nutrients and
// grades each nutrient against its reference intake.
package dv

import (
	"nutrilabel/internal/reference"
	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// Calculate returns value as a percentage of the reference daily value for
// key, rounded half-up to one decimal. The amount is converted to the
// reference unit first. Keys without a reference entry yield 0.
func Calculate(key models.NutrientKey, value float64, unit string) float64 {
	std, ok := reference.Nutrient(key)
	if !ok {
		return 0
	}
	amount := units.Normalize(value, unit, std.Unit)
	return units.RoundTo(amount/std.DailyValue*100, 1)
}

// CalculateAll applies Calculate to every entry, omitting unrated and
// non-positive results.
func CalculateAll(nutrients models.Nutrients) models.DailyValues {
	out := make(models.DailyValues)
	for key, n := range nutrients {
		if pct := Calculate(key, n.Value, n.Unit); pct > 0 {
			out[key] = pct
		}
	}
	return out
}

// Annotate returns a copy of nutrients with PercentDV set from dv.
func Annotate(nutrients models.Nutrients, dv models.DailyValues) models.Nutrients {
	out := make(models.Nutrients, len(nutrients))
	for key, n := range nutrients {
		if pct, ok := dv[key]; ok {
			p := pct
			n.PercentDV = &p
		}
		out[key] = n
	}
	return out
}
