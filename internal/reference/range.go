package reference

import (
	"regexp"
	"strconv"

	"nutrilabel/internal/units"
)

// Range is an acceptable daily intake interval in a canonical unit.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit string  `json:"unit"`
}

// Midpoint is the optimal amount used for compliance percentages.
func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// 억 multiplies a count by 10^8 (probiotic CFU counts).
const eok = 1e8

var (
	rangePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(억)?\s*~\s*(\d+(?:\.\d+)?)\s*(억)?\s*([a-zA-Zμµ]+)`)
	pointPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(억)?\s*([a-zA-Zμµ]+)`)
)

// ParseRange extracts an intake range from reference text such as
// "100~1000mg", "210~850μg RE" or "1억~100억 CFU". A single amount
// ("실리마린 130mg") yields a point range. Text without an amount yields nil.
func ParseRange(text string) *Range {
	if m := rangePattern.FindStringSubmatch(text); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[3], 64)
		if err1 == nil && err2 == nil {
			if m[2] != "" {
				lo *= eok
			}
			if m[4] != "" {
				hi *= eok
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			return &Range{Min: lo, Max: hi, Unit: units.Canonical(m[5])}
		}
	}
	if m := pointPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if m[2] != "" {
				v *= eok
			}
			return &Range{Min: v, Max: v, Unit: units.Canonical(m[3])}
		}
	}
	return nil
}
