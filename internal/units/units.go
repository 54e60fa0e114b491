// Package units normalizes label units and converts amounts within the mass
// family (gram, milligram, microgram).
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Canonical unit symbols.
const (
	Gram        = "g"
	Milligram   = "mg"
	Microgram   = "μg"
	Kilocalorie = "kcal"
	Milliliter  = "ml"
	Each        = "ea"
	Percent     = "%"
	CFU         = "cfu"
)

// massExponent is the power of ten separating each mass unit from the gram.
var massExponent = map[string]int{
	Gram:      0,
	Milligram: 3,
	Microgram: 6,
}

var unitAliases = map[string]string{
	"ug":   Microgram,
	"mcg":  Microgram,
	"µg":   Microgram, // micro sign U+00B5
	"그램":   Gram,
	"밀리그램": Milligram,
	"밀리리터": Milliliter,
	"ml":   Milliliter,
	"㎖":    Milliliter,
	"㎎":    Milligram,
	"㎍":    Microgram,
	"㎉":    Kilocalorie,
	"개":    Each,
}

// Canonical lowercases a unit token, strips internal whitespace and maps known
// spellings onto the canonical symbol.
func Canonical(unit string) string {
	u := strings.ToLower(strings.Join(strings.Fields(unit), ""))
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}

// Conversion is the outcome of converting an amount between two units.
// OK is false when no conversion exists; Value then holds the input unchanged.
type Conversion struct {
	Value float64
	Unit  string
	OK    bool
}

// Convert converts value from one unit to another. Identical units and pairs
// within the mass family convert; every other pair is returned unchanged with
// OK set to false.
func Convert(value float64, from, to string) Conversion {
	f, t := Canonical(from), Canonical(to)
	if f == t {
		return Conversion{Value: value, Unit: t, OK: true}
	}
	fe, fok := massExponent[f]
	te, tok := massExponent[t]
	if !fok || !tok {
		return Conversion{Value: value, Unit: f, OK: false}
	}
	diff := te - fe
	if diff > 0 {
		return Conversion{Value: value * math.Pow10(diff), Unit: t, OK: true}
	}
	return Conversion{Value: value / math.Pow10(-diff), Unit: t, OK: true}
}

// Normalize converts value to toUnit, returning the input unchanged when the
// pair cannot be converted. Use Convert to tell the two cases apart.
func Normalize(value float64, from, to string) float64 {
	return Convert(value, from, to).Value
}

// IsMass reports whether unit belongs to the gram family.
func IsMass(unit string) bool {
	_, ok := massExponent[Canonical(unit)]
	return ok
}

// RoundTo rounds half away from zero to the given number of decimals.
func RoundTo(value float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(value*p) / p
}

// FormatAmount renders an amount for display: energy as an integer, values
// of at least one with one decimal, smaller values with two.
func FormatAmount(value float64, unit string) string {
	var rounded float64
	switch {
	case Canonical(unit) == Kilocalorie:
		rounded = RoundTo(value, 0)
	case math.Abs(value) >= 1:
		rounded = RoundTo(value, 1)
	default:
		rounded = RoundTo(value, 2)
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9가-힣._-]`)
	repeatedUnderscore  = regexp.MustCompile(`_+`)
)

// SanitizeFilename replaces characters outside [A-Za-z0-9가-힣._-] with
// underscores and caps the result at 200 runes.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "_")
	s = repeatedUnderscore.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200])
	}
	return s
}
