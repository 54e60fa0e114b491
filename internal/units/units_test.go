package units

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"mg":    Milligram,
		"MG":    Milligram,
		" m g ": Milligram,
		"ug":    Microgram,
		"mcg":   Microgram,
		"µg":    Microgram,
		"μg":    Microgram,
		"그램":    Gram,
		"ML":    Milliliter,
		"kcal":  Kilocalorie,
		"CFU":   CFU,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Canonical(in))
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
		ok       bool
	}{
		{"g to mg", 1.5, "g", "mg", 1500, true},
		{"mg to g", 1500, "mg", "g", 1.5, true},
		{"mg to ug", 2, "mg", "μg", 2000, true},
		{"ug to mg", 850, "mcg", "mg", 0.85, true},
		{"g to ug", 0.001, "g", "μg", 1000, true},
		{"identity", 42, "kcal", "kcal", 42, true},
		{"identity alias", 5, "ug", "mcg", 5, true},
		{"incompatible", 10, "kcal", "g", 10, false},
		{"unknown", 10, "IU", "mg", 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.value, tt.from, tt.to)
			assert.Equal(t, tt.ok, got.OK)
			assert.InDelta(t, tt.want, got.Value, 1e-9)
			assert.InDelta(t, tt.want, Normalize(tt.value, tt.from, tt.to), 1e-9)
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	mass := []string{Gram, Milligram, Microgram}
	values := []float64{0, 0.36, 1, 12.5, 850, 1500, 123456.789}
	for _, a := range mass {
		for _, b := range mass {
			for _, v := range values {
				there := Convert(v, a, b)
				back := Convert(there.Value, b, a)
				assert.True(t, there.OK && back.OK)
				assert.InDelta(t, v, back.Value, 1e-9*max(1, v), "%v %s->%s", v, a, b)
			}
		}
	}
}

func TestIsMass(t *testing.T) {
	assert.True(t, IsMass("mg"))
	assert.True(t, IsMass("mcg"))
	assert.False(t, IsMass("kcal"))
	assert.False(t, IsMass("ml"))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 75.0, RoundTo(75.04, 1))
	assert.Equal(t, 75.1, RoundTo(75.05, 1))
	assert.Equal(t, 3.0, RoundTo(2.5, 0))
	assert.Equal(t, -3.0, RoundTo(-2.5, 0))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{250.6, "kcal", "251"},
		{1500, "mg", "1500"},
		{12.34, "g", "12.3"},
		{0.456, "mg", "0.46"},
		{0, "g", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.value, tt.unit))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "label_scan_01_.png", SanitizeFilename("label scan (01).png"))
	assert.Equal(t, "영양_정보.pdf", SanitizeFilename("영양 정보.pdf"))
	assert.Equal(t, "a_b", SanitizeFilename("a / \\ b"))

	long := SanitizeFilename(strings.Repeat("가", 300))
	assert.Len(t, []rune(long), 200)
}
