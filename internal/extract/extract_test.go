package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilabel/internal/reference"
	"nutrilabel/pkg/models"
)

const sampleLabel = `영양정보
총 내용량 300g
1회 제공량: 30g
열량 120kcal
나트륨: 1500mg
탄수화물 22g
당류 0,5g
지방 3.5g
포화지방 1g
트랜스지방 0g
콜레스테롤 10mg
단백질 4g
비타민C 1200mg`

func TestExtractSample(t *testing.T) {
	res := Extract(sampleLabel)

	require.NotNil(t, res.ServingSize)
	assert.Equal(t, models.ServingSize{Value: 30, Unit: "g"}, *res.ServingSize)

	want := models.Nutrients{
		"energy":        {Value: 120, Unit: "kcal"},
		"sodium":        {Value: 1500, Unit: "mg"},
		"carbohydrate":  {Value: 22, Unit: "g"},
		"sugar":         {Value: 0.5, Unit: "g"},
		"fat_total":     {Value: 3.5, Unit: "g"},
		"fat_saturated": {Value: 1, Unit: "g"},
		"fat_trans":     {Value: 0, Unit: "g"},
		"cholesterol":   {Value: 10, Unit: "mg"},
		"protein":       {Value: 4, Unit: "g"},
		"vitamin_c":     {Value: 1200, Unit: "mg"},
	}
	assert.Equal(t, want, res.Nutrients)
}

func TestExtractLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		key  models.NutrientKey
		want models.Nutrient
	}{
		{"sodium with colon", "나트륨: 1500mg", "sodium", models.Nutrient{Value: 1500, Unit: "mg"}},
		{"english label", "Sodium 230 mg", "sodium", models.Nutrient{Value: 230, Unit: "mg"}},
		{"thousands separator", "나트륨 1,500mg", "sodium", models.Nutrient{Value: 1500, Unit: "mg"}},
		{"decimal comma", "단백질 12,5g", "protein", models.Nutrient{Value: 12.5, Unit: "g"}},
		{"total fat", "Total Fat 10g", "fat_total", models.Nutrient{Value: 10, Unit: "g"}},
		{"saturated english", "Saturated Fat 3g", "fat_saturated", models.Nutrient{Value: 3, Unit: "g"}},
		{"energy", "Calories 250 kcal", "energy", models.Nutrient{Value: 250, Unit: "kcal"}},
		{"microgram alias", "Vitamin D 10mcg", "vitamin_d", models.Nutrient{Value: 10, Unit: "μg"}},
		{"vitamin b12", "비타민B12 2.4ug", "vitamin_b12", models.Nutrient{Value: 2.4, Unit: "μg"}},
		{"qualifier", "비타민B1(티아민) 1.2mg", "vitamin_b1", models.Nutrient{Value: 1.2, Unit: "mg"}},
		{"iron", "철분 12mg", "iron", models.Nutrient{Value: 12, Unit: "mg"}},
		{"omega3", "EPA 및 DHA의 합 1,000mg", "omega3", models.Nutrient{Value: 1000, Unit: "mg"}},
		{"probiotics", "프로바이오틱스 100억 CFU", "probiotics", models.Nutrient{Value: 1e10, Unit: "cfu"}},
		{"probiotics plain", "Probiotics 5000000 CFU", "probiotics", models.Nutrient{Value: 5e6, Unit: "cfu"}},
		{"korean unit", "칼슘 300밀리그램", "calcium", models.Nutrient{Value: 300, Unit: "mg"}},
		{"negative artifact", "당류 -2g", "sugar", models.Nutrient{Value: -2, Unit: "g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNutrients(tt.text)
			require.Contains(t, got, tt.key)
			assert.Equal(t, tt.want, got[tt.key])
		})
	}
}

func TestExtractDistinguishesSimilarLabels(t *testing.T) {
	t.Run("b12 is not b1", func(t *testing.T) {
		got := ExtractNutrients("비타민B12 2.4μg")
		assert.NotContains(t, got, models.NutrientKey("vitamin_b1"))
		assert.Contains(t, got, models.NutrientKey("vitamin_b12"))
	})

	t.Run("saturated fat is not total fat", func(t *testing.T) {
		got := ExtractNutrients("포화지방 3g\n트랜스지방 0.2g")
		assert.NotContains(t, got, models.NutrientKey("fat_total"))
		assert.Equal(t, 3.0, got["fat_saturated"].Value)
		assert.Equal(t, 0.2, got["fat_trans"].Value)
	})

	t.Run("total fat after saturated on one line", func(t *testing.T) {
		got := ExtractNutrients("포화지방 3g 지방 10g")
		assert.Equal(t, 10.0, got["fat_total"].Value)
		assert.Equal(t, 3.0, got["fat_saturated"].Value)
	})

	t.Run("phosphorus needs a standalone label", func(t *testing.T) {
		got := ExtractNutrients("칼슘 210mg 인 300mg")
		assert.Equal(t, 210.0, got["calcium"].Value)
		assert.Equal(t, 300.0, got["phosphorus"].Value)

		got = ExtractNutrients("비타민 100mg")
		assert.NotContains(t, got, models.NutrientKey("phosphorus"))
	})

	t.Run("unit outside the rule is ignored", func(t *testing.T) {
		got := ExtractNutrients("단백질 20kcal")
		assert.NotContains(t, got, models.NutrientKey("protein"))
	})
}

func TestFirstOccurrenceWins(t *testing.T) {
	got := ExtractNutrients("나트륨 100mg\n나트륨 900mg")
	assert.Equal(t, 100.0, got["sodium"].Value)
}

func TestExtractEmptyAndGarbage(t *testing.T) {
	for _, text := range []string{"", "   \n\r\n  ", "@@##!! ~~ ????", "나트륨 mg", "1회 제공량: g"} {
		res := Extract(text)
		assert.Empty(t, res.Nutrients, "text %q", text)
		assert.Nil(t, res.ServingSize, "text %q", text)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	assert.Equal(t, Extract(sampleLabel), Extract(sampleLabel))
}

func TestExtractCRLF(t *testing.T) {
	got := ExtractNutrients("열량 200kcal\r\n나트륨 300mg\r\n")
	assert.Equal(t, 200.0, got["energy"].Value)
	assert.Equal(t, 300.0, got["sodium"].Value)
}

func TestExtractServingSize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *models.ServingSize
	}{
		{"labelled", "1회 제공량: 30g", &models.ServingSize{Value: 30, Unit: "g"}},
		{"labelled wins over earlier amount", "지방 3g\n1회 제공량 30g", &models.ServingSize{Value: 30, Unit: "g"}},
		{"count with weight", "1회 제공량 1포(20g)", &models.ServingSize{Value: 20, Unit: "g"}},
		{"tablets", "1회 섭취량 2정", &models.ServingSize{Value: 2, Unit: "ea"}},
		{"english", "Serving Size 250 mL", &models.ServingSize{Value: 250, Unit: "ml"}},
		{"net content", "총 내용량 500ml", &models.ServingSize{Value: 500, Unit: "ml"}},
		{"generic fallback", "contents 45 g", &models.ServingSize{Value: 45, Unit: "g"}},
		{"korean unit", "내용량 100그램", &models.ServingSize{Value: 100, Unit: "g"}},
		{"milligrams are not servings", "나트륨 1500mg", nil},
		{"zero skipped", "1회 제공량 0g\n35g", &models.ServingSize{Value: 35, Unit: "g"}},
		{"none", "열량 100kcal", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractServingSize(tt.text))
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1500", 1500, true},
		{"1,500", 1500, true},
		{"2,000", 2000, true},
		{"0,500", 0.5, true},
		{"12,5", 12.5, true},
		{"3.25", 3.25, true},
		{"-2", -2, true},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractThousandsSeparator(t *testing.T) {
	nutrients := ExtractNutrients("나트륨 1,500mg\n당류 0,5g")

	require.Contains(t, nutrients, models.NutrientKey("sodium"))
	assert.Equal(t, 1500.0, nutrients["sodium"].Value)
	assert.Equal(t, "mg", nutrients["sodium"].Unit)

	require.Contains(t, nutrients, models.NutrientKey("sugar"))
	assert.Equal(t, 0.5, nutrients["sugar"].Value)
}

func TestRulesCoverReferenceKeys(t *testing.T) {
	seen := make(map[models.NutrientKey]bool)
	for _, r := range Rules() {
		assert.False(t, seen[r.Key], "duplicate rule for %s", r.Key)
		seen[r.Key] = true
		assert.True(t, reference.Known(r.Key), "rule key %s missing from reference tables", r.Key)
	}
	for _, key := range reference.NutrientKeys() {
		assert.True(t, seen[key], "no rule for nutrient %s", key)
	}
}
