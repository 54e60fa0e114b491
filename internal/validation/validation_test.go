package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilabel/pkg/models"
)

func validLabel() *models.Label {
	return &models.Label{
		ServingSize: &models.ServingSize{Value: 30, Unit: "g"},
		Nutrients: models.Nutrients{
			"energy":       {Value: 120, Unit: "kcal"},
			"protein":      {Value: 3, Unit: "g"},
			"fat_total":    {Value: 4, Unit: "g"},
			"carbohydrate": {Value: 22, Unit: "g"},
			"sodium":       {Value: 150, Unit: "mg"},
		},
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Label)
		fields []string
	}{
		{
			name:   "valid",
			mutate: func(*models.Label) {},
		},
		{
			name: "optional nutrient and functional ingredients",
			mutate: func(l *models.Label) {
				l.Nutrients["sugar"] = models.Nutrient{Value: 5, Unit: "g"}
				l.Nutrients["vitamin_b12"] = models.Nutrient{Value: 2.4, Unit: "μg"}
				l.Nutrients["probiotics"] = models.Nutrient{Value: 1e9, Unit: "cfu"}
			},
		},
		{
			name:   "missing serving size",
			mutate: func(l *models.Label) { l.ServingSize = nil },
			fields: []string{"serving_size"},
		},
		{
			name:   "zero serving with bad unit",
			mutate: func(l *models.Label) { l.ServingSize = &models.ServingSize{Value: 0, Unit: "oz"} },
			fields: []string{"serving_size.value", "serving_size.unit"},
		},
		{
			name:   "missing required nutrient",
			mutate: func(l *models.Label) { delete(l.Nutrients, "sodium") },
			fields: []string{"nutrients.sodium"},
		},
		{
			name:   "negative amount",
			mutate: func(l *models.Label) { l.Nutrients["protein"] = models.Nutrient{Value: -1, Unit: "g"} },
			fields: []string{"nutrients.protein.value"},
		},
		{
			name:   "microgram on a label nutrient",
			mutate: func(l *models.Label) { l.Nutrients["cholesterol"] = models.Nutrient{Value: 10, Unit: "μg"} },
			fields: []string{"nutrients.cholesterol.unit"},
		},
		{
			name:   "unsupported unit",
			mutate: func(l *models.Label) { l.Nutrients["vitamin_d"] = models.Nutrient{Value: 400, Unit: "IU"} },
			fields: []string{"nutrients.vitamin_d.unit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := validLabel()
			tt.mutate(label)

			err := ValidateLabel(label)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var errs Errors
			require.True(t, errors.As(err, &errs))
			assert.Equal(t, tt.fields, errs.Fields())
		})
	}
}

func TestValidateLabelNil(t *testing.T) {
	err := ValidateLabel(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label")
}

func TestValidateDV(t *testing.T) {
	assert.NoError(t, ValidateDV(models.DailyValues{"sodium": 75, "sugar": 0, "fat_trans": 1000}))
	assert.NoError(t, ValidateDV(nil))

	err := ValidateDV(models.DailyValues{"sodium": 1000.1, "protein": -1})
	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, []string{"dv.protein", "dv.sodium"}, errs.Fields())
}

func TestValidateSummary(t *testing.T) {
	assert.NoError(t, ValidateSummary(&models.AISummary{
		Summary:    "단백질이 풍부합니다.",
		Highlights: []string{},
		Cautions:   []string{},
	}))

	err := ValidateSummary(&models.AISummary{Summary: "  "})
	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, []string{"ai_summary.summary", "ai_summary.highlights", "ai_summary.cautions"}, errs.Fields())

	assert.Error(t, ValidateSummary(nil))
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("serving_size.value", 0.0, "must be positive")
	assert.Equal(t, "validation error for field 'serving_size.value': must be positive (value: 0)", err.Error())

	errs := Errors{err, NewValidationError("nutrients.sodium", nil, "is required")}
	assert.Contains(t, errs.Error(), "; ")
	assert.Nil(t, Errors{}.Err())
}
