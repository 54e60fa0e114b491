package validation

import (
	"fmt"
	"sort"
	"strings"

	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// MaxDailyValuePercent bounds a single DV percentage.
const MaxDailyValuePercent = 1000

var (
	requiredNutrients = []models.NutrientKey{"energy", "protein", "fat_total", "carbohydrate", "sodium"}
	optionalNutrients = []models.NutrientKey{"fat_saturated", "fat_trans", "sugar", "cholesterol", "fiber"}

	servingUnits = map[string]bool{
		models.ServingUnitGram:       true,
		models.ServingUnitMilliliter: true,
		models.ServingUnitEach:       true,
	}
	labelUnits = map[string]bool{
		units.Gram:        true,
		units.Milligram:   true,
		units.Kilocalorie: true,
		units.Percent:     true,
	}
	// functional ingredients are also declared in micrograms or CFU
	ingredientUnits = map[string]bool{
		units.Microgram: true,
		units.CFU:       true,
	}
)

// ValidationError represents one rejected field of a label record.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Errors collects every problem found in one record.
type Errors []*ValidationError

// Error joins the messages of all errors.
func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields lists the rejected field names in order.
func (es Errors) Fields() []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Field
	}
	return out
}

// Err returns nil for an empty list so callers can use the usual err != nil.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// ValidateLabel checks the structured record parsed from a label. The
// returned error is nil or an Errors value.
func ValidateLabel(label *models.Label) error {
	if label == nil {
		return Errors{NewValidationError("label", nil, "is required")}
	}
	var errs Errors
	errs = append(errs, validateServingSize(label.ServingSize)...)
	errs = append(errs, validateNutrients(label.Nutrients)...)
	return errs.Err()
}

func validateServingSize(s *models.ServingSize) Errors {
	if s == nil {
		return Errors{NewValidationError("serving_size", nil, "is required")}
	}
	var errs Errors
	if s.Value <= 0 {
		errs = append(errs, NewValidationError("serving_size.value", s.Value, "must be positive"))
	}
	if !servingUnits[s.Unit] {
		errs = append(errs, NewValidationError("serving_size.unit", s.Unit, "must be one of g, ml, ea"))
	}
	return errs
}

func validateNutrients(nutrients models.Nutrients) Errors {
	var errs Errors
	for _, k := range requiredNutrients {
		if _, ok := nutrients[k]; !ok {
			errs = append(errs, NewValidationError("nutrients."+string(k), nil, "is required"))
		}
	}

	label := make(map[models.NutrientKey]bool, len(requiredNutrients)+len(optionalNutrients))
	for _, k := range requiredNutrients {
		label[k] = true
	}
	for _, k := range optionalNutrients {
		label[k] = true
	}

	keys := make([]models.NutrientKey, 0, len(nutrients))
	for k := range nutrients {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		n := nutrients[k]
		field := "nutrients." + string(k)
		if n.Value < 0 {
			errs = append(errs, NewValidationError(field+".value", n.Value, "must not be negative"))
		}
		unit := units.Canonical(n.Unit)
		if labelUnits[unit] || (!label[k] && ingredientUnits[unit]) {
			continue
		}
		errs = append(errs, NewValidationError(field+".unit", n.Unit, "unsupported unit"))
	}
	return errs
}

// ValidateDV checks that every percentage lies within [0, MaxDailyValuePercent].
func ValidateDV(dv models.DailyValues) error {
	keys := make([]models.NutrientKey, 0, len(dv))
	for k := range dv {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var errs Errors
	for _, k := range keys {
		if v := dv[k]; v < 0 || v > MaxDailyValuePercent {
			errs = append(errs, NewValidationError("dv."+string(k), v, fmt.Sprintf("must be within 0 and %d", MaxDailyValuePercent)))
		}
	}
	return errs.Err()
}

// ValidateSummary checks the required fields of a generated summary.
func ValidateSummary(s *models.AISummary) error {
	if s == nil {
		return Errors{NewValidationError("ai_summary", nil, "is required")}
	}
	var errs Errors
	if strings.TrimSpace(s.Summary) == "" {
		errs = append(errs, NewValidationError("ai_summary.summary", s.Summary, "is required"))
	}
	if s.Highlights == nil {
		errs = append(errs, NewValidationError("ai_summary.highlights", nil, "is required"))
	}
	if s.Cautions == nil {
		errs = append(errs, NewValidationError("ai_summary.cautions", nil, "is required"))
	}
	return errs.Err()
}
