package models

// NutrientKey is the canonical identifier of a label nutrient or functional
// ingredient (e.g. "sodium", "vitamin_c"). It is shared by extraction, daily
// value calculation and compliance analysis.
type NutrientKey string

// Serving size units.
const (
	ServingUnitGram       = "g"
	ServingUnitMilliliter = "ml"
	ServingUnitEach       = "ea"
)

// Nutrient is one declared amount on a label.
type Nutrient struct {
	Value     float64  `json:"value"`
	Unit      string   `json:"unit"`
	PercentDV *float64 `json:"percent_dv,omitempty"`
}

// Nutrients maps a canonical key to the first amount recognized for it.
type Nutrients map[NutrientKey]Nutrient

// ServingSize is the declared amount per serving.
type ServingSize struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"` // g, ml or ea
}

// Meta identifies the labelled product.
type Meta struct {
	Product string `json:"product,omitempty"`
	Batch   string `json:"batch,omitempty"`
}

// Label is the structured record parsed from one label document.
type Label struct {
	Meta        *Meta        `json:"meta,omitempty"`
	ServingSize *ServingSize `json:"serving_size,omitempty"`
	Nutrients   Nutrients    `json:"nutrients"`
}

// DailyValues maps a nutrient to its percentage of the reference daily intake.
type DailyValues map[NutrientKey]float64
