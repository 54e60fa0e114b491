// Package compliance classifies detected functional ingredient amounts
// against their approved intake ranges and rolls the findings up into an
// overall product rating with guidance text.
package compliance

import "nutrilabel/pkg/models"

// Status is where a detected amount falls relative to its intake range.
// Statuses are ordered: deficient < optimal < excessive < dangerous.
type Status string

const (
	StatusDeficient Status = "deficient"
	StatusOptimal   Status = "optimal"
	StatusExcessive Status = "excessive"
	StatusDangerous Status = "dangerous"
)

// Rank orders statuses from deficient (0) to dangerous (3).
func (s Status) Rank() int {
	switch s {
	case StatusDeficient:
		return 0
	case StatusOptimal:
		return 1
	case StatusExcessive:
		return 2
	case StatusDangerous:
		return 3
	}
	return -1
}

// Severity grades a compliance issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rating is the overall product grade, ordered worst to best.
type Rating string

const (
	RatingDangerous  Rating = "dangerous"
	RatingPoor       Rating = "poor"
	RatingAcceptable Rating = "acceptable"
	RatingGood       Rating = "good"
	RatingExcellent  Rating = "excellent"
)

// Rank orders ratings from dangerous (0) to excellent (4).
func (r Rating) Rank() int {
	switch r {
	case RatingDangerous:
		return 0
	case RatingPoor:
		return 1
	case RatingAcceptable:
		return 2
	case RatingGood:
		return 3
	case RatingExcellent:
		return 4
	}
	return -1
}

// Finding is the classification of one detected ingredient.
type Finding struct {
	Key                  models.NutrientKey `json:"key"`
	KoreanName           string             `json:"korean_name"`
	DetectedAmount       float64            `json:"detected_amount"`
	Unit                 string             `json:"unit"`
	IntakeRange          string             `json:"daily_intake_range"`
	Status               Status             `json:"status"`
	CompliancePercentage float64            `json:"compliance_percentage"`
	Approved             bool               `json:"kfda_approval"`
	Functionality        []string           `json:"functionality"`
	Precautions          []string           `json:"precautions"`
	TargetGroups         []string           `json:"target_group"`
	Note                 string             `json:"pharmacist_note"`

	// UnitConverted is false when the label unit could not be converted to
	// the range unit; the raw value was classified and the finding is low
	// confidence.
	UnitConverted bool `json:"unit_converted"`
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// Issue is a warning or critical record tied to one finding.
type Issue struct {
	Severity       Severity           `json:"severity"`
	Ingredient     models.NutrientKey `json:"ingredient_key"`
	IngredientName string             `json:"ingredient"`
	Issue          string             `json:"issue"`
	Recommendation string             `json:"recommendation"`
	Reference      string             `json:"kfda_reference"`
}

// Unrated records an input entry that could not be classified.
type Unrated struct {
	Key    models.NutrientKey `json:"key"`
	Value  float64            `json:"value"`
	Unit   string             `json:"unit"`
	Reason string             `json:"reason"`
}

// RegulatoryStatus summarises how the label stands against the approval rules.
type RegulatoryStatus struct {
	KFDACompliant        bool     `json:"kfda_compliant"`
	HealthFunctionalFood bool     `json:"health_functional_food"`
	RequiresPrescription bool     `json:"requires_prescription"`
	AgeRestrictions      []string `json:"age_restrictions"`
}

// Result is the outcome of one analysis. It is built fresh per call and not
// modified after Analyze returns.
type Result struct {
	OverallRating      Rating           `json:"overall_rating"`
	ComplianceScore    int              `json:"compliance_score"`
	AverageCompliance  float64          `json:"average_compliance"`
	Findings           []Finding        `json:"analyzed_ingredients"`
	Issues             []Issue          `json:"compliance_issues"`
	DrugInteractions   []string         `json:"drug_interactions"`
	ContraindicatedFor []string         `json:"contraindicated_for"`
	AppropriateFor     []string         `json:"appropriate_for"`
	Unrated            []Unrated        `json:"unrated,omitempty"`
	Guidance           string           `json:"dosage_guidance"`
	Recommendation     string           `json:"professional_recommendation"`
	Regulatory         RegulatoryStatus `json:"regulatory_status"`
}
