package models

// AISummary is the narrative produced by the summary collaborator. The nested
// sections are optional and passed through as received.
type AISummary struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Cautions   []string `json:"cautions"`

	NutritionalAnalysis    *NutritionalAnalysis    `json:"nutritional_analysis,omitempty"`
	KFDACompliance         *KFDACompliance         `json:"kfda_compliance,omitempty"`
	FunctionalFoodAnalysis *FunctionalFoodAnalysis `json:"functional_food_analysis,omitempty"`

	// Fallback is set when the summary was templated locally instead of generated.
	Fallback bool `json:"fallback,omitempty"`
}

// NutritionalAnalysis is optional detail returned by the summary model.
type NutritionalAnalysis struct {
	EnergyAnalysis          string `json:"energy_analysis,omitempty"`
	MacronutrientBalance    string `json:"macronutrient_balance,omitempty"`
	MicronutrientEvaluation string `json:"micronutrient_evaluation,omitempty"`
}

// KFDACompliance is the model's view of labelling compliance.
type KFDACompliance struct {
	LabelingStatus string   `json:"labeling_status,omitempty"`
	HealthClaims   []string `json:"health_claims,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// FunctionalFoodAnalysis is the model's view of functional claims.
type FunctionalFoodAnalysis struct {
	Classification        string   `json:"classification,omitempty"`
	Functionality         []string `json:"functionality,omitempty"`
	IntakeRecommendations string   `json:"intake_recommendations,omitempty"`
}
