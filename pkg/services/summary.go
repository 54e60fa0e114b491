package services

import (
	"context"

	"nutrilabel/pkg/models"
)

// SummaryService defines the interface for generating a narrative summary of a
// parsed nutrition label.
type SummaryService interface {
	// Summarize returns a narrative for the given label data. Implementations
	// return an error on upstream failure; callers decide whether to fall back.
	Summarize(ctx context.Context, req *SummaryRequest) (*models.AISummary, error)
}

// SummaryRequest is the structured payload handed to a SummaryService.
type SummaryRequest struct {
	ServingSize *models.ServingSize `json:"serving_size"`
	Nutrients   models.Nutrients    `json:"nutrients"`
	DV          models.DailyValues  `json:"dv,omitempty"`
	ProductName string              `json:"product_name,omitempty"`
	ProductForm string              `json:"product_form,omitempty"`
}
