package review

import (
	"time"

	"nutrilabel/internal/compliance"
	"nutrilabel/internal/dv"
	"nutrilabel/pkg/models"
)

// debugTextLimit caps the OCR text kept in a report.
const debugTextLimit = 500

// Report is the complete review of one label.
type Report struct {
	ID               string                    `json:"id"`
	Meta             models.Meta               `json:"meta"`
	ServingSize      *models.ServingSize       `json:"serving_size,omitempty"`
	Nutrients        models.Nutrients          `json:"nutrients"`
	DV               models.DailyValues        `json:"dv"`
	Evaluations      []dv.Evaluation           `json:"evaluations"`
	Compliance       *compliance.Result        `json:"compliance"`
	FunctionalFood   compliance.FunctionalFood `json:"functional_food"`
	AISummary        *models.AISummary         `json:"ai_summary,omitempty"`
	ValidationErrors []string                  `json:"validation_errors,omitempty"`
	Debug            Debug                     `json:"debug"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// Debug carries the raw inputs of a review for troubleshooting.
type Debug struct {
	OCRText       string    `json:"ocr_text"`
	Filename      string    `json:"filename,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	OCRProvider   string    `json:"ocr_provider,omitempty"`
	OCRConfidence float32   `json:"ocr_confidence,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
}

// Label returns the structured label record of the report.
func (r *Report) Label() *models.Label {
	meta := r.Meta
	return &models.Label{
		Meta:        &meta,
		ServingSize: r.ServingSize,
		Nutrients:   r.Nutrients,
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
