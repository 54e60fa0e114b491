// Package ocr extracts text from nutrition label images and PDFs.
//
// Two providers are available: Google Cloud Vision (default) and a Google
// Document AI OCR processor. Both accept the same document formats.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID (Document AI only)
//   - DOCUMENT_AI_PROCESSOR_ID: Document OCR processor (Document AI only)
//
// Limits:
//   - Maximum file size: 20MB
//   - Maximum pages: 5 pages for synchronous Vision processing
//   - Supported formats: JPEG, PNG, BMP, GIF, TIFF, PDF
//
// Results can be cached in Redis by wrapping a provider in a CachedService.
package ocr

import (
	"context"
	"time"
)

// OCRService defines the interface for OCR text extraction services.
type OCRService interface {
	// ProcessDocument extracts text from an image or PDF.
	// Returns the concatenated text from all pages.
	ProcessDocument(ctx context.Context, doc *Document) (string, error)

	// ProcessDocumentWithMetadata extracts text with confidence and page information.
	ProcessDocumentWithMetadata(ctx context.Context, doc *Document) (*OCRResult, error)
}

// OCRResult contains the results of OCR processing with metadata.
type OCRResult struct {
	// Text is the extracted text content from all pages, concatenated in reading order.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence score across all detected text (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// MimeType is the detected format of the input document.
	MimeType string `json:"mime_type"`

	// Provider names the backend that produced the text.
	Provider string `json:"provider"`

	// Cached is set when the text was served from the OCR cache.
	Cached bool `json:"cached,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`

	// LanguageCodes contains the detected languages in the document.
	LanguageCodes []string `json:"language_codes,omitempty"`

	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Provider names.
const (
	ProviderVision     = "vision"
	ProviderDocumentAI = "documentai"
)
