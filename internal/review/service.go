// Package review runs the full label review pipeline: OCR, extraction,
// validation, daily values, compliance analysis and the narrative summary.
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nutrilabel/internal/compliance"
	"nutrilabel/internal/dv"
	"nutrilabel/internal/extract"
	"nutrilabel/internal/logger"
	"nutrilabel/internal/ocr"
	"nutrilabel/internal/summary"
	"nutrilabel/internal/validation"
	"nutrilabel/pkg/models"
	"nutrilabel/pkg/services"
)

// History persists finished reports.
type History interface {
	SaveReport(ctx context.Context, report *Report) error
}

// Options tune a single review.
type Options struct {
	// Product overrides the product name. Defaults to the file name.
	Product string

	// Batch overrides the batch label. Defaults to today's date.
	Batch string

	// SkipSummary uses the local fallback instead of calling the summary service.
	SkipSummary bool

	// Save stores the report in history when a History is configured.
	Save bool
}

// Service reviews label documents.
type Service struct {
	ocr        ocr.OCRService
	summarizer services.SummaryService
	history    History
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory saves reports requested with Options.Save.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a review service. ocrService may be nil for text-only
// reviews; summarizer may be nil, in which case summaries are templated.
func NewService(ocrService ocr.OCRService, summarizer services.SummaryService, opts ...Option) *Service {
	s := &Service{
		ocr:        ocrService,
		summarizer: summarizer,
		now:        time.Now,
		log:        logger.WithComponent("review"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrNoOCR is returned by ReviewDocument when the service has no OCR provider.
var ErrNoOCR = errors.New("no OCR provider configured")

// ReviewDocument reads a label image or PDF, extracts its text with OCR and
// reviews it.
func (s *Service) ReviewDocument(ctx context.Context, name string, r io.Reader, opts Options) (*Report, error) {
	const op = "ReviewDocument"

	if s.ocr == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoOCR)
	}

	doc, err := ocr.ReadDocument(name, r)
	if err != nil {
		return nil, err
	}

	result, err := s.ocr.ProcessDocumentWithMetadata(ctx, doc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, ocr.WrapOCRError(op, ocr.ErrEmptyDocument, name)
	}

	if opts.Product == "" {
		opts.Product = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	report, err := s.review(ctx, result.Text, opts)
	if err != nil {
		return nil, err
	}
	report.Debug.Filename = name
	report.Debug.OCRProvider = result.Provider
	report.Debug.OCRConfidence = result.Confidence
	report.Debug.PageCount = result.PageCount

	return report, s.save(ctx, report, opts)
}

// ReviewText reviews label text that was already extracted.
func (s *Service) ReviewText(ctx context.Context, text string, opts Options) (*Report, error) {
	report, err := s.review(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	return report, s.save(ctx, report, opts)
}

func (s *Service) review(ctx context.Context, text string, opts Options) (*Report, error) {
	const op = "review"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	id := uuid.NewString()
	log := logger.WithReviewID(id).With().Str("component", "review").Logger()

	if opts.Batch == "" {
		opts.Batch = now.Format("2006-01-02")
	}

	extracted := extract.Extract(text)
	report := &Report{
		ID:          id,
		Meta:        models.Meta{Product: opts.Product, Batch: opts.Batch},
		ServingSize: extracted.ServingSize,
		CreatedAt:   now,
		Debug: Debug{
			OCRText:   truncateRunes(text, debugTextLimit),
			Timestamp: now,
		},
	}

	report.DV = dv.CalculateAll(extracted.Nutrients)
	report.Nutrients = dv.Annotate(extracted.Nutrients, report.DV)
	report.ValidationErrors = validationMessages(report)
	if len(report.ValidationErrors) > 0 {
		log.Warn().
			Strs("validation_errors", report.ValidationErrors).
			Msg("Label record failed validation, continuing with partial data")
	}

	req := &services.SummaryRequest{
		ServingSize: report.ServingSize,
		Nutrients:   report.Nutrients,
		DV:          report.DV,
		ProductName: opts.Product,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Evaluations = dv.EvaluateAll(report.Nutrients)
		report.Compliance = compliance.Analyze(report.Nutrients)
		report.FunctionalFood = compliance.ClassifyFunctionalFood(report.Nutrients)
		return nil
	})
	g.Go(func() error {
		if opts.SkipSummary {
			report.AISummary = summary.Fallback(req)
			return nil
		}
		report.AISummary = summary.Generate(gctx, s.summarizer, req, log)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info().
		Str("product", report.Meta.Product).
		Int("nutrients", len(report.Nutrients)).
		Str("rating", string(report.Compliance.OverallRating)).
		Bool("summary_fallback", report.AISummary.Fallback).
		Msg("Review completed")

	return report, nil
}

func (s *Service) save(ctx context.Context, report *Report, opts Options) error {
	if !opts.Save || s.history == nil {
		return nil
	}
	if err := s.history.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

func validationMessages(report *Report) []string {
	var msgs []string
	for _, err := range []error{
		validation.ValidateLabel(report.Label()),
		validation.ValidateDV(report.DV),
	} {
		var errs validation.Errors
		if errors.As(err, &errs) {
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
		}
	}
	return msgs
}
