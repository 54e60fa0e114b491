package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nutrilabel/internal/dv"
	"nutrilabel/internal/ocr"
	"nutrilabel/internal/review"
	"nutrilabel/internal/storage"
	"nutrilabel/internal/summary"
	"nutrilabel/pkg/models"
	"nutrilabel/pkg/services"
)

// HistoryStore reads saved reviews.
type HistoryStore interface {
	GetReport(ctx context.Context, id string) (*review.Report, error)
	ListReports(ctx context.Context, filter storage.ListFilter) ([]storage.ReviewSummary, error)
}

// Handler serves the label review endpoints. OCR, Summarizer and History are
// optional.
type Handler struct {
	reviews    *review.Service
	ocr        ocr.OCRService
	summarizer services.SummaryService
	history    HistoryStore
}

// HandlerConfig lists the collaborators of a Handler.
type HandlerConfig struct {
	Reviews    *review.Service
	OCR        ocr.OCRService
	Summarizer services.SummaryService
	History    HistoryStore
}

// NewHandler builds a Handler, creating a review service from OCR and
// Summarizer when Reviews is nil.
func NewHandler(cfg HandlerConfig) *Handler {
	reviews := cfg.Reviews
	if reviews == nil {
		reviews = review.NewService(cfg.OCR, cfg.Summarizer)
	}
	return &Handler{
		reviews:    reviews,
		ocr:        cfg.OCR,
		summarizer: cfg.Summarizer,
		history:    cfg.History,
	}
}

// OCRResponse is the body of POST /api/ocr.
type OCRResponse struct {
	Text       string  `json:"text"`
	PageCount  int     `json:"page_count"`
	Confidence float32 `json:"confidence"`
	Provider   string  `json:"provider,omitempty"`
	Cached     bool    `json:"cached,omitempty"`
}

type analyzeRequest struct {
	Text    string `json:"text"`
	Product string `json:"product"`
	Batch   string `json:"batch"`
	Save    bool   `json:"save"`
}

type dvRequest struct {
	Nutrients models.Nutrients `json:"nutrients"`
}

// DVResponse is the body of POST /api/dv.
type DVResponse struct {
	DV          models.DailyValues `json:"dv"`
	Evaluations []dv.Evaluation    `json:"evaluations"`
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}

// OCR handles POST /api/ocr and returns the text of an uploaded label.
func (h *Handler) OCR(c *gin.Context) {
	if h.ocr == nil {
		respondPipelineError(c, review.ErrNoOCR)
		return
	}

	doc, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.ocr.ProcessDocumentWithMetadata(c.Request.Context(), doc)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	if strings.TrimSpace(result.Text) == "" {
		respondPipelineError(c, ocr.WrapOCRError("OCR", ocr.ErrEmptyDocument, doc.Name))
		return
	}

	RespondOK(c, OCRResponse{
		Text:       result.Text,
		PageCount:  result.PageCount,
		Confidence: result.Confidence,
		Provider:   result.Provider,
		Cached:     result.Cached,
	})
}

// Review handles POST /api/review, the full pipeline on an uploaded label.
func (h *Handler) Review(c *gin.Context) {
	doc, ok := h.readUpload(c)
	if !ok {
		return
	}

	opts := review.Options{
		Product:     c.PostForm("product"),
		Batch:       c.PostForm("batch"),
		SkipSummary: formBool(c, "no_summary"),
		Save:        formBool(c, "save"),
	}

	report, err := h.reviews.ReviewDocument(c.Request.Context(), doc.Name, bytes.NewReader(doc.Data), opts)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, report)
}

// Analyze handles POST /api/analyze, the pipeline on label text.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("text is required"))
		return
	}

	report, err := h.reviews.ReviewText(c.Request.Context(), req.Text, review.Options{
		Product: req.Product,
		Batch:   req.Batch,
		Save:    req.Save,
	})
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, report)
}

// Summarize handles POST /api/summarize. Upstream failures fall back to the
// template summary.
func (h *Handler) Summarize(c *gin.Context) {
	var req services.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.ServingSize == nil || len(req.Nutrients) == 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("serving_size and nutrients are required"))
		return
	}

	RespondOK(c, summary.Generate(c.Request.Context(), h.summarizer, &req, requestLogger(c)))
}

// DailyValues handles POST /api/dv.
func (h *Handler) DailyValues(c *gin.Context) {
	var req dvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Nutrients) == 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("nutrients are required"))
		return
	}

	RespondOK(c, DVResponse{
		DV:          dv.CalculateAll(req.Nutrients),
		Evaluations: dv.EvaluateAll(req.Nutrients),
	})
}

// ListReviews handles GET /api/reviews.
func (h *Handler) ListReviews(c *gin.Context) {
	if !h.requireHistory(c) {
		return
	}

	filter := storage.ListFilter{
		Product: c.Query("product"),
		Rating:  c.Query("rating"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		filter.Since = since
	}

	list, err := h.history.ListReports(c.Request.Context(), filter)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, gin.H{"reviews": list, "count": len(list)})
}

// GetReview handles GET /api/reviews/:id.
func (h *Handler) GetReview(c *gin.Context) {
	if !h.requireHistory(c) {
		return
	}

	report, err := h.history.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, report)
}

func (h *Handler) requireHistory(c *gin.Context) bool {
	if h.history == nil {
		RespondError(c, http.StatusNotFound, "history_disabled", errors.New("review history is not configured"))
		return false
	}
	return true
}

// readUpload validates and reads the multipart "file" field.
func (h *Handler) readUpload(c *gin.Context) (*ocr.Document, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", errors.New("multipart field 'file' is required"))
		return nil, false
	}
	if err := ocr.ValidateFilename(header.Filename); err != nil {
		respondPipelineError(c, err)
		return nil, false
	}
	if header.Size > ocr.MaxFileSizeBytes {
		respondPipelineError(c, ocr.WrapOCRError("upload", ocr.ErrDocumentTooLarge, header.Filename))
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		respondPipelineError(c, err)
		return nil, false
	}
	defer f.Close()

	doc, err := ocr.ReadDocument(header.Filename, f)
	if err != nil {
		respondPipelineError(c, err)
		return nil, false
	}
	return doc, true
}

func formBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.PostForm(key))
	return v
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since %q: use RFC3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
