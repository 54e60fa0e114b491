package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutrilabel/internal/ocr"
	"nutrilabel/internal/review"
	"nutrilabel/internal/storage"
)

// APIError is the error body returned by every endpoint.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError aborts the request with the error envelope.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK writes payload as JSON with status 200.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusForError maps a pipeline error onto an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case ocr.IsInputError(err):
		return http.StatusBadRequest, "invalid_document"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ocr.ErrAuthentication), errors.Is(err, ocr.ErrMissingCredentials):
		return http.StatusUnauthorized, "upstream_auth"
	case errors.Is(err, ocr.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ocr.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, ocr.ErrOCRFailed), errors.Is(err, ocr.ErrContextCanceled):
		return http.StatusBadGateway, "upstream_failed"
	case errors.Is(err, review.ErrNoOCR):
		return http.StatusInternalServerError, "ocr_not_configured"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondPipelineError logs err and writes the mapped envelope.
func respondPipelineError(c *gin.Context, err error) {
	status, code := statusForError(err)
	log := requestLogger(c)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", code).Msg("Request failed")
	} else {
		log.Warn().Err(err).Str("code", code).Msg("Request rejected")
	}
	RespondError(c, status, code, err)
}
