package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Common OCR processing errors
var (
	// ErrDocumentTooLarge is returned when the document exceeds MaxFileSizeBytes.
	ErrDocumentTooLarge = errors.New("document size exceeds the maximum limit (20MB)")

	// ErrUnsupportedFormat is returned for anything other than JPEG, PNG, BMP, GIF, TIFF or PDF.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrOCRFailed is returned when the provider fails to process the document.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrAuthentication is returned when the provider rejects the credentials.
	ErrAuthentication = errors.New("OCR provider rejected the credentials")

	// ErrRateLimited is returned when the provider quota is exhausted.
	ErrRateLimited = errors.New("OCR provider rate limit exceeded")

	// ErrTimeout is returned when the provider does not answer in time.
	ErrTimeout = errors.New("OCR processing timed out")

	// ErrTooManyPages is returned when a PDF has more pages than synchronous processing allows.
	ErrTooManyPages = errors.New("document has too many pages for synchronous processing")

	// ErrEmptyDocument is returned when the document contains no readable text.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrContextCanceled is returned when the context is canceled during processing.
	ErrContextCanceled = errors.New("OCR processing was canceled")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "ProcessDocument", "ReadDocument").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(op, err, details)
}

// classifyAPIError maps a provider call failure onto one of the sentinels.
// The gRPC status code is used when present; otherwise the message is
// inspected.
func classifyAPIError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return WrapOCRError(op, ErrTimeout, err.Error())
	case errors.Is(err, context.Canceled):
		return WrapOCRError(op, ErrContextCanceled, err.Error())
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return WrapOCRError(op, ErrAuthentication, st.Message())
		case codes.ResourceExhausted:
			return WrapOCRError(op, ErrRateLimited, st.Message())
		case codes.DeadlineExceeded:
			return WrapOCRError(op, ErrTimeout, st.Message())
		case codes.Canceled:
			return WrapOCRError(op, ErrContextCanceled, st.Message())
		case codes.InvalidArgument:
			return WrapOCRError(op, ErrUnsupportedFormat, st.Message())
		default:
			return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("%s: %s", st.Code(), st.Message()))
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthenticated"), strings.Contains(msg, "permission_denied"), strings.Contains(msg, "401"):
		return WrapOCRError(op, ErrAuthentication, err.Error())
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return WrapOCRError(op, ErrRateLimited, err.Error())
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return WrapOCRError(op, ErrTimeout, err.Error())
	default:
		return WrapOCRError(op, ErrOCRFailed, err.Error())
	}
}

// IsInputError reports whether err was caused by the submitted document
// rather than by the provider.
func IsInputError(err error) bool {
	return errors.Is(err, ErrDocumentTooLarge) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyDocument) ||
		errors.Is(err, ErrTooManyPages)
}
