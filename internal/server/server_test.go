package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilabel/internal/ocr"
	"nutrilabel/internal/review"
	"nutrilabel/internal/storage"
)

const labelText = `1회 제공량: 30g
열량 120kcal
나트륨: 1500mg
탄수화물 22g
지방 3.5g
단백질 4g
비타민C 1200mg`

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) ProcessDocument(ctx context.Context, doc *ocr.Document) (string, error) {
	r, err := f.ProcessDocumentWithMetadata(ctx, doc)
	if err != nil {
		return "", err
	}
	return r.Text, nil
}

func (f *fakeOCR) ProcessDocumentWithMetadata(_ context.Context, _ *ocr.Document) (*ocr.OCRResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ocr.OCRResult{Text: f.text, PageCount: 1, Confidence: 0.9, Provider: "fake"}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(cfg HandlerConfig) *gin.Engine {
	return NewRouter(RouterConfig{Handler: NewHandler(cfg)})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestHealth(t *testing.T) {
	rec := serve(newRouter(HandlerConfig{}), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")

	rec := serve(newRouter(HandlerConfig{}), req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := NewRouter(RouterConfig{Handler: NewHandler(HandlerConfig{}), AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(r, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAnalyze(t *testing.T) {
	r := newRouter(HandlerConfig{})

	t.Run("report", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"text": labelText, "product": "스틱"})
		rec := serve(r, jsonRequest(http.MethodPost, "/api/analyze", string(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var report review.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, "스틱", report.Meta.Product)
		assert.Equal(t, 75.0, report.DV["sodium"])
		require.NotNil(t, report.AISummary)
		assert.True(t, report.AISummary.Fallback)
	})

	t.Run("empty text", func(t *testing.T) {
		rec := serve(r, jsonRequest(http.MethodPost, "/api/analyze", `{"text":"  "}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := serve(r, jsonRequest(http.MethodPost, "/api/analyze", `{`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDailyValues(t *testing.T) {
	r := newRouter(HandlerConfig{})

	rec := serve(r, jsonRequest(http.MethodPost, "/api/dv", `{"nutrients":{"sodium":{"value":1.5,"unit":"g"},"protein":{"value":10,"unit":"g"}}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DVResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 75.0, resp.DV["sodium"])
	assert.Equal(t, 20.0, resp.DV["protein"])
	assert.Len(t, resp.Evaluations, 2)

	rec = serve(r, jsonRequest(http.MethodPost, "/api/dv", `{"nutrients":{}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummarize(t *testing.T) {
	r := newRouter(HandlerConfig{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"fallback", `{"serving_size":{"value":30,"unit":"g"},"nutrients":{"sodium":{"value":500,"unit":"mg"}}}`, http.StatusOK},
		{"missing serving", `{"nutrients":{"sodium":{"value":500,"unit":"mg"}}}`, http.StatusBadRequest},
		{"missing nutrients", `{"serving_size":{"value":30,"unit":"g"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, jsonRequest(http.MethodPost, "/api/summarize", tt.body))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := serve(r, jsonRequest(http.MethodPost, "/api/summarize", tests[0].body))
	assert.Contains(t, rec.Body.String(), "1회 30g 섭취 시 영양 정보가 분석되었습니다.")
}

func TestOCR(t *testing.T) {
	img := pngBytes(t)

	tests := []struct {
		name     string
		ocr      *fakeOCR
		filename string
		data     []byte
		status   int
		code     string
	}{
		{name: "text", ocr: &fakeOCR{text: "나트륨 100mg"}, filename: "label.png", data: img, status: http.StatusOK},
		{name: "empty text", ocr: &fakeOCR{text: " \n"}, filename: "label.png", data: img, status: http.StatusBadRequest, code: "invalid_document"},
		{name: "missing file", ocr: &fakeOCR{}, status: http.StatusBadRequest, code: "missing_file"},
		{name: "bad extension", ocr: &fakeOCR{}, filename: "label.txt", data: img, status: http.StatusBadRequest, code: "invalid_document"},
		{name: "not an image", ocr: &fakeOCR{}, filename: "label.png", data: []byte("plain"), status: http.StatusBadRequest, code: "invalid_document"},
		{name: "rate limited", ocr: &fakeOCR{err: ocr.WrapOCRError("x", ocr.ErrRateLimited, "")}, filename: "label.png", data: img, status: http.StatusTooManyRequests, code: "rate_limited"},
		{name: "auth", ocr: &fakeOCR{err: ocr.WrapOCRError("x", ocr.ErrAuthentication, "")}, filename: "label.png", data: img, status: http.StatusUnauthorized, code: "upstream_auth"},
		{name: "timeout", ocr: &fakeOCR{err: ocr.WrapOCRError("x", ocr.ErrTimeout, "")}, filename: "label.png", data: img, status: http.StatusGatewayTimeout, code: "timeout"},
		{name: "upstream", ocr: &fakeOCR{err: ocr.WrapOCRError("x", ocr.ErrOCRFailed, "")}, filename: "label.png", data: img, status: http.StatusBadGateway, code: "upstream_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(HandlerConfig{OCR: tt.ocr})
			rec := serve(r, multipartRequest(t, "/api/ocr", tt.filename, tt.data, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, rec).Code)
				return
			}
			var resp OCRResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "나트륨 100mg", resp.Text)
			assert.Equal(t, 1, resp.PageCount)
		})
	}
}

func TestOCRNotConfigured(t *testing.T) {
	rec := serve(newRouter(HandlerConfig{}), multipartRequest(t, "/api/ocr", "label.png", pngBytes(t), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ocr_not_configured", decodeError(t, rec).Code)
}

func TestReviewUpload(t *testing.T) {
	r := newRouter(HandlerConfig{OCR: &fakeOCR{text: labelText}})

	rec := serve(r, multipartRequest(t, "/api/review", "granola.png", pngBytes(t), map[string]string{
		"batch":      "B-1",
		"no_summary": "true",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var report review.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "granola", report.Meta.Product)
	assert.Equal(t, "B-1", report.Meta.Batch)
	assert.Equal(t, "granola.png", report.Debug.Filename)
	assert.Equal(t, "fake", report.Debug.OCRProvider)
	require.NotNil(t, report.Compliance)
	assert.NotEmpty(t, report.Compliance.Findings)
}

func TestReviewsWithoutHistory(t *testing.T) {
	rec := serve(newRouter(HandlerConfig{}), httptest.NewRequest(http.MethodGet, "/api/reviews", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "history_disabled", decodeError(t, rec).Code)
}

func TestReviewsHistory(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := review.NewService(nil, nil, review.WithHistory(store))
	r := newRouter(HandlerConfig{Reviews: svc, History: store})

	saved, err := svc.ReviewText(context.Background(), labelText, review.Options{Product: "두유", SkipSummary: true, Save: true})
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/reviews?product="+url.QueryEscape("두유")+"&limit=5", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Reviews []storage.ReviewSummary `json:"reviews"`
			Count   int                     `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, saved.ID, resp.Reviews[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/reviews/"+saved.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), saved.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/reviews/missing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Code)
	})

	t.Run("bad query", func(t *testing.T) {
		for _, q := range []string{"limit=x", "since=yesterday"} {
			rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/reviews?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ocr.WrapOCRError("x", ocr.ErrDocumentTooLarge, ""), http.StatusBadRequest},
		{ocr.WrapOCRError("x", ocr.ErrTooManyPages, ""), http.StatusBadRequest},
		{ocr.ErrMissingCredentials, http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{storage.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("2026-05-01")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))

	_, err = parseSince("2026-05-01T08:00:00Z")
	assert.NoError(t, err)
}
