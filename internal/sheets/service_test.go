package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilabel/internal/review"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/sheet")
	assert.Error(t, err)
}

func TestLastColumn(t *testing.T) {
	assert.Equal(t, "Q", lastColumn())
}

func TestRowsFromResults(t *testing.T) {
	svc := review.NewService(nil, nil)
	report, err := svc.ReviewText(context.Background(), "1회 제공량: 30g\n나트륨: 1500mg\n비타민C 1200mg", review.Options{Product: "스틱", Batch: "B-7", SkipSummary: true})
	require.NoError(t, err)

	at := time.Date(2026, 4, 2, 13, 5, 0, 0, time.UTC)
	rows := rowsFromResults([]BatchResult{
		{Filename: "a.png", Report: report, Status: "success"},
		{Filename: "b.pdf", Error: errors.New("OCR failed"), Status: "error"},
	}, at)

	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, len(headers))
	}

	ok := rows[0]
	assert.Equal(t, "a.png", ok[0])
	assert.Equal(t, "스틱", ok[1])
	assert.Equal(t, "B-7", ok[2])
	assert.Equal(t, "30g", ok[3])
	assert.Equal(t, "", ok[4])
	assert.Equal(t, 1500.0, ok[5])
	assert.Equal(t, 75.0, ok[6])
	assert.Equal(t, string(report.Compliance.OverallRating), ok[11])
	assert.Contains(t, ok[13], "비타민C(excessive)")
	assert.Equal(t, report.AISummary.Summary, ok[14])
	assert.Equal(t, "success", ok[15])
	assert.Equal(t, "2026-04-02 13:05:00", ok[16])

	failed := rows[1]
	assert.Equal(t, "오류: OCR failed", failed[14])
	assert.Equal(t, "", failed[1])
	assert.Equal(t, "error", failed[15])
}
