package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilabel/internal/review"
)

func newTestServer() *Server {
	return NewServer(review.NewService(nil, nil), "test")
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestAnalyzeLabelText(t *testing.T) {
	s := newTestServer()

	res, err := s.handleAnalyzeLabelText(context.Background(), callRequest("analyze_label_text", map[string]any{
		"text":         "1회 제공량 30g\n나트륨 1500mg\n비타민C 1200mg",
		"product":      "스틱",
		"skip_summary": true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	report, ok := res.StructuredContent.(*review.Report)
	require.True(t, ok)
	assert.Equal(t, "스틱", report.Meta.Product)
	assert.Equal(t, 75.0, report.DV["sodium"])
	assert.True(t, report.AISummary.Fallback)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decoded))
	assert.Equal(t, report.ID, decoded["id"])
}

func TestAnalyzeLabelTextErrors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing text", map[string]any{}},
		{"blank text", map[string]any{"text": "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleAnalyzeLabelText(context.Background(), callRequest("analyze_label_text", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestCalculateDailyValues(t *testing.T) {
	s := newTestServer()

	t.Run("valid", func(t *testing.T) {
		res, err := s.handleCalculateDailyValues(context.Background(), callRequest("calculate_daily_values", map[string]any{
			"nutrients_json": `{"sodium":{"value":500,"unit":"mg"},"sugar":{"value":10,"unit":"g"}}`,
		}))
		require.NoError(t, err)
		require.False(t, res.IsError)

		resp, ok := res.StructuredContent.(DailyValuesResponse)
		require.True(t, ok)
		assert.Equal(t, 25.0, resp.DV["sodium"])
		assert.Equal(t, 10.0, resp.DV["sugar"])
		assert.Len(t, resp.Evaluations, 2)
	})

	for name, raw := range map[string]string{
		"malformed": `{"sodium":`,
		"empty":     `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := s.handleCalculateDailyValues(context.Background(), callRequest("calculate_daily_values", map[string]any{
				"nutrients_json": raw,
			}))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestLookupIngredient(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name       string
		found      bool
		key        string
		ingredient bool
	}{
		{"비타민 C", true, "vitamin_c", true},
		{"Omega-3", true, "omega3", true},
		{"나트륨", true, "sodium", false},
		{"caffeine", false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleLookupIngredient(context.Background(), callRequest("lookup_ingredient", map[string]any{"name": tt.name}))
			require.NoError(t, err)
			require.False(t, res.IsError)

			resp, ok := res.StructuredContent.(LookupResponse)
			require.True(t, ok)
			assert.Equal(t, tt.found, resp.Found)
			assert.Equal(t, tt.key, string(resp.Key))
			assert.Equal(t, tt.ingredient, resp.Ingredient != nil)
			assert.Equal(t, tt.found && !tt.ingredient, resp.Nutrient != nil)
		})
	}
}
