// Package mcpserver exposes label analysis as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"nutrilabel/internal/dv"
	"nutrilabel/internal/logger"
	"nutrilabel/internal/reference"
	"nutrilabel/internal/review"
	"nutrilabel/pkg/models"
)

// Server wraps the MCP server and the review pipeline behind its tools.
type Server struct {
	mcpServer *server.MCPServer
	reviews   *review.Service
	log       zerolog.Logger
}

// DailyValuesResponse is the result of calculate_daily_values.
type DailyValuesResponse struct {
	DV          models.DailyValues `json:"dv"`
	Evaluations []dv.Evaluation    `json:"evaluations"`
}

// LookupResponse is the result of lookup_ingredient. At most one of
// Ingredient and Nutrient is set.
type LookupResponse struct {
	Found      bool                        `json:"found"`
	Key        models.NutrientKey          `json:"key,omitempty"`
	Ingredient *reference.Ingredient       `json:"ingredient,omitempty"`
	Nutrient   *reference.NutrientStandard `json:"nutrient,omitempty"`
}

// NewServer registers the label tools on a new MCP server.
func NewServer(reviews *review.Service, version string) *Server {
	mcpServer := server.NewMCPServer(
		"Nutrition Label Review",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		reviews:   reviews,
		log:       logger.WithComponent("mcp"),
	}
	s.addTools()
	return s
}

func (s *Server) addTools() {
	analyzeTool := mcp.NewTool("analyze_label_text",
		mcp.WithDescription("Review the OCR text of a Korean nutrition facts label: extracted nutrients, percent daily values, functional ingredient compliance and a narrative summary."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Label text as read from the package."),
		),
		mcp.WithString("product",
			mcp.Description("Product name recorded in the report."),
		),
		mcp.WithBoolean("skip_summary",
			mcp.Description("Use the local summary template instead of the language model."),
			mcp.DefaultBool(false),
		),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzeLabelText)

	dvTool := mcp.NewTool("calculate_daily_values",
		mcp.WithDescription("Calculate percent of daily value for label nutrients."),
		mcp.WithString("nutrients_json",
			mcp.Required(),
			mcp.Description(`JSON object of nutrients, e.g. {"sodium":{"value":500,"unit":"mg"}}.`),
		),
		mcp.WithOutputSchema[DailyValuesResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(dvTool, s.handleCalculateDailyValues)

	lookupTool := mcp.NewTool("lookup_ingredient",
		mcp.WithDescription("Look up a functional ingredient or label nutrient by Korean or English name."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Ingredient or nutrient name, e.g. 비타민C, omega-3, 나트륨."),
		),
		mcp.WithOutputSchema[LookupResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(lookupTool, s.handleLookupIngredient)
}

func (s *Server) handleAnalyzeLabelText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'text': %v", err)), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("Parameter 'text' must not be blank"), nil
	}

	report, err := s.reviews.ReviewText(ctx, text, review.Options{
		Product:     request.GetString("product", ""),
		SkipSummary: request.GetBool("skip_summary", false),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Label analysis failed")
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	s.log.Debug().
		Str("review_id", report.ID).
		Int("nutrients", len(report.Nutrients)).
		Msg("analyze_label_text completed")

	return structured(report)
}

func (s *Server) handleCalculateDailyValues(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("nutrients_json")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'nutrients_json': %v", err)), nil
	}

	var nutrients models.Nutrients
	if err := json.Unmarshal([]byte(raw), &nutrients); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid nutrients_json: %v", err)), nil
	}
	if len(nutrients) == 0 {
		return mcp.NewToolResultError("nutrients_json must contain at least one nutrient"), nil
	}

	return structured(DailyValuesResponse{
		DV:          dv.CalculateAll(nutrients),
		Evaluations: dv.EvaluateAll(nutrients),
	})
}

func (s *Server) handleLookupIngredient(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'name': %v", err)), nil
	}

	var resp LookupResponse
	if key, ok := reference.ResolveIngredient(name); ok {
		ing, _ := reference.LookupIngredient(key)
		resp = LookupResponse{Found: true, Key: key, Ingredient: &ing}
	} else if key, ok := reference.ResolveNutrient(name); ok {
		std, _ := reference.Nutrient(key)
		resp = LookupResponse{Found: true, Key: key, Nutrient: &std}
	}

	s.log.Debug().Str("name", name).Bool("found", resp.Found).Msg("lookup_ingredient completed")
	return structured(resp)
}

// structured returns payload as structured content with a JSON text fallback.
func structured(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultStructured(payload, string(data)), nil
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("Starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}
