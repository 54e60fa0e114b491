package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"nutrilabel/internal/logger"
	"nutrilabel/pkg/models"
	"nutrilabel/pkg/services"
)

const (
	maxHighlights  = 3
	maxCautions    = 2
	defaultSummary = "영양 정보 분석 완료"
)

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

// ChatCompleter is the subset of *openai.Client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the OpenAI summary service
type Config struct {
	APIKey      string
	Model       string  // gpt-4, gpt-4o-mini
	Temperature float32 // sampling temperature
	MaxRetries  int     // attempts per summary
}

// OpenAIService generates label summaries with a chat completion in JSON mode.
type OpenAIService struct {
	client ChatCompleter
	config Config
	log    zerolog.Logger
}

var _ services.SummaryService = (*OpenAIService)(nil)

// NewOpenAIService creates a service backed by the OpenAI API.
func NewOpenAIService(config Config) (*OpenAIService, error) {
	const op = "NewOpenAIService"

	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}
	return NewOpenAIServiceWithClient(openai.NewClient(config.APIKey), config), nil
}

// NewOpenAIServiceWithClient creates a service with an explicit client
func NewOpenAIServiceWithClient(client ChatCompleter, config Config) *OpenAIService {
	if config.Model == "" {
		config.Model = openai.GPT4
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	return &OpenAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("summary"),
	}
}

// Summarize asks the model for a short Korean narrative of the label.
func (s *OpenAIService) Summarize(ctx context.Context, req *services.SummaryRequest) (*models.AISummary, error) {
	const op = "Summarize"

	prompt := buildPrompt(req)

	s.log.Debug().
		Int("prompt_length", len(prompt)).
		Str("model", s.config.Model).
		Float32("temperature", s.config.Temperature).
		Msg("Sending summary request")

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", s.config.MaxRetries).
				Msg("Summary request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			lastErr = errors.New("no response content")
			continue
		}

		content := resp.Choices[0].Message.Content
		summary, err := parseSummary(content)
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Str("response", content).
				Int("attempt", attempt).
				Msg("Failed to parse summary response, retrying")
			continue
		}

		s.log.Info().
			Int("highlights", len(summary.Highlights)).
			Int("cautions", len(summary.Cautions)).
			Int("attempt", attempt).
			Msg("Summary generated")
		return summary, nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, s.config.MaxRetries, lastErr)
}

const systemPrompt = "You are a nutrition label analysis expert. Always respond in valid JSON format in Korean."

func buildPrompt(req *services.SummaryRequest) string {
	var b strings.Builder

	b.WriteString("당신은 영양 표시 검토 전문가입니다.\n\n")
	b.WriteString("다음 영양 정보를 분석하여 한국어로 요약해주세요:\n\n")

	if req.ProductName != "" {
		fmt.Fprintf(&b, "**제품명:** %s\n\n", req.ProductName)
	}
	if req.ServingSize != nil {
		fmt.Fprintf(&b, "**1회 제공량:** %s%s\n\n", formatValue(req.ServingSize.Value), req.ServingSize.Unit)
	}

	b.WriteString("**영양성분:**\n")
	for _, k := range sortedKeys(req.Nutrients) {
		n := req.Nutrients[k]
		fmt.Fprintf(&b, "- %s: %s%s\n", k, formatValue(n.Value), n.Unit)
	}

	b.WriteString("\n**영양소 기준치 (% DV):**\n")
	if len(req.DV) == 0 {
		b.WriteString("없음\n")
	} else {
		keys := make([]string, 0, len(req.DV))
		for k := range req.DV {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s%%\n", k, formatValue(req.DV[models.NutrientKey(k)]))
		}
	}

	b.WriteString(`
**요구사항:**
1. 핵심 영양 정보를 1-2문장으로 요약
2. 건강상 장점 3가지 이내 (배열)
3. 주의사항 2가지 이내 (배열)

반드시 다음 JSON 형식으로 응답하세요:
{
  "summary": "요약 문장",
  "highlights": ["장점1", "장점2"],
  "cautions": ["주의사항1"]
}`)
	return b.String()
}

// parseSummary reads the model reply loosely: missing fields get defaults
// and malformed optional sections are dropped.
func parseSummary(content string) (*models.AISummary, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse summary JSON response: %w", err)
	}

	summary := &models.AISummary{
		Summary:    getString(raw, "summary"),
		Highlights: truncate(getStrings(raw, "highlights"), maxHighlights),
		Cautions:   truncate(getStrings(raw, "cautions"), maxCautions),
	}
	if summary.Summary == "" {
		summary.Summary = defaultSummary
	}

	var analysis models.NutritionalAnalysis
	if decodeSection(raw, "nutritional_analysis", &analysis) {
		summary.NutritionalAnalysis = &analysis
	}
	var compliance models.KFDACompliance
	if decodeSection(raw, "kfda_compliance", &compliance) {
		summary.KFDACompliance = &compliance
	}
	var functional models.FunctionalFoodAnalysis
	if decodeSection(raw, "functional_food_analysis", &functional) {
		summary.FunctionalFoodAnalysis = &functional
	}
	return summary, nil
}

func decodeSection(raw map[string]interface{}, key string, target interface{}) bool {
	section, ok := raw[key].(map[string]interface{})
	if !ok {
		return false
	}
	data, err := json.Marshal(section)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

// getString safely extracts a string value from a map[string]interface{}
func getString(m map[string]interface{}, key string) string {
	if value, exists := m[key]; exists && value != nil {
		if str, ok := value.(string); ok {
			return strings.TrimSpace(str)
		}
	}
	return ""
}

// getStrings accepts a list of strings or a single string.
func getStrings(m map[string]interface{}, key string) []string {
	out := []string{}
	switch v := m[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func truncate(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func sortedKeys(nutrients models.Nutrients) []models.NutrientKey {
	keys := make([]models.NutrientKey, 0, len(nutrients))
	for k := range nutrients {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
