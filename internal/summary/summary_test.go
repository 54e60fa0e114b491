package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilabel/pkg/models"
	"nutrilabel/pkg/services"
)

type fakeClient struct {
	replies  []string
	errs     []error
	requests []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	var content string
	if i < len(f.replies) {
		content = f.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func sampleRequest() *services.SummaryRequest {
	return &services.SummaryRequest{
		ServingSize: &models.ServingSize{Value: 30, Unit: "g"},
		Nutrients: models.Nutrients{
			"sodium":  {Value: 1500, Unit: "mg"},
			"protein": {Value: 12.5, Unit: "g"},
		},
		DV:          models.DailyValues{"sodium": 75},
		ProductName: "현미 그래놀라",
	}
}

func TestSummarize(t *testing.T) {
	client := &fakeClient{replies: []string{`{
		"summary": "나트륨 함량이 높은 제품입니다.",
		"highlights": ["단백질 함유", "식이섬유", "저당", "네 번째"],
		"cautions": ["나트륨 과다", "알레르기", "세 번째"],
		"kfda_compliance": {"labeling_status": "적합", "health_claims": [], "warnings": ["나트륨"]}
	}`}}
	svc := NewOpenAIServiceWithClient(client, Config{Model: "gpt-4", Temperature: 0.7, MaxRetries: 3})

	got, err := svc.Summarize(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "나트륨 함량이 높은 제품입니다.", got.Summary)
	assert.Equal(t, []string{"단백질 함유", "식이섬유", "저당"}, got.Highlights)
	assert.Equal(t, []string{"나트륨 과다", "알레르기"}, got.Cautions)
	require.NotNil(t, got.KFDACompliance)
	assert.Equal(t, "적합", got.KFDACompliance.LabelingStatus)
	assert.Nil(t, got.NutritionalAnalysis)
	assert.False(t, got.Fallback)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "gpt-4", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Equal(t, systemPrompt, req.Messages[0].Content)

	prompt := req.Messages[1].Content
	assert.Contains(t, prompt, "**1회 제공량:** 30g")
	assert.Contains(t, prompt, "- protein: 12.5g\n- sodium: 1500mg")
	assert.Contains(t, prompt, "- sodium: 75%")
	assert.Contains(t, prompt, "현미 그래놀라")
}

func TestSummarizeRetries(t *testing.T) {
	client := &fakeClient{
		errs:    []error{errors.New("503 from upstream")},
		replies: []string{"", "not json", `{"highlights": "단일 항목"}`},
	}
	svc := NewOpenAIServiceWithClient(client, Config{MaxRetries: 3})

	got, err := svc.Summarize(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Len(t, client.requests, 3)
	assert.Equal(t, defaultSummary, got.Summary)
	assert.Equal(t, []string{"단일 항목"}, got.Highlights)
	assert.Equal(t, []string{}, got.Cautions)
}

func TestSummarizeExhaustsRetries(t *testing.T) {
	client := &fakeClient{replies: []string{"{", "{"}}
	svc := NewOpenAIServiceWithClient(client, Config{MaxRetries: 2})

	_, err := svc.Summarize(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestSummarizeStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeClient{}
	svc := NewOpenAIServiceWithClient(client, Config{MaxRetries: 3})

	_, err := svc.Summarize(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.requests)
}

func TestPromptWithoutDV(t *testing.T) {
	req := sampleRequest()
	req.DV = nil
	assert.Contains(t, buildPrompt(req), "**영양소 기준치 (% DV):**\n없음")
}

func TestNewOpenAIServiceRequiresKey(t *testing.T) {
	_, err := NewOpenAIService(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

type failingService struct{}

func (failingService) Summarize(context.Context, *services.SummaryRequest) (*models.AISummary, error) {
	return nil, errors.New("quota exceeded")
}

func TestGenerate(t *testing.T) {
	log := zerolog.Nop()

	t.Run("fallback on failure", func(t *testing.T) {
		got := Generate(context.Background(), failingService{}, sampleRequest(), log)
		assert.True(t, got.Fallback)
		assert.Equal(t, "1회 30g 섭취 시 영양 정보가 분석되었습니다.", got.Summary)
		assert.Equal(t, []string{"영양 성분 표시 확인"}, got.Highlights)
		assert.Equal(t, []string{"상세한 영양 상담이 필요한 경우 전문가와 상담하세요"}, got.Cautions)
	})

	t.Run("fallback without service", func(t *testing.T) {
		got := Generate(context.Background(), nil, &services.SummaryRequest{}, log)
		assert.True(t, got.Fallback)
		assert.Equal(t, "영양 정보가 분석되었습니다.", got.Summary)
	})

	t.Run("generated", func(t *testing.T) {
		client := &fakeClient{replies: []string{`{"summary": "좋음", "highlights": [], "cautions": []}`}}
		svc := NewOpenAIServiceWithClient(client, Config{MaxRetries: 1})
		got := Generate(context.Background(), svc, sampleRequest(), log)
		assert.False(t, got.Fallback)
		assert.Equal(t, "좋음", got.Summary)
	})
}
