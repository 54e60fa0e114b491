package summary

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nutrilabel/pkg/models"
	"nutrilabel/pkg/services"
)

// Fallback templates a summary locally. It is used whenever generation is
// unavailable or fails.
func Fallback(req *services.SummaryRequest) *models.AISummary {
	text := "영양 정보가 분석되었습니다."
	if req != nil && req.ServingSize != nil {
		text = fmt.Sprintf("1회 %s%s 섭취 시 영양 정보가 분석되었습니다.", formatValue(req.ServingSize.Value), req.ServingSize.Unit)
	}
	return &models.AISummary{
		Summary:    text,
		Highlights: []string{"영양 성분 표시 확인"},
		Cautions:   []string{"상세한 영양 상담이 필요한 경우 전문가와 상담하세요"},
		Fallback:   true,
	}
}

// Generate returns a summary from svc, or the fallback when svc is nil or
// fails. It never returns nil.
func Generate(ctx context.Context, svc services.SummaryService, req *services.SummaryRequest, log zerolog.Logger) *models.AISummary {
	if svc == nil {
		return Fallback(req)
	}
	summary, err := svc.Summarize(ctx, req)
	if err != nil || summary == nil {
		log.Warn().
			Err(err).
			Msg("Summary generation failed, using fallback")
		return Fallback(req)
	}
	return summary
}
