package compliance

import (
	"fmt"
	"strings"
)

var generalPrecautions = []string{
	"식사와 함께 또는 식후에 복용하는 것이 좋습니다.",
	"충분한 물과 함께 섭취하십시오.",
	"다른 건강기능식품과 중복 섭취 시 총 섭취량을 확인하십시오.",
	"이상 반응 발생 시 즉시 복용을 중단하고 전문가와 상담하십시오.",
}

// Guidance composes the dosage guidance block: critical issues first, then
// warnings, then general precautions.
func Guidance(issues []Issue) string {
	var critical, warning []Issue
	for _, is := range issues {
		switch is.Severity {
		case SeverityCritical:
			critical = append(critical, is)
		case SeverityWarning:
			warning = append(warning, is)
		}
	}

	var b strings.Builder
	b.WriteString("【복용 가이드라인】\n\n")
	if len(critical)+len(warning) == 0 {
		b.WriteString("✓ 모든 성분이 식약처 권장 범위 내에 있습니다.\n")
		b.WriteString("✓ 제품 라벨에 표시된 용법·용량대로 복용하십시오.\n")
		b.WriteString("✓ 1일 권장량을 초과하지 마십시오.\n")
	} else {
		b.WriteString("⚠ 다음 사항을 주의하여 복용하십시오:\n\n")
		for _, is := range critical {
			fmt.Fprintf(&b, "🚫 %s: %s\n", is.IngredientName, is.Recommendation)
		}
		for _, is := range warning {
			fmt.Fprintf(&b, "⚠ %s: %s\n", is.IngredientName, is.Recommendation)
		}
	}

	b.WriteString("\n【일반 주의사항】\n")
	for _, p := range generalPrecautions {
		fmt.Fprintf(&b, "• %s\n", p)
	}
	return b.String()
}

var ratingVerdicts = map[Rating]string{
	RatingExcellent:  "✅ 우수: 이 제품은 식약처 기준을 완벽하게 준수하고 있으며, 안전하게 섭취 가능합니다.",
	RatingGood:       "✅ 양호: 이 제품은 대체로 식약처 기준에 부합하나, 일부 개선이 필요한 부분이 있습니다.",
	RatingAcceptable: "⚠ 주의: 이 제품은 여러 성분에서 기준치 이탈이 있어 주의가 필요합니다.",
	RatingPoor:       "⚠ 미흡: 이 제품은 식약처 기준 대비 미흡한 점이 많아 재검토가 필요합니다.",
	RatingDangerous:  "🚫 위험: 이 제품은 안전성에 심각한 문제가 있어 섭취를 권장하지 않습니다.",
}

var (
	favourableAdvice = []string{
		"현재 복용 중인 약이 있다면 약사 또는 의사와 상담 후 섭취하십시오.",
		"개인의 건강 상태와 필요에 따라 적합성이 다를 수 있습니다.",
		"정기적인 건강검진을 통해 영양 상태를 확인하십시오.",
	}
	cautiousAdvice = []string{
		"제품 섭취 전 반드시 약사 또는 의사와 상담하십시오.",
		"기존 질환이나 복용 중인 약물이 있다면 특히 주의가 필요합니다.",
		"더 안전하고 균형잡힌 제품을 선택하는 것을 권장합니다.",
	}
)

// Recommendation composes the professional opinion block for rating.
func Recommendation(rating Rating, findings []Finding, interactions []string) string {
	var b strings.Builder
	b.WriteString("【약사 전문 의견】\n\n")
	if v, ok := ratingVerdicts[rating]; ok {
		b.WriteString(v)
		b.WriteString("\n\n")
	}

	var optimal, flagged []string
	for _, f := range findings {
		if f.Status == StatusOptimal {
			optimal = append(optimal, f.KoreanName)
		} else {
			flagged = append(flagged, f.KoreanName)
		}
	}
	b.WriteString("【주요 성분 분석】\n")
	if len(optimal) > 0 {
		fmt.Fprintf(&b, "✓ 적정 범위 성분 (%d개): %s\n", len(optimal), strings.Join(optimal, ", "))
	}
	if len(flagged) > 0 {
		fmt.Fprintf(&b, "⚠ 주의 필요 성분 (%d개): %s\n", len(flagged), strings.Join(flagged, ", "))
	}
	b.WriteString("\n")

	if len(interactions) > 0 {
		b.WriteString("【약물 상호작용 주의】\n")
		for _, in := range interactions {
			fmt.Fprintf(&b, "• %s\n", in)
		}
		b.WriteString("\n")
	}

	b.WriteString("【최종 권고사항】\n")
	advice := cautiousAdvice
	if rating == RatingExcellent || rating == RatingGood {
		advice = favourableAdvice
	}
	for _, a := range advice {
		fmt.Fprintf(&b, "• %s\n", a)
	}
	return b.String()
}
