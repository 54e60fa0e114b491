package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"nutrilabel/internal/compliance"
	"nutrilabel/internal/reference"
	"nutrilabel/internal/review"
	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

var ratingLabels = map[compliance.Rating]string{
	compliance.RatingExcellent:  "우수",
	compliance.RatingGood:       "양호",
	compliance.RatingAcceptable: "보통",
	compliance.RatingPoor:       "미흡",
	compliance.RatingDangerous:  "위험",
}

var statusLabels = map[compliance.Status]string{
	compliance.StatusDeficient: "부족",
	compliance.StatusOptimal:   "적정",
	compliance.StatusExcessive: "과다",
	compliance.StatusDangerous: "위험",
}

// formatReport renders a report as JSON or as a plain-text review sheet.
func formatReport(report *review.Report, jsonOutput bool) ([]byte, error) {
	if jsonOutput {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to create JSON output: %w", err)
		}
		return append(data, '\n'), nil
	}
	return []byte(renderReport(report)), nil
}

func renderReport(r *review.Report) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "영양 표시 검토: %s\n", valueOr(r.Meta.Product, "(제품명 없음)"))
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "배치: %s\n", r.Meta.Batch)
	if r.Debug.Filename != "" {
		fmt.Fprintf(&b, "파일: %s\n", r.Debug.Filename)
	}
	if r.ServingSize != nil {
		fmt.Fprintf(&b, "1회 제공량: %s%s\n", units.FormatAmount(r.ServingSize.Value, r.ServingSize.Unit), r.ServingSize.Unit)
	} else {
		b.WriteString("1회 제공량: 확인되지 않음\n")
	}

	b.WriteString("\n[영양 성분]\n")
	if len(r.Nutrients) == 0 {
		b.WriteString("  인식된 영양 성분이 없습니다.\n")
	}
	for _, key := range orderedKeys(r.Nutrients) {
		n := r.Nutrients[key]
		fmt.Fprintf(&b, "  %-12s %8s %-4s", displayName(key), units.FormatAmount(n.Value, n.Unit), n.Unit)
		if n.PercentDV != nil {
			fmt.Fprintf(&b, " %6.1f%%", *n.PercentDV)
		}
		b.WriteString("\n")
	}

	if len(r.Evaluations) > 0 {
		b.WriteString("\n[기준치 대비 평가]\n")
		for _, e := range r.Evaluations {
			fmt.Fprintf(&b, "  %-12s %-9s %s\n", valueOr(e.KoreanName, string(e.Key)), e.Level, e.Evaluation)
		}
	}

	if c := r.Compliance; c != nil {
		b.WriteString("\n[기능성 원료 검토]\n")
		fmt.Fprintf(&b, "  종합 평가: %s (%s), 준수 점수 %d\n", ratingLabels[c.OverallRating], c.OverallRating, c.ComplianceScore)
		for _, f := range c.Findings {
			fmt.Fprintf(&b, "  - %s %s%s: %s (기준 %s)", f.KoreanName, units.FormatAmount(f.DetectedAmount, f.Unit), f.Unit, statusLabels[f.Status], f.IntakeRange)
			if f.LowConfidence {
				b.WriteString(" [단위 확인 필요]")
			}
			b.WriteString("\n")
		}
		for _, issue := range c.Issues {
			fmt.Fprintf(&b, "  ! [%s] %s: %s\n", issue.Severity, issue.IngredientName, issue.Issue)
		}
		if len(c.DrugInteractions) > 0 {
			fmt.Fprintf(&b, "  약물 상호작용: %s\n", strings.Join(c.DrugInteractions, ", "))
		}
		if c.Guidance != "" {
			fmt.Fprintf(&b, "  복용 안내: %s\n", c.Guidance)
		}
		if c.Recommendation != "" {
			fmt.Fprintf(&b, "  전문가 의견: %s\n", c.Recommendation)
		}
	}

	if ff := r.FunctionalFood; ff.PrimaryCategory != "" && ff.PrimaryCategory != compliance.CategoryGeneral {
		fmt.Fprintf(&b, "\n기능성 분류: %s", valueOr(ff.PrimaryCategoryName, ff.PrimaryCategory))
		if len(ff.SecondaryCategories) > 0 {
			fmt.Fprintf(&b, " (보조: %s)", strings.Join(ff.SecondaryCategories, ", "))
		}
		b.WriteString("\n")
	}

	if s := r.AISummary; s != nil {
		b.WriteString("\n[요약]\n")
		fmt.Fprintf(&b, "  %s\n", s.Summary)
		for _, h := range s.Highlights {
			fmt.Fprintf(&b, "  + %s\n", h)
		}
		for _, c := range s.Cautions {
			fmt.Fprintf(&b, "  ! %s\n", c)
		}
	}

	if len(r.ValidationErrors) > 0 {
		b.WriteString("\n[검증 경고]\n")
		for _, msg := range r.ValidationErrors {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}

	fmt.Fprintf(&b, "\n검토 ID: %s\n", r.ID)
	return b.String()
}

// orderedKeys lists label nutrients in reference table order, then the
// remaining keys alphabetically.
func orderedKeys(nutrients models.Nutrients) []models.NutrientKey {
	keys := make([]models.NutrientKey, 0, len(nutrients))
	seen := make(map[models.NutrientKey]bool, len(nutrients))
	for _, key := range reference.NutrientKeys() {
		if _, ok := nutrients[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	var rest []models.NutrientKey
	for key := range nutrients {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(keys, rest...)
}

func displayName(key models.NutrientKey) string {
	if n, ok := reference.Nutrient(key); ok {
		return n.KoreanName
	}
	if ing, ok := reference.LookupIngredient(key); ok {
		return ing.KoreanName
	}
	return string(key)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
