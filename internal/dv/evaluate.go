package dv

import (
	"nutrilabel/internal/reference"
	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// Level grades an amount by its share of the daily value.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// Evaluation is the graded reading of one nutrient.
type Evaluation struct {
	Key        models.NutrientKey `json:"key"`
	KoreanName string             `json:"korean_name,omitempty"`
	Level      Level              `json:"level"`
	Evaluation string             `json:"evaluation"`
	Status     string             `json:"status"`
	Percent    float64            `json:"percent"`
	Guideline  string             `json:"guideline,omitempty"`
	Risk       string             `json:"risk,omitempty"`
}

type band struct {
	below      float64
	level      Level
	evaluation string
	status     string
}

// Bands are checked in order; the last one has no upper bound.
var (
	undesirableBands = []band{
		{5, LevelLow, "매우 낮은 함량 (건강에 유리)", "저함량 식품"},
		{15, LevelModerate, "적정 함량", "적정 수준"},
		{30, LevelHigh, "다소 높은 함량 (섭취 주의)", "주의 필요"},
		{0, LevelVeryHigh, "매우 높은 함량 (과다 섭취 위험)", "고함량 - 섭취 제한 권장"},
	}
	desirableBands = []band{
		{5, LevelLow, "낮은 함량", "영양소 부족"},
		{15, LevelModerate, "적정 함량", "적정 수준"},
		{30, LevelHigh, "높은 함량 (영양가 우수)", "우수 식품"},
		{0, LevelVeryHigh, "매우 높은 함량", "고함량 식품"},
	}
)

// Evaluate grades value against the daily value for key. Nutrients where
// less is better (sodium, sugar, saturated and trans fat, cholesterol) read
// differently from the ones where more is better.
func Evaluate(key models.NutrientKey, value float64, unit string) Evaluation {
	std, ok := reference.Nutrient(key)
	if !ok {
		return Evaluation{
			Key:        key,
			Level:      LevelModerate,
			Evaluation: "기준 정보 없음",
			Status:     "평가 불가",
		}
	}

	pct := units.Normalize(value, unit, std.Unit) / std.DailyValue * 100
	bands := desirableBands
	if std.Undesirable {
		bands = undesirableBands
	}
	b := bands[len(bands)-1]
	for _, candidate := range bands[:len(bands)-1] {
		if pct < candidate.below {
			b = candidate
			break
		}
	}

	ev := Evaluation{
		Key:        key,
		KoreanName: std.KoreanName,
		Level:      b.level,
		Evaluation: b.evaluation,
		Status:     b.status,
		Percent:    units.RoundTo(pct, 1),
		Guideline:  std.Guideline,
	}
	switch b.level {
	case LevelLow:
		ev.Risk = std.DeficiencyRisk
	case LevelHigh, LevelVeryHigh:
		ev.Risk = std.ExcessRisk
	}
	if std.Undesirable && b.level == LevelLow {
		ev.Risk = ""
	}
	return ev
}

// EvaluateAll grades every label nutrient present in nutrients, in
// reference table order. Keys outside the nutrient table are skipped.
func EvaluateAll(nutrients models.Nutrients) []Evaluation {
	var out []Evaluation
	for _, key := range reference.NutrientKeys() {
		n, ok := nutrients[key]
		if !ok {
			continue
		}
		out = append(out, Evaluate(key, n.Value, n.Unit))
	}
	return out
}
