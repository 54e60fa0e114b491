package compliance

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"nutrilabel/internal/reference"
	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// Unrated reasons.
const (
	ReasonUnknown  = "unknown ingredient"
	ReasonNoRange  = "no reference intake range"
	ReasonNegative = "negative amount"
)

// precautionFlag turns a precaution keyword into an analysis-wide note.
type precautionFlag struct {
	keywords []string
	format   string
}

var (
	interactionFlags = []precautionFlag{
		{[]string{"항응고제"}, "%s: 와파린 등 항응고제와 상호작용 가능"},
		{[]string{"당뇨"}, "%s: 당뇨약과 상호작용 가능 - 혈당 모니터링 필요"},
		{[]string{"고혈압"}, "%s: 혈압약과 상호작용 가능"},
	}
	contraindicationFlags = []precautionFlag{
		{[]string{"임산부"}, "임산부(%s)"},
		{[]string{"신장"}, "신장질환자(%s)"},
		// bare "간" also appears in words such as "장기간"
		{[]string{"간질환", "간 손상", "간손상"}, "간질환자(%s)"},
	}
)

func (p precautionFlag) matches(precautions []string) bool {
	for _, text := range precautions {
		for _, kw := range p.keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

type detected struct {
	source models.NutrientKey
	models.Nutrient
}

// Analyze classifies every functional ingredient in nutrients. Label
// nutrients that are graded by daily value (energy, sodium, ...) are left to
// the dv package. Entries that resolve to no reference ingredient, or to one
// without an intake range, are returned in Result.Unrated and do not count
// toward the average.
func Analyze(nutrients models.Nutrients) *Result {
	res := &Result{
		Findings:           []Finding{},
		Issues:             []Issue{},
		DrugInteractions:   []string{},
		ContraindicatedFor: []string{},
		AppropriateFor:     []string{},
	}

	resolved := resolve(nutrients, res)

	for _, key := range reference.IngredientKeys() {
		d, ok := resolved[key]
		if !ok {
			continue
		}
		ing, _ := reference.LookupIngredient(key)
		if ing.Range == nil {
			res.Unrated = append(res.Unrated, Unrated{Key: d.source, Value: d.Value, Unit: d.Unit, Reason: ReasonNoRange})
			continue
		}
		finding, issues := assess(ing, d.Nutrient)
		res.Findings = append(res.Findings, finding)
		res.Issues = append(res.Issues, issues...)

		for _, f := range interactionFlags {
			if f.matches(ing.Precautions) {
				res.DrugInteractions = append(res.DrugInteractions, fmt.Sprintf(f.format, ing.KoreanName))
			}
		}
		for _, f := range contraindicationFlags {
			if f.matches(ing.Precautions) {
				res.ContraindicatedFor = append(res.ContraindicatedFor, fmt.Sprintf(f.format, ing.KoreanName))
			}
		}
		for _, t := range ing.TargetGroups {
			res.AppropriateFor = append(res.AppropriateFor, fmt.Sprintf("%s(%s)", t, ing.KoreanName))
		}
	}

	res.DrugInteractions = dedupe(res.DrugInteractions)
	res.ContraindicatedFor = dedupe(res.ContraindicatedFor)
	res.AppropriateFor = dedupe(res.AppropriateFor)

	res.AverageCompliance = AverageCompliance(res.Findings)
	res.ComplianceScore = int(math.Round(res.AverageCompliance))
	res.OverallRating = Rate(res.Findings, res.Issues, res.AverageCompliance)
	res.Guidance = Guidance(res.Issues)
	res.Recommendation = Recommendation(res.OverallRating, res.Findings, res.DrugInteractions)
	res.Regulatory = regulatoryStatus(res.Findings, res.Issues)
	return res
}

// resolve maps input keys onto reference ingredients. An input key that
// equals the canonical key wins over a synonym that resolves to it.
func resolve(nutrients models.Nutrients, res *Result) map[models.NutrientKey]detected {
	keys := make([]models.NutrientKey, 0, len(nutrients))
	for k := range nutrients {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(map[models.NutrientKey]detected)
	for _, k := range keys {
		n := nutrients[k]
		ik, ok := reference.ResolveIngredient(string(k))
		if !ok {
			if _, label := reference.Nutrient(k); !label {
				res.Unrated = append(res.Unrated, Unrated{Key: k, Value: n.Value, Unit: n.Unit, Reason: ReasonUnknown})
			}
			continue
		}
		if n.Value < 0 {
			res.Unrated = append(res.Unrated, Unrated{Key: k, Value: n.Value, Unit: n.Unit, Reason: ReasonNegative})
			continue
		}
		if _, dup := out[ik]; dup && k != ik {
			continue
		}
		out[ik] = detected{source: k, Nutrient: n}
	}
	return out
}

func assess(ing reference.Ingredient, n models.Nutrient) (Finding, []Issue) {
	r := ing.Range
	conv := units.Convert(n.Value, n.Unit, r.Unit)
	amount := conv.Value

	status := Classify(amount, r.Min, r.Max)
	f := Finding{
		Key:                  ing.Key,
		KoreanName:           ing.KoreanName,
		DetectedAmount:       amount,
		Unit:                 r.Unit,
		IntakeRange:          ing.Intake,
		Status:               status,
		CompliancePercentage: CompliancePercentage(amount, r.Min, r.Max),
		Approved:             ing.Approved,
		Functionality:        ing.Functionality,
		Precautions:          ing.Precautions,
		TargetGroups:         ing.TargetGroups,
		UnitConverted:        conv.OK,
		LowConfidence:        !conv.OK,
	}

	var issues []Issue
	if !conv.OK {
		f.Unit = units.Canonical(n.Unit)
		issues = append(issues, Issue{
			Severity:       SeverityInfo,
			Ingredient:     ing.Key,
			IngredientName: ing.KoreanName,
			Issue:          fmt.Sprintf("%s 표시 단위(%s)를 기준 단위(%s)로 환산할 수 없어 표시값 그대로 평가했습니다.", ing.KoreanName, n.Unit, r.Unit),
			Recommendation: "라벨의 단위 표기를 확인하십시오.",
			Reference:      ing.Intake,
		})
	}

	lo, hi := amountString(r.Min), amountString(r.Max)
	switch status {
	case StatusDeficient:
		f.Note = fmt.Sprintf("권장량 미달. 최소 %s%s 이상 섭취 필요.", lo, r.Unit)
		issues = append(issues, Issue{
			Severity:       SeverityWarning,
			Ingredient:     ing.Key,
			IngredientName: ing.KoreanName,
			Issue:          fmt.Sprintf("%s 함량이 식약처 권장 최소량(%s%s)에 미치지 못합니다.", ing.KoreanName, lo, r.Unit),
			Recommendation: fmt.Sprintf("최소 %s%s 이상으로 증량을 권장합니다.", lo, r.Unit),
			Reference:      ing.Intake,
		})
	case StatusOptimal:
		f.Note = "식약처 기준 적정 범위 내. 안전한 섭취 가능."
	case StatusExcessive:
		f.Note = "권장 상한선 초과. 장기 복용 시 주의 필요."
		issues = append(issues, Issue{
			Severity:       SeverityWarning,
			Ingredient:     ing.Key,
			IngredientName: ing.KoreanName,
			Issue:          fmt.Sprintf("%s 함량이 식약처 권장 상한선(%s%s)을 초과합니다.", ing.KoreanName, hi, r.Unit),
			Recommendation: fmt.Sprintf("%s%s 이하로 감량하거나 복용 빈도 조절이 필요합니다.", hi, r.Unit),
			Reference:      ing.Intake,
		})
	case StatusDangerous:
		f.Note = "위험 수준. 즉시 섭취 중단 및 전문가 상담 필요."
		issues = append(issues, Issue{
			Severity:       SeverityCritical,
			Ingredient:     ing.Key,
			IngredientName: ing.KoreanName,
			Issue:          fmt.Sprintf("%s 함량이 안전 상한선을 크게 초과하여 건강 위해 가능성이 있습니다.", ing.KoreanName),
			Recommendation: "즉시 섭취를 중단하고 의사 또는 약사와 상담하십시오.",
			Reference:      ing.Intake,
		})
	}
	return f, issues
}

// amountString prints a range bound without trailing zeros, writing CFU
// counts in units of 억.
func amountString(v float64) string {
	if v >= 1e8 && math.Mod(v, 1e8) == 0 {
		return strconv.FormatFloat(v/1e8, 'f', -1, 64) + "억"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func regulatoryStatus(findings []Finding, issues []Issue) RegulatoryStatus {
	rs := RegulatoryStatus{
		KFDACompliant:   true,
		AgeRestrictions: []string{},
	}
	for _, is := range issues {
		if is.Severity == SeverityCritical {
			rs.KFDACompliant = false
		}
	}
	rs.HealthFunctionalFood = len(findings) > 0
	for _, f := range findings {
		if !f.Approved {
			rs.HealthFunctionalFood = false
		}
	}
	return rs
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
