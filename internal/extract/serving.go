package extract

import (
	"regexp"
	"strings"

	"nutrilabel/pkg/models"
)

const servingUnitExpr = `(ml|밀리리터|g|그램|ea|개|정|포|캡슐|tablets?|capsules?)`

// servingPatterns are tried in order against the whole text. Labelled
// patterns come first so a stray amount elsewhere on the label is only used
// when no serving is declared. Group 1 is the number, group 2 the unit.
var servingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:1\s*회\s*(?:제공량|섭취량|분량)|1\s*회당|serving\s*size|per\s*serving)` +
		`[\s:：]*(?:\d+\s*(?:포|정|개|캡슐|병|스틱)\s*)?\(?\s*` + numberExpr + `\s*` + servingUnitExpr),
	regexp.MustCompile(`(?i)(?:총\s*내용량|내용량|net\s*wt\.?|net\s*weight)[\s:：]*` + numberExpr + `\s*(ml|밀리리터|g|그램)`),
	regexp.MustCompile(`(?i)` + numberExpr + `\s*(ml|밀리리터|g|그램|ea)`),
}

// ExtractServingSize returns the first positive serving size found by the
// prioritized pattern list, or nil.
func ExtractServingSize(text string) *models.ServingSize {
	for _, p := range servingPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			v, ok := parseNumber(m[1])
			if !ok || v <= 0 {
				continue
			}
			return &models.ServingSize{Value: v, Unit: bucketServingUnit(m[2])}
		}
	}
	return nil
}

func bucketServingUnit(unit string) string {
	u := strings.ToLower(unit)
	switch {
	case strings.Contains(u, "ml"), strings.Contains(u, "밀리리터"):
		return models.ServingUnitMilliliter
	case u == "g", strings.Contains(u, "그램"):
		return models.ServingUnitGram
	default:
		return models.ServingUnitEach
	}
}
