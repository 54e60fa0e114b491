// Package extract turns raw OCR text of a nutrition or supplement label into
// a structured nutrient record.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// Result is the structured record parsed from one document.
type Result struct {
	ServingSize *models.ServingSize `json:"serving_size,omitempty"`
	Nutrients   models.Nutrients    `json:"nutrients"`
}

// Extract parses text line by line against the rule catalog. For every key
// the first line that matches is kept; later mentions never overwrite it.
// Empty or unrecognizable text yields an empty nutrient map.
func Extract(text string) Result {
	return Result{
		ServingSize: ExtractServingSize(text),
		Nutrients:   ExtractNutrients(text),
	}
}

// ExtractNutrients applies the rule catalog to text.
func ExtractNutrients(text string) models.Nutrients {
	found := make(models.Nutrients)
	for _, line := range splitLines(text) {
		for _, rule := range catalog {
			if _, done := found[rule.Key]; done {
				continue
			}
			if n, ok := rule.match(line); ok {
				found[rule.Key] = n
			}
		}
	}
	return found
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// match returns the first acceptable match of the rule on line.
func (r Rule) match(line string) (models.Nutrient, bool) {
	for _, loc := range r.Pattern.FindAllStringSubmatchIndex(line, -1) {
		labelStart, labelEnd := loc[2], loc[3]
		if r.excluded(line[:labelStart]) {
			continue
		}
		if splitsNumber(line, labelEnd) {
			continue
		}
		value, ok := parseNumber(line[loc[4]:loc[5]])
		if !ok {
			continue
		}
		unit := line[loc[6]:loc[7]]
		if r.Scale != nil {
			value, unit = r.Scale(value, unit)
		} else {
			unit = units.Canonical(unit)
		}
		return models.Nutrient{Value: value, Unit: unit}, true
	}
	return models.Nutrient{}, false
}

func (r Rule) excluded(prefix string) bool {
	if len(r.Exclude) == 0 {
		return false
	}
	p := strings.ToLower(strings.TrimSpace(prefix))
	for _, ex := range r.Exclude {
		if strings.HasSuffix(p, ex) {
			return true
		}
	}
	return false
}

// splitsNumber reports whether a label ending in a digit continues with
// another digit, as when "비타민B1" is found inside "비타민B12".
func splitsNumber(line string, labelEnd int) bool {
	last, _ := utf8.DecodeLastRuneInString(line[:labelEnd])
	if !unicode.IsDigit(last) || labelEnd >= len(line) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(line[labelEnd:])
	return unicode.IsDigit(next)
}

var thousandsGroup = regexp.MustCompile(`^-?[1-9]\d{0,2},\d{3}$`)

// parseNumber reads a label amount. A comma followed by exactly three digits
// after a non-zero integer part ("1,500") groups thousands; any other comma
// ("0,5", "12,5") is a decimal separator. This intentionally departs from
// treating every comma as a decimal point, which would read "1,500mg" of
// sodium as 1.5mg.
func parseNumber(s string) (float64, bool) {
	if thousandsGroup.MatchString(s) {
		s = strings.Replace(s, ",", "", 1)
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
