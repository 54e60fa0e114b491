package extract

import (
	"regexp"
	"strings"

	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// Rule recognizes one canonical key on a line of label text.
//
// Pattern groups are (1) label, (2) number and (3) unit. Exclude lists label
// prefixes that make a match belong to a different key (for example
// "포화" before "지방"). Scale, when set, converts the matched amount and
// unit token into the value recorded for the key.
type Rule struct {
	Key     models.NutrientKey
	Pattern *regexp.Regexp
	Exclude []string
	Scale   func(value float64, unit string) (float64, string)
}

const (
	numberExpr = `(-?\d+(?:[.,]\d+)?)`
	// optional parenthesized qualifier after the label, e.g. "비타민B1(티아민)"
	qualifierExpr = `(?:\s*\([^)]*\))?`
	separatorExpr = `[\s:：]*`

	massUnits  = `mg|g|㎎|밀리그램|그램`
	microUnits = `μg|µg|ug|mcg|㎍|mg|g|㎎`
)

func newRule(key models.NutrientKey, labels, unitExpr string, exclude ...string) Rule {
	expr := `(?i)(` + labels + `)` + qualifierExpr + separatorExpr + numberExpr + `\s*(` + unitExpr + `)`
	return Rule{Key: key, Pattern: regexp.MustCompile(expr), Exclude: exclude}
}

func scaleEok(value float64, unit string) (float64, string) {
	if strings.Contains(unit, "억") {
		return value * 1e8, units.CFU
	}
	return value, units.CFU
}

// catalog is evaluated in order for every line. Within a line each key takes
// its first match; across lines the first line that matches a key wins.
var catalog = []Rule{
	newRule("energy", `열량|에너지|칼로리|calories?|energy`, `kcal|㎉|칼로리`),
	newRule("protein", `단백질|프로틴|protein`, massUnits),
	newRule("fat_total", `총\s*지방|지방|지질|total\s*fat|fat`, massUnits, "포화", "트랜스", "saturated", "trans"),
	newRule("fat_saturated", `포화\s*지방(?:산)?|saturated\s*fat`, massUnits),
	newRule("fat_trans", `트랜스\s*지방(?:산)?|trans\s*fat`, massUnits),
	newRule("carbohydrate", `탄수화물|carbohydrates?|carbs`, massUnits),
	newRule("sugar", `당류|설탕|sugars?`, massUnits),
	newRule("sodium", `나트륨|소듐|sodium`, massUnits),
	newRule("cholesterol", `콜레스테롤|cholesterol`, massUnits),
	newRule("fiber", `식이\s*섬유|dietary\s*fiber|fiber|fibre`, massUnits),

	newRule("vitamin_a", `비타민\s*A|vitamin\s*A|레티놀|retinol`, microUnits),
	newRule("vitamin_b1", `비타민\s*B1|vitamin\s*B1|티아민|thiamine?`, microUnits),
	newRule("vitamin_b2", `비타민\s*B2|vitamin\s*B2|리보플라빈|riboflavin`, microUnits),
	newRule("vitamin_b3", `비타민\s*B3|vitamin\s*B3|나이아신|niacin`, microUnits),
	newRule("vitamin_b5", `비타민\s*B5|vitamin\s*B5|판토텐산|pantothenic\s*acid`, microUnits),
	newRule("vitamin_b6", `비타민\s*B6|vitamin\s*B6|피리독신|pyridoxine`, microUnits),
	newRule("vitamin_b7", `비타민\s*B7|vitamin\s*B7|비오틴|biotin`, microUnits),
	newRule("vitamin_b9", `비타민\s*B9|vitamin\s*B9|엽산|folic\s*acid|folate`, microUnits),
	newRule("vitamin_b12", `비타민\s*B12|vitamin\s*B12|코발라민|cobalamin`, microUnits),
	newRule("vitamin_c", `비타민\s*C|vitamin\s*C|아스코르브산|ascorbic\s*acid`, microUnits),
	newRule("vitamin_d", `비타민\s*D3?|vitamin\s*D3?|콜레칼시페롤|cholecalciferol`, microUnits),
	newRule("vitamin_e", `비타민\s*E|vitamin\s*E|토코페롤|tocopherol`, microUnits),
	newRule("vitamin_k", `비타민\s*K|vitamin\s*K|필로퀴논|phylloquinone`, microUnits),

	newRule("calcium", `칼슘|calcium`, massUnits),
	newRule("magnesium", `마그네슘|magnesium`, massUnits),
	newRule("zinc", `아연|zinc`, microUnits),
	newRule("iron", `(?:^|[^가-힣])철(?:분)?|iron`, microUnits),
	newRule("phosphorus", `(?:^|[^가-힣])인|phosphorus`, massUnits),
	newRule("iodine", `요오드|아이오딘|iodine`, microUnits),
	newRule("selenium", `셀레늄|셀렌|selenium`, microUnits),
	newRule("copper", `구리|copper`, microUnits),
	newRule("manganese", `망간|manganese`, microUnits),
	newRule("chromium", `크롬|chromium`, microUnits),
	newRule("molybdenum", `몰리브덴|molybdenum`, microUnits),
	newRule("potassium", `칼륨|potassium`, massUnits),

	newRule("omega3", `EPA\s*(?:및|and|\+|&)?\s*DHA(?:\s*의\s*합)?|오메가\s*-?\s*3(?:\s*지방산)?|omega\s*-?\s*3(?:\s*fatty\s*acids?)?`, massUnits),
	{
		Key: "probiotics",
		Pattern: regexp.MustCompile(`(?i)(프로바이오틱스|probiotics?|유산균(?:\s*수)?)` + qualifierExpr + separatorExpr +
			numberExpr + `\s*(억\s*cfu|억|cfu)`),
		Scale: scaleEok,
	},
	newRule("coq10", `코엔자임\s*Q\s*10|coenzyme\s*Q\s*10|CoQ\s*10`, massUnits),
	newRule("red_ginseng", `진세노사이드(?:\s*Rg1\s*\+\s*Rb1\s*\+\s*Rg3)?|ginsenosides?`, massUnits),
	newRule("lutein", `루테인|lutein`, massUnits),
	newRule("milk_thistle", `실리마린|silymarin`, massUnits),
	newRule("glucosamine", `글루코사민|glucosamine`, massUnits),
	newRule("collagen", `콜라겐(?:\s*펩타이드)?|collagen(?:\s*peptides?)?`, massUnits),
}

// Rules returns the recognition catalog in evaluation order.
func Rules() []Rule {
	return append([]Rule(nil), catalog...)
}
