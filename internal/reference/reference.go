// Package reference holds the regulatory reference tables: label nutrient
// daily values, approved functional ingredients with their intake ranges and
// the functional food categories. The tables are embedded and parsed once at
// init; every value returned is read-only and safe for concurrent use.
package reference

import (
	"embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"nutrilabel/pkg/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

// NutrientStandard is the reference entry for a label nutrient.
type NutrientStandard struct {
	Key            models.NutrientKey `yaml:"key" json:"key"`
	KoreanName     string             `yaml:"korean_name" json:"korean_name"`
	DailyValue     float64            `yaml:"daily_value" json:"daily_value"`
	Unit           string             `yaml:"unit" json:"unit"`
	Guideline      string             `yaml:"guideline" json:"guideline"`
	Info           string             `yaml:"info" json:"info"`
	LowThreshold   *float64           `yaml:"low_threshold" json:"low_threshold,omitempty"`
	HighThreshold  *float64           `yaml:"high_threshold" json:"high_threshold,omitempty"`
	ExcessRisk     string             `yaml:"excess_risk" json:"excess_risk,omitempty"`
	DeficiencyRisk string             `yaml:"deficiency_risk" json:"deficiency_risk,omitempty"`
	Undesirable    bool               `yaml:"undesirable" json:"undesirable"`
	Synonyms       []string           `yaml:"synonyms" json:"synonyms"`
}

// Ingredient is an approved functional ingredient.
type Ingredient struct {
	Key           models.NutrientKey `yaml:"key" json:"key"`
	KoreanName    string             `yaml:"korean_name" json:"korean_name"`
	EnglishName   string             `yaml:"english_name" json:"english_name"`
	Category      string             `yaml:"category" json:"category"`
	Functionality []string           `yaml:"functionality" json:"functionality"`
	Intake        string             `yaml:"intake" json:"daily_intake"`
	Precautions   []string           `yaml:"precautions" json:"precautions"`
	TargetGroups  []string           `yaml:"target_groups" json:"target_groups"`
	Approved      bool               `yaml:"approved" json:"approved"`
	Synonyms      []string           `yaml:"synonyms" json:"synonyms"`

	// Range is parsed from Intake; nil when the text carries no amount.
	Range *Range `yaml:"-" json:"range,omitempty"`
}

// Category is a functional food category.
type Category struct {
	Key      string   `yaml:"key" json:"key"`
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type tables struct {
	nutrients      map[models.NutrientKey]NutrientStandard
	nutrientOrder  []models.NutrientKey
	ingredients    map[models.NutrientKey]Ingredient
	ingredientKeys []models.NutrientKey
	synonyms       map[string]models.NutrientKey
	categories     []Category
}

var tbl = mustLoad()

func mustLoad() *tables {
	t, err := load(dataFS)
	if err != nil {
		panic(fmt.Sprintf("reference: %v", err))
	}
	return t
}

func load(fsys embed.FS) (*tables, error) {
	var nf struct {
		Nutrients []NutrientStandard `yaml:"nutrients"`
	}
	var inf struct {
		Ingredients []Ingredient `yaml:"ingredients"`
	}
	var cf struct {
		Categories []Category `yaml:"categories"`
	}
	for name, dst := range map[string]any{
		"data/nutrients.yaml":   &nf,
		"data/ingredients.yaml": &inf,
		"data/categories.yaml":  &cf,
	} {
		raw, err := fsys.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := yaml.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	t := &tables{
		nutrients:   make(map[models.NutrientKey]NutrientStandard, len(nf.Nutrients)),
		ingredients: make(map[models.NutrientKey]Ingredient, len(inf.Ingredients)),
		synonyms:    make(map[string]models.NutrientKey),
		categories:  cf.Categories,
	}
	for _, n := range nf.Nutrients {
		if n.DailyValue <= 0 {
			return nil, fmt.Errorf("nutrient %s: daily value must be positive", n.Key)
		}
		if _, dup := t.nutrients[n.Key]; dup {
			return nil, fmt.Errorf("nutrient %s: duplicate key", n.Key)
		}
		t.nutrients[n.Key] = n
		t.nutrientOrder = append(t.nutrientOrder, n.Key)
	}
	for _, ing := range inf.Ingredients {
		if _, dup := t.ingredients[ing.Key]; dup {
			return nil, fmt.Errorf("ingredient %s: duplicate key", ing.Key)
		}
		ing.Range = ParseRange(ing.Intake)
		t.ingredients[ing.Key] = ing
		t.ingredientKeys = append(t.ingredientKeys, ing.Key)

		t.synonyms[normalizeName(string(ing.Key))] = ing.Key
		for _, s := range ing.Synonyms {
			n := normalizeName(s)
			if prev, ok := t.synonyms[n]; ok && prev != ing.Key {
				return nil, fmt.Errorf("synonym %q maps to both %s and %s", s, prev, ing.Key)
			}
			t.synonyms[n] = ing.Key
		}
	}
	return t, nil
}

// Nutrient returns the standard for a label nutrient.
func Nutrient(key models.NutrientKey) (NutrientStandard, bool) {
	n, ok := tbl.nutrients[key]
	return n, ok
}

// LookupIngredient returns the functional ingredient entry for key.
func LookupIngredient(key models.NutrientKey) (Ingredient, bool) {
	ing, ok := tbl.ingredients[key]
	return ing, ok
}

// NutrientKeys returns the label nutrient keys in table order.
func NutrientKeys() []models.NutrientKey {
	return append([]models.NutrientKey(nil), tbl.nutrientOrder...)
}

// IngredientKeys returns the functional ingredient keys in table order.
func IngredientKeys() []models.NutrientKey {
	return append([]models.NutrientKey(nil), tbl.ingredientKeys...)
}

// Categories returns the functional food categories in table order.
func Categories() []Category {
	return append([]Category(nil), tbl.categories...)
}

// Known reports whether key exists in either table.
func Known(key models.NutrientKey) bool {
	if _, ok := tbl.nutrients[key]; ok {
		return true
	}
	_, ok := tbl.ingredients[key]
	return ok
}

var nameStrip = regexp.MustCompile(`[^a-z0-9가-힣]`)

func normalizeName(name string) string {
	return nameStrip.ReplaceAllString(strings.ToLower(name), "")
}

// ResolveIngredient maps a free-form ingredient name ("Vitamin C",
// "비타민 C", "ascorbic acid", "vitamin_c") to its canonical key.
func ResolveIngredient(name string) (models.NutrientKey, bool) {
	key, ok := tbl.synonyms[normalizeName(name)]
	return key, ok
}

// ResolveNutrient maps a free-form label nutrient name ("나트륨", "Sodium",
// "fat_total") to its canonical key.
func ResolveNutrient(name string) (models.NutrientKey, bool) {
	want := normalizeName(name)
	if want == "" {
		return "", false
	}
	for _, key := range tbl.nutrientOrder {
		n := tbl.nutrients[key]
		if normalizeName(string(key)) == want || normalizeName(n.KoreanName) == want {
			return key, true
		}
		for _, s := range n.Synonyms {
			if normalizeName(s) == want {
				return key, true
			}
		}
	}
	return "", false
}
