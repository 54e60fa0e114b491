package compliance

import (
	"sort"

	"nutrilabel/internal/reference"
	"nutrilabel/internal/units"
	"nutrilabel/pkg/models"
)

// CategoryGeneral is reported when no category scores.
const CategoryGeneral = "general"

// FunctionalFood is the estimated health functional food classification.
type FunctionalFood struct {
	PrimaryCategory     string   `json:"primary_category"`
	PrimaryCategoryName string   `json:"primary_category_name,omitempty"`
	SecondaryCategories []string `json:"secondary_categories"`
	DetectedIngredients []string `json:"detected_ingredients"`
	Functionality       []string `json:"functionality"`
}

type categoryScore struct {
	category string
	points   int
}

// signal scores categories when a nutrient exceeds a threshold.
type signal struct {
	keys       []models.NutrientKey
	threshold  float64
	unit       string
	ingredient models.NutrientKey
	scores     []categoryScore
}

var signals = []signal{
	{[]models.NutrientKey{"vitamin_c"}, 100, units.Milligram, "vitamin_c", []categoryScore{{"immune", 3}, {"antioxidant", 2}}},
	{[]models.NutrientKey{"protein"}, 20, units.Gram, "protein", nil},
	{[]models.NutrientKey{"calcium"}, 200, units.Milligram, "calcium", []categoryScore{{"bone", 3}}},
	{[]models.NutrientKey{"fiber", "dietary_fiber"}, 5, units.Gram, "dietary_fiber", []categoryScore{{"digestive", 3}}},
}

// ClassifyFunctionalFood estimates the product category from nutrient
// amounts. Equal scores keep the category table order.
func ClassifyFunctionalFood(nutrients models.Nutrients) FunctionalFood {
	ff := FunctionalFood{
		SecondaryCategories: []string{},
		DetectedIngredients: []string{},
		Functionality:       []string{},
	}
	scores := make(map[string]int)

	for _, s := range signals {
		amount, ok := lookup(nutrients, s.keys, s.unit)
		if !ok || amount <= s.threshold {
			continue
		}
		ing, _ := reference.LookupIngredient(s.ingredient)
		ff.DetectedIngredients = append(ff.DetectedIngredients, ing.KoreanName)
		ff.Functionality = append(ff.Functionality, ing.Functionality...)
		for _, cs := range s.scores {
			scores[cs.category] += cs.points
		}
	}
	ff.Functionality = dedupe(ff.Functionality)

	cats := reference.Categories()
	order := make([]reference.Category, 0, len(scores))
	for _, c := range cats {
		if scores[c.Key] > 0 {
			order = append(order, c)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i].Key] > scores[order[j].Key]
	})

	if len(order) == 0 {
		ff.PrimaryCategory = CategoryGeneral
		return ff
	}
	ff.PrimaryCategory = order[0].Key
	ff.PrimaryCategoryName = order[0].Name
	for _, c := range order[1:] {
		if len(ff.SecondaryCategories) == 2 {
			break
		}
		ff.SecondaryCategories = append(ff.SecondaryCategories, c.Key)
	}
	return ff
}

func lookup(nutrients models.Nutrients, keys []models.NutrientKey, unit string) (float64, bool) {
	for _, k := range keys {
		n, ok := nutrients[k]
		if !ok {
			continue
		}
		return units.Convert(n.Value, n.Unit, unit).Value, true
	}
	return 0, false
}
