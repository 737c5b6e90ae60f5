// Package recipe computes recipe cost and nutrition from ingredient usages
// and manages stored recipes.
package recipe

import (
	"errors"
	"fmt"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/core/units"
)

// ErrInvalidServings 份數小於 1
var ErrInvalidServings = errors.New("servings must be at least 1")

// IssueKind 問題列類型
type IssueKind string

const (
	IssueUnitCategoryMismatch IssueKind = "unit_category_mismatch"
	IssueUnsupportedUnit      IssueKind = "unsupported_unit"
	IssueInvalidQuantity      IssueKind = "invalid_quantity"
	IssueNutritionUnavailable IssueKind = "nutrition_unavailable"
	IssueNoNutritionData      IssueKind = "no_nutrition_data"
)

// Line 一筆食材用量與其購買資料
type Line struct {
	IngredientID     uint
	Name             string
	PurchaseQuantity float64
	PurchaseUnit     string
	PurchasePrice    float64
	Nutrition        *nutrition.Record
	UsedQuantity     float64
	UsedUnit         string
}

// LineIssue 單列問題；Excluded 表示該列未計入成本與營養
type LineIssue struct {
	Kind     IssueKind `json:"kind"`
	Message  string    `json:"message"`
	Excluded bool      `json:"excluded"`
	Err      error     `json:"-"`
}

// LineResult 單列計算結果
type LineResult struct {
	IngredientID uint                           `json:"ingredient_id"`
	Name         string                         `json:"name"`
	Ratio        float64                        `json:"ratio"`
	Cost         *float64                       `json:"cost,omitempty"`
	Nutrition    map[nutrition.Nutrient]float64 `json:"nutrition,omitempty"`
	Issues       []LineIssue                    `json:"issues,omitempty"`
}

// Included 該列是否計入成本
func (l LineResult) Included() bool { return l.Cost != nil }

// HasNutrition 該列是否貢獻任何營養素
func (l LineResult) HasNutrition() bool { return len(l.Nutrition) > 0 }

// NutrientTotal 單一營養素的合計與完整度
type NutrientTotal struct {
	Nutrient     nutrition.Nutrient `json:"nutrient"`
	Total        float64            `json:"total"`
	PerServing   float64            `json:"per_serving"`
	Known        int                `json:"known"`
	Of           int                `json:"of"`
	Completeness float64            `json:"completeness"`
}

// Summary 食譜彙總；每次都從目前的食材狀態重新計算
type Summary struct {
	Servings                 int             `json:"servings"`
	TotalCost                float64         `json:"total_cost"`
	CostPerServing           float64         `json:"cost_per_serving"`
	Lines                    []LineResult    `json:"lines"`
	Nutrients                []NutrientTotal `json:"nutrients"`
	IngredientsWithNutrition int             `json:"ingredients_with_nutrition"`
	TotalIngredients         int             `json:"total_ingredients"`
	Completeness             float64         `json:"completeness"`
}

// Nutrient 取得單一營養素合計
func (s Summary) Nutrient(n nutrition.Nutrient) (NutrientTotal, bool) {
	for _, t := range s.Nutrients {
		if t.Nutrient == n {
			return t, true
		}
	}
	return NutrientTotal{}, false
}

// IssueKinds 所有問題類型（指標用）
func (s Summary) IssueKinds() []string {
	var out []string
	for _, l := range s.Lines {
		for _, is := range l.Issues {
			out = append(out, string(is.Kind))
		}
	}
	return out
}

// PerServing 將合計除以份數；份數小於 1 時回傳錯誤，不做除法
func PerServing(total float64, servings int) (float64, error) {
	if servings < 1 {
		return 0, ErrInvalidServings
	}
	return total / float64(servings), nil
}

// Aggregate 計算成本與營養；單位問題記在該列，不中斷其他列
func Aggregate(lines []Line, servings int) (Summary, error) {
	if servings < 1 {
		return Summary{}, ErrInvalidServings
	}

	sum := Summary{
		Servings:         servings,
		TotalIngredients: len(lines),
		Lines:            make([]LineResult, 0, len(lines)),
	}
	totals := make(map[nutrition.Nutrient]float64)
	known := make(map[nutrition.Nutrient]int)

	for _, line := range lines {
		res := aggregateLine(line)
		if res.Cost != nil {
			sum.TotalCost += *res.Cost
		}
		if res.HasNutrition() {
			sum.IngredientsWithNutrition++
		}
		for n, v := range res.Nutrition {
			totals[n] += v
			known[n]++
		}
		sum.Lines = append(sum.Lines, res)
	}

	for _, n := range nutrition.AllNutrients {
		t := NutrientTotal{Nutrient: n, Total: totals[n], Known: known[n], Of: len(lines)}
		t.PerServing = t.Total / float64(servings)
		if t.Of > 0 {
			t.Completeness = float64(t.Known) / float64(t.Of)
		}
		sum.Nutrients = append(sum.Nutrients, t)
	}
	sum.CostPerServing = sum.TotalCost / float64(servings)
	if sum.TotalIngredients > 0 {
		sum.Completeness = float64(sum.IngredientsWithNutrition) / float64(sum.TotalIngredients)
	}
	return sum, nil
}

func aggregateLine(line Line) LineResult {
	res := LineResult{IngredientID: line.IngredientID, Name: line.Name}

	if line.UsedQuantity <= 0 || line.PurchaseQuantity <= 0 {
		res.Issues = append(res.Issues, LineIssue{
			Kind:     IssueInvalidQuantity,
			Message:  "used and purchased quantities must be positive",
			Excluded: true,
			Err:      units.ErrNonPositiveInput,
		})
		return res
	}

	ratio, err := units.ProportionalQuantity(line.UsedQuantity, line.UsedUnit, line.PurchaseQuantity, line.PurchaseUnit)
	if err != nil {
		res.Issues = append(res.Issues, unitIssue(err))
		return res
	}
	res.Ratio = ratio
	cost := ratio * line.PurchasePrice
	res.Cost = &cost

	factor, cat, err := units.Per100Factor(line.UsedQuantity, line.UsedUnit)
	if err != nil {
		res.Issues = append(res.Issues, unitIssue(err))
		return res
	}
	if cat == units.Count {
		res.Issues = append(res.Issues, LineIssue{
			Kind:    IssueNutritionUnavailable,
			Message: "nutrition unavailable for count-based usage",
		})
		return res
	}
	if line.Nutrition.IsEmpty() {
		res.Issues = append(res.Issues, LineIssue{
			Kind:    IssueNoNutritionData,
			Message: "ingredient has no nutrition data",
		})
		return res
	}

	res.Nutrition = make(map[nutrition.Nutrient]float64)
	for _, n := range nutrition.AllNutrients {
		if v, ok := line.Nutrition.Get(n); ok {
			res.Nutrition[n] = v * factor
		}
	}
	return res
}

func unitIssue(err error) LineIssue {
	var mismatch *units.UnitCategoryMismatchError
	var unsupported *units.UnsupportedUnitError
	switch {
	case errors.As(err, &mismatch):
		return LineIssue{Kind: IssueUnitCategoryMismatch, Message: mismatch.Error(), Excluded: true, Err: err}
	case errors.As(err, &unsupported):
		return LineIssue{Kind: IssueUnsupportedUnit, Message: unsupported.Error(), Excluded: true, Err: err}
	default:
		return LineIssue{Kind: IssueInvalidQuantity, Message: fmt.Sprint(err), Excluded: true, Err: err}
	}
}
