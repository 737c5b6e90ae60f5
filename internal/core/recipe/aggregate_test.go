package recipe

import (
	"errors"
	"testing"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/core/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(values map[nutrition.Nutrient]float64) *nutrition.Record {
	return nutrition.NewRecord(values)
}

func TestAggregatePartialNutrition(t *testing.T) {
	lines := []Line{
		{
			Name: "Oats", PurchaseQuantity: 100, PurchaseUnit: "g", PurchasePrice: 2,
			Nutrition:    record(map[nutrition.Nutrient]float64{nutrition.Calories: 200}),
			UsedQuantity: 50, UsedUnit: "g",
		},
		{
			Name: "Salt", PurchaseQuantity: 1, PurchaseUnit: "kg", PurchasePrice: 4,
			UsedQuantity: 10, UsedUnit: "g",
		},
	}

	sum, err := Aggregate(lines, 1)
	require.NoError(t, err)

	require.Len(t, sum.Lines, 2)
	require.NotNil(t, sum.Lines[0].Cost)
	assert.InDelta(t, 1.0, *sum.Lines[0].Cost, 1e-9)
	assert.InDelta(t, 0.5, sum.Lines[0].Ratio, 1e-9)
	assert.InDelta(t, 1.04, sum.TotalCost, 1e-9)

	cal, ok := sum.Nutrient(nutrition.Calories)
	require.True(t, ok)
	assert.InDelta(t, 100.0, cal.Total, 1e-9)
	assert.Equal(t, 1, cal.Known)
	assert.Equal(t, 2, cal.Of)
	assert.InDelta(t, 0.5, cal.Completeness, 1e-9)

	protein, _ := sum.Nutrient(nutrition.Protein)
	assert.Zero(t, protein.Known)
	assert.Zero(t, protein.Completeness)

	assert.Equal(t, 1, sum.IngredientsWithNutrition)
	assert.Equal(t, 2, sum.TotalIngredients)
	assert.InDelta(t, 0.5, sum.Completeness, 1e-9)
	require.Len(t, sum.Lines[1].Issues, 1)
	assert.Equal(t, IssueNoNutritionData, sum.Lines[1].Issues[0].Kind)
	assert.False(t, sum.Lines[1].Issues[0].Excluded)
}

func TestAggregatePerServing(t *testing.T) {
	lines := []Line{{
		Name: "Butter", PurchaseQuantity: 200, PurchaseUnit: "g", PurchasePrice: 20,
		Nutrition:    record(map[nutrition.Nutrient]float64{nutrition.Calories: 400}),
		UsedQuantity: 100, UsedUnit: "g",
	}}

	sum, err := Aggregate(lines, 4)
	require.NoError(t, err)
	cal, _ := sum.Nutrient(nutrition.Calories)
	assert.InDelta(t, 400.0, cal.Total, 1e-9)
	assert.InDelta(t, 100.0, cal.PerServing, 1e-9)
	assert.InDelta(t, 2.5, sum.CostPerServing, 1e-9)

	v, err := PerServing(400, 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
}

func TestAggregateRejectsInvalidServings(t *testing.T) {
	for _, servings := range []int{0, -2} {
		_, err := Aggregate(nil, servings)
		assert.True(t, errors.Is(err, ErrInvalidServings))

		_, err = PerServing(400, servings)
		assert.True(t, errors.Is(err, ErrInvalidServings))
	}
}

func TestAggregateUnitMismatchIsPerLine(t *testing.T) {
	lines := []Line{
		{
			Name: "Flour", PurchaseQuantity: 1, PurchaseUnit: "kg", PurchasePrice: 10,
			Nutrition:    record(map[nutrition.Nutrient]float64{nutrition.Calories: 364}),
			UsedQuantity: 0.5, UsedUnit: "l",
		},
		{
			Name: "Milk", PurchaseQuantity: 1, PurchaseUnit: "l", PurchasePrice: 12,
			Nutrition:    record(map[nutrition.Nutrient]float64{nutrition.Calories: 64, nutrition.Fat: 3.5}),
			UsedQuantity: 250, UsedUnit: "ml",
		},
	}

	sum, err := Aggregate(lines, 2)
	require.NoError(t, err)

	bad := sum.Lines[0]
	assert.False(t, bad.Included())
	require.Len(t, bad.Issues, 1)
	assert.Equal(t, IssueUnitCategoryMismatch, bad.Issues[0].Kind)
	assert.True(t, bad.Issues[0].Excluded)
	var mismatch *units.UnitCategoryMismatchError
	assert.True(t, errors.As(bad.Issues[0].Err, &mismatch))

	assert.InDelta(t, 3.0, sum.TotalCost, 1e-9)
	cal, _ := sum.Nutrient(nutrition.Calories)
	assert.InDelta(t, 160.0, cal.Total, 1e-9)
	assert.Equal(t, 1, cal.Known)
	fat, _ := sum.Nutrient(nutrition.Fat)
	assert.InDelta(t, 8.75, fat.Total, 1e-9)
	assert.Equal(t, []string{"unit_category_mismatch"}, sum.IssueKinds())
}

func TestAggregateCountUnitsCostOnly(t *testing.T) {
	lines := []Line{{
		Name: "Eggs", PurchaseQuantity: 10, PurchaseUnit: "unit", PurchasePrice: 30,
		Nutrition:    record(map[nutrition.Nutrient]float64{nutrition.Calories: 143}),
		UsedQuantity: 2, UsedUnit: "unit",
	}}

	sum, err := Aggregate(lines, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, sum.TotalCost, 1e-9)
	assert.False(t, sum.Lines[0].HasNutrition())
	require.Len(t, sum.Lines[0].Issues, 1)
	assert.Equal(t, IssueNutritionUnavailable, sum.Lines[0].Issues[0].Kind)
	assert.Zero(t, sum.Completeness)
}

func TestAggregateUnsupportedUnitAndBadQuantities(t *testing.T) {
	lines := []Line{
		{Name: "Sugar", PurchaseQuantity: 1, PurchaseUnit: "kg", PurchasePrice: 9, UsedQuantity: 1, UsedUnit: "cup"},
		{Name: "Rice", PurchaseQuantity: 0, PurchaseUnit: "kg", PurchasePrice: 9, UsedQuantity: 1, UsedUnit: "g"},
	}

	sum, err := Aggregate(lines, 1)
	require.NoError(t, err)
	assert.Equal(t, IssueUnsupportedUnit, sum.Lines[0].Issues[0].Kind)
	assert.Equal(t, IssueInvalidQuantity, sum.Lines[1].Issues[0].Kind)
	assert.Zero(t, sum.TotalCost)
}

func TestAggregateEmptyRecipe(t *testing.T) {
	sum, err := Aggregate(nil, 2)
	require.NoError(t, err)
	assert.Zero(t, sum.TotalCost)
	assert.Zero(t, sum.Completeness)
	assert.Len(t, sum.Nutrients, len(nutrition.AllNutrients))
}
