package store

import (
	"context"
	"errors"
	"testing"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *User {
	t.Helper()
	u := &User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func TestUserRepositoryUniqueness(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewUserRepository(db)
	seedUser(t, db, "alice")

	err := repo.Create(ctx, &User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	u, err := repo.GetByEmail(ctx, " ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIngredientNutritionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	u := seedUser(t, db, "alice")
	repo := NewIngredientRepository(db)

	ing := &Ingredient{UserID: u.ID, Name: "Oats", Quantity: 1, QuantityUnit: "kg", Price: 20, Barcode: common.StringPtr("5701234567899")}
	ing.SetNutrition(nutrition.NewRecord(map[nutrition.Nutrient]float64{nutrition.Calories: 372}), "openfoodfacts", "high")
	require.NoError(t, repo.Create(ctx, ing))

	got, err := repo.Get(ctx, u.ID, ing.ID)
	require.NoError(t, err)
	rec := got.Nutrition()
	require.NotNil(t, rec)
	assert.Equal(t, 372.0, *rec.Calories)
	assert.Nil(t, rec.Protein)
	assert.Equal(t, "openfoodfacts", got.NutritionSource)

	got.SetNutrition(nil, "", "")
	assert.Nil(t, got.Nutrition())
}

func TestIngredientOwnershipAndSearch(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	repo := NewIngredientRepository(db)

	require.NoError(t, repo.Create(ctx, &Ingredient{UserID: alice.ID, Name: "Whole Milk", Quantity: 1, QuantityUnit: "l", Price: 12, Barcode: common.StringPtr("96385074")}))
	require.NoError(t, repo.Create(ctx, &Ingredient{UserID: alice.ID, Name: "Butter", Brand: common.StringPtr("Lurpak"), Quantity: 250, QuantityUnit: "g", Price: 25}))
	require.NoError(t, repo.Create(ctx, &Ingredient{UserID: bob.ID, Name: "Milk", Quantity: 1, QuantityUnit: "l", Price: 10}))

	found, err := repo.Search(ctx, alice.ID, "milk")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Whole Milk", found[0].Name)

	found, err = repo.Search(ctx, alice.ID, "96385074")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = repo.Search(ctx, alice.ID, "lurpak")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Butter", found[0].Name)

	_, err = repo.Get(ctx, bob.ID, found[0].ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	// 同一使用者不可重複條碼，不同使用者可以
	err = repo.Create(ctx, &Ingredient{UserID: alice.ID, Name: "Dup", Quantity: 1, QuantityUnit: "l", Price: 1, Barcode: common.StringPtr("96385074")})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, repo.Create(ctx, &Ingredient{UserID: bob.ID, Name: "Milk 2", Quantity: 1, QuantityUnit: "l", Price: 1, Barcode: common.StringPtr("96385074")}))
}

func TestRecipeLifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	u := seedUser(t, db, "alice")
	ingredients := NewIngredientRepository(db)
	recipes := NewRecipeRepository(db)

	flour := &Ingredient{UserID: u.ID, Name: "Flour", Quantity: 1, QuantityUnit: "kg", Price: 10}
	milk := &Ingredient{UserID: u.ID, Name: "Milk", Quantity: 1, QuantityUnit: "l", Price: 12}
	require.NoError(t, ingredients.Create(ctx, flour))
	require.NoError(t, ingredients.Create(ctx, milk))

	recipe := &Recipe{UserID: u.ID, Name: "Pancakes", Servings: 4, TotalPrice: 5, Ingredients: []RecipeIngredient{
		{IngredientID: flour.ID, Quantity: 250, QuantityUnit: "g"},
		{IngredientID: milk.ID, Quantity: 500, QuantityUnit: "ml"},
	}}
	require.NoError(t, recipes.Create(ctx, recipe))

	got, err := recipes.Get(ctx, u.ID, recipe.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	assert.NotEmpty(t, got.Ingredients[0].Ingredient.Name)

	using, err := recipes.ListUsingIngredient(ctx, u.ID, milk.ID)
	require.NoError(t, err)
	require.Len(t, using, 1)

	n, err := ingredients.CountUsages(ctx, milk.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, recipes.ReplaceUsages(ctx, got, []RecipeIngredient{{IngredientID: flour.ID, Quantity: 100, QuantityUnit: "g"}}, 1))
	got, err = recipes.Get(ctx, u.ID, recipe.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, 1.0, got.TotalPrice)

	n, err = ingredients.CountUsages(ctx, milk.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, recipes.Delete(ctx, u.ID, recipe.ID))
	assert.True(t, errors.Is(recipes.Delete(ctx, u.ID, recipe.ID), ErrNotFound))
	n, err = ingredients.CountUsages(ctx, flour.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatusAndReset(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	seedUser(t, db, "alice")

	status, err := Status(ctx, db)
	require.NoError(t, err)
	require.Len(t, status, 4)
	assert.Equal(t, "users", status[0].Table)
	assert.Equal(t, int64(1), status[0].Rows)

	require.NoError(t, Reset(db))
	status, err = Status(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, status[0].Rows)
}

func TestRecipeUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	u := seedUser(t, db, "alice")
	ingredients := NewIngredientRepository(db)
	recipes := NewRecipeRepository(db)

	flour := &Ingredient{UserID: u.ID, Name: "Flour", Quantity: 1, QuantityUnit: "kg", Price: 10}
	require.NoError(t, ingredients.Create(ctx, flour))
	recipe := &Recipe{UserID: u.ID, Name: "Bread", Servings: 2, TotalPrice: 5, Ingredients: []RecipeIngredient{
		{IngredientID: flour.ID, Quantity: 500, QuantityUnit: "g"},
	}}
	require.NoError(t, recipes.Create(ctx, recipe))

	changed := &Recipe{ID: recipe.ID, UserID: u.ID, Name: "Rye bread", Instructions: "bake", Servings: 8}
	// 重複主鍵讓用量寫入失敗
	dup := []RecipeIngredient{
		{IngredientID: flour.ID, Quantity: 100, QuantityUnit: "g"},
		{IngredientID: flour.ID, Quantity: 200, QuantityUnit: "g"},
	}
	require.Error(t, recipes.Update(ctx, changed, dup, 3))

	got, err := recipes.Get(ctx, u.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bread", got.Name)
	assert.Equal(t, 2, got.Servings)
	assert.Equal(t, 5.0, got.TotalPrice)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, 500.0, got.Ingredients[0].Quantity)

	require.NoError(t, recipes.Update(ctx, changed, []RecipeIngredient{{IngredientID: flour.ID, Quantity: 100, QuantityUnit: "g"}}, 1))
	got, err = recipes.Get(ctx, u.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rye bread", got.Name)
	assert.Equal(t, 8, got.Servings)
	assert.Equal(t, 1.0, got.TotalPrice)
}

func TestIngredientSearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	u := seedUser(t, db, "alice")
	repo := NewIngredientRepository(db)

	require.NoError(t, repo.Create(ctx, &Ingredient{UserID: u.ID, Name: "Chocolate 70%", Quantity: 100, QuantityUnit: "g", Price: 20}))
	require.NoError(t, repo.Create(ctx, &Ingredient{UserID: u.ID, Name: "Sugar", Quantity: 1, QuantityUnit: "kg", Price: 10}))

	for _, q := range []string{"_", "%", `\`} {
		found, err := repo.Search(ctx, u.ID, q)
		require.NoError(t, err)
		if q == "%" {
			require.Len(t, found, 1, q)
			assert.Equal(t, "Chocolate 70%", found[0].Name)
			continue
		}
		assert.Empty(t, found, q)
	}

	found, err := repo.Search(ctx, u.ID, "70%")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
