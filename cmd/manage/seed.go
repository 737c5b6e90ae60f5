package main

import (
	"context"
	"errors"

	"food-budget/internal/core/auth"
	"food-budget/internal/core/ingredient"
	"food-budget/internal/core/nutrition"
	"food-budget/internal/core/recipe"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/infrastructure/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type seedOptions struct {
	Username string
	Email    string
	Password string
}

type seedResult struct {
	Skipped     bool
	Ingredients int
	RecipeID    uint
}

// 示範食材皆附手動營養，不需連外
var demoIngredients = []ingredient.Input{
	{Name: "Oats", Brand: "Ø-mærket", Barcode: "5701234567899", Quantity: 1, Unit: "kg", Price: 20,
		Nutrition: nutrition.NewRecord(map[nutrition.Nutrient]float64{
			nutrition.Calories: 372, nutrition.Protein: 13.5, nutrition.Carbohydrates: 58.7, nutrition.Fat: 7, nutrition.Fiber: 10,
		})},
	{Name: "Milk", Quantity: 1, Unit: "l", Price: 12,
		Nutrition: nutrition.NewRecord(map[nutrition.Nutrient]float64{
			nutrition.Calories: 64, nutrition.Protein: 3.4, nutrition.Carbohydrates: 4.8, nutrition.Fat: 3.5,
		})},
	{Name: "Banana", Quantity: 6, Unit: "pcs", Price: 15,
		Nutrition: nutrition.NewRecord(map[nutrition.Nutrient]float64{
			nutrition.Calories: 89, nutrition.Carbohydrates: 22.8,
		})},
}

// seed 建立示範帳號、食材與一份食譜；帳號已存在時不做任何事
func seed(ctx context.Context, db *gorm.DB, authCfg config.AuthConfig, opts seedOptions) (seedResult, error) {
	var out seedResult
	if _, err := store.NewUserRepository(db).GetByUsername(ctx, opts.Username); err == nil {
		out.Skipped = true
		return out, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return out, err
	}

	if authCfg.JWTSecret == "" {
		authCfg.JWTSecret = uuid.NewString()
	}
	session, err := auth.NewService(db, auth.NewTokenService(authCfg)).Register(ctx, auth.RegisterInput{
		Username:     opts.Username,
		Email:        opts.Email,
		Password:     opts.Password,
		Confirmation: opts.Password,
	})
	if err != nil {
		return out, err
	}
	userID := session.User.ID

	recipes := recipe.NewService(db, nil)
	ingredients := ingredient.NewService(db, nil, recipes)

	usages := make([]recipe.UsageInput, 0, len(demoIngredients))
	amounts := []recipe.UsageInput{{Quantity: 80, Unit: "g"}, {Quantity: 250, Unit: "ml"}, {Quantity: 1, Unit: "pcs"}}
	for i, in := range demoIngredients {
		d, err := ingredients.Create(ctx, userID, in)
		if err != nil {
			return out, err
		}
		u := amounts[i]
		u.IngredientID = d.Ingredient.ID
		usages = append(usages, u)
		out.Ingredients++
	}

	r, err := recipes.Create(ctx, userID, recipe.Input{
		Name:         "Overnight oats",
		Instructions: "Mix oats and milk, leave overnight, top with banana.",
		Servings:     2,
		Usages:       usages,
	})
	if err != nil {
		return out, err
	}
	out.RecipeID = r.Recipe.ID
	return out, nil
}
