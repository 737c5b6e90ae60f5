package store

import (
	"time"

	"food-budget/internal/core/nutrition"
)

// User 使用者
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ingredient 食材；營養欄位為每 100 g 數值，可為 NULL
type Ingredient struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"not null;index;uniqueIndex:idx_ingredients_user_barcode" json:"user_id"`
	Name                string    `gorm:"size:255;not null;index" json:"name"`
	Brand               *string   `gorm:"size:255" json:"brand,omitempty"`
	Barcode             *string   `gorm:"size:13;uniqueIndex:idx_ingredients_user_barcode" json:"barcode,omitempty"`
	Quantity            float64   `gorm:"not null" json:"quantity"`
	QuantityUnit        string    `gorm:"size:16;not null" json:"quantity_unit"`
	Price               float64   `gorm:"not null" json:"price"`
	Calories            *float64  `json:"calories,omitempty"`
	Protein             *float64  `json:"protein,omitempty"`
	Carbohydrates       *float64  `json:"carbohydrates,omitempty"`
	Fat                 *float64  `json:"fat,omitempty"`
	Fiber               *float64  `json:"fiber,omitempty"`
	NutritionSource     string    `gorm:"size:32" json:"nutrition_source"`
	NutritionConfidence string    `gorm:"size:16" json:"nutrition_confidence"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Nutrition 取出營養紀錄；全部缺漏時回傳 nil
func (i *Ingredient) Nutrition() *nutrition.Record {
	r := &nutrition.Record{
		Calories:      i.Calories,
		Protein:       i.Protein,
		Carbohydrates: i.Carbohydrates,
		Fat:           i.Fat,
		Fiber:         i.Fiber,
	}
	if r.IsEmpty() {
		return nil
	}
	return r.Clone()
}

// SetNutrition 寫入營養紀錄；nil 清空所有欄位
func (i *Ingredient) SetNutrition(r *nutrition.Record, source, confidence string) {
	c := r.Clone()
	if c == nil {
		c = &nutrition.Record{}
	}
	i.Calories = c.Calories
	i.Protein = c.Protein
	i.Carbohydrates = c.Carbohydrates
	i.Fat = c.Fat
	i.Fiber = c.Fiber
	i.NutritionSource = source
	i.NutritionConfidence = confidence
}

// Recipe 食譜；TotalPrice 為計算後的投影值，不是事實來源
type Recipe struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	UserID       uint               `gorm:"not null;index" json:"user_id"`
	Name         string             `gorm:"size:255;not null" json:"name"`
	Instructions string             `gorm:"type:text" json:"instructions"`
	Servings     int                `gorm:"not null;default:1" json:"servings"`
	TotalPrice   float64            `json:"total_price"`
	Ingredients  []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// RecipeIngredient 食譜用量
type RecipeIngredient struct {
	RecipeID     uint       `gorm:"primaryKey" json:"recipe_id"`
	IngredientID uint       `gorm:"primaryKey;index" json:"ingredient_id"`
	Quantity     float64    `gorm:"not null" json:"quantity"`
	QuantityUnit string     `gorm:"size:16;not null" json:"quantity_unit"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient"`
}
