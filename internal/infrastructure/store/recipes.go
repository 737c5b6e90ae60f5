package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository 食譜資料存取
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository 創建食譜資料存取
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) withUsages(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Ingredients.Ingredient")
}

// Create 在同一交易中新增食譜與用量
func (r *RecipeRepository) Create(ctx context.Context, recipe *Recipe) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usages := recipe.Ingredients
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		for i := range usages {
			usages[i].RecipeID = recipe.ID
		}
		if len(usages) > 0 {
			if err := tx.Omit("Ingredient").Create(&usages).Error; err != nil {
				return err
			}
		}
		recipe.Ingredients = usages
		return nil
	}))
}

// Get 取得食譜與用量、食材
func (r *RecipeRepository) Get(ctx context.Context, userID, id uint) (*Recipe, error) {
	var recipe Recipe
	err := r.withUsages(ctx).Where("user_id = ? AND id = ?", userID, id).First(&recipe).Error
	if err != nil {
		return nil, translate(err)
	}
	return &recipe, nil
}

// List 列出使用者所有食譜
func (r *RecipeRepository) List(ctx context.Context, userID uint) ([]Recipe, error) {
	var list []Recipe
	err := r.withUsages(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&list).Error
	return list, translate(err)
}

// ListUsingIngredient 列出使用某食材的食譜
func (r *RecipeRepository) ListUsingIngredient(ctx context.Context, userID, ingredientID uint) ([]Recipe, error) {
	var list []Recipe
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("id IN (?)", r.db.Model(&RecipeIngredient{}).Select("recipe_id").Where("ingredient_id = ?", ingredientID)).
		Order("name ASC").
		Find(&list).Error
	return list, translate(err)
}

// Update 在同一交易中更新名稱、說明、份數、用量與總價投影
func (r *RecipeRepository) Update(ctx context.Context, recipe *Recipe, usages []RecipeIngredient, totalPrice float64) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Recipe{}).Where("id = ?", recipe.ID).
			Updates(map[string]interface{}{
				"name":         recipe.Name,
				"instructions": recipe.Instructions,
				"servings":     recipe.Servings,
			}).Error
		if err != nil {
			return err
		}
		return replaceUsages(tx, recipe, usages, totalPrice)
	}))
}

// ReplaceUsages 以新用量取代舊用量並更新總價投影
func (r *RecipeRepository) ReplaceUsages(ctx context.Context, recipe *Recipe, usages []RecipeIngredient, totalPrice float64) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceUsages(tx, recipe, usages, totalPrice)
	}))
}

func replaceUsages(tx *gorm.DB, recipe *Recipe, usages []RecipeIngredient, totalPrice float64) error {
	if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&RecipeIngredient{}).Error; err != nil {
		return err
	}
	for i := range usages {
		usages[i].RecipeID = recipe.ID
	}
	if len(usages) > 0 {
		if err := tx.Omit("Ingredient").Create(&usages).Error; err != nil {
			return err
		}
	}
	if err := tx.Model(&Recipe{}).Where("id = ?", recipe.ID).Update("total_price", totalPrice).Error; err != nil {
		return err
	}
	recipe.Ingredients = usages
	recipe.TotalPrice = totalPrice
	return nil
}

// UpdateTotalPrice 只更新總價投影
func (r *RecipeRepository) UpdateTotalPrice(ctx context.Context, recipeID uint, totalPrice float64) error {
	return translate(r.db.WithContext(ctx).Model(&Recipe{}).Where("id = ?", recipeID).Update("total_price", totalPrice).Error)
}

// Delete 刪除食譜與其用量
func (r *RecipeRepository) Delete(ctx context.Context, userID, id uint) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Recipe{}).Where("user_id = ? AND id = ?", userID, id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredient{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id = ?", userID, id).Delete(&Recipe{}).Error
	}))
}
