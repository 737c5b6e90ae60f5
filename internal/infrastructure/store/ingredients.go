package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// IngredientRepository 食材資料存取；所有查詢都限定擁有者
type IngredientRepository struct {
	db *gorm.DB
}

// NewIngredientRepository 創建食材資料存取
func NewIngredientRepository(db *gorm.DB) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// Create 新增食材
func (r *IngredientRepository) Create(ctx context.Context, ing *Ingredient) error {
	return translate(r.db.WithContext(ctx).Create(ing).Error)
}

// Save 更新食材
func (r *IngredientRepository) Save(ctx context.Context, ing *Ingredient) error {
	return translate(r.db.WithContext(ctx).Save(ing).Error)
}

// Get 取得單一食材
func (r *IngredientRepository) Get(ctx context.Context, userID, id uint) (*Ingredient, error) {
	var ing Ingredient
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&ing).Error
	if err != nil {
		return nil, translate(err)
	}
	return &ing, nil
}

// GetMany 以 ID 批次取得，回傳 map
func (r *IngredientRepository) GetMany(ctx context.Context, userID uint, ids []uint) (map[uint]*Ingredient, error) {
	var list []Ingredient
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).Find(&list).Error; err != nil {
			return nil, translate(err)
		}
	}
	out := make(map[uint]*Ingredient, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

// FindByBarcode 以條碼查詢
func (r *IngredientRepository) FindByBarcode(ctx context.Context, userID uint, code string) (*Ingredient, error) {
	var ing Ingredient
	err := r.db.WithContext(ctx).Where("user_id = ? AND barcode = ?", userID, code).First(&ing).Error
	if err != nil {
		return nil, translate(err)
	}
	return &ing, nil
}

// List 列出所有食材，依名稱排序
func (r *IngredientRepository) List(ctx context.Context, userID uint) ([]Ingredient, error) {
	var list []Ingredient
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&list).Error
	return list, translate(err)
}

// LIKE 萬用字元視為一般字元
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search 以條碼完全相符或名稱、品牌部分相符搜尋
func (r *IngredientRepository) Search(ctx context.Context, userID uint, query string) ([]Ingredient, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return r.List(ctx, userID)
	}
	like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	var list []Ingredient
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(`barcode = ? OR LOWER(name) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\'`, q, like, like).
		Order("name ASC").
		Find(&list).Error
	return list, translate(err)
}

// CountUsages 食材被多少食譜使用
func (r *IngredientRepository) CountUsages(ctx context.Context, ingredientID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&RecipeIngredient{}).Where("ingredient_id = ?", ingredientID).Count(&n).Error
	return n, translate(err)
}

// Delete 刪除食材
func (r *IngredientRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&Ingredient{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
