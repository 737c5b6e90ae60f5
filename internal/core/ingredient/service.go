// Package ingredient manages a user's purchased ingredients and attaches
// nutrition resolved from the external sources.
package ingredient

import (
	"context"
	"errors"
	"strings"

	"food-budget/internal/core/barcode"
	"food-budget/internal/core/nutrition"
	"food-budget/internal/core/units"
	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ManualSource 使用者手動輸入的營養來源標籤
const ManualSource = "manual"

// Resolver 營養解析
type Resolver interface {
	Resolve(ctx context.Context, req nutrition.Request) nutrition.Resolution
}

// RecipeRefresher 食材價格或單位變動後重算食譜總價
type RecipeRefresher interface {
	RefreshTotalsFor(ctx context.Context, userID, ingredientID uint) error
}

// Input 新增或更新食材
type Input struct {
	Name      string            `json:"name"`
	Brand     string            `json:"brand"`
	Barcode   string            `json:"barcode"`
	Quantity  float64           `json:"quantity"`
	Unit      string            `json:"quantity_unit"`
	Price     float64           `json:"price"`
	Nutrition *nutrition.Record `json:"nutrition,omitempty"`
}

// Detail 食材與每標準單位價格
type Detail struct {
	Ingredient   *store.Ingredient  `json:"ingredient"`
	PricePerUnit units.PricePerUnit `json:"price_per_unit"`
	Lookup       *Preview           `json:"lookup,omitempty"`
}

// Service 食材服務
type Service struct {
	ingredients *store.IngredientRepository
	recipes     *store.RecipeRepository
	resolver    Resolver
	refresher   RecipeRefresher
}

// NewService 創建食材服務
func NewService(db *gorm.DB, resolver Resolver, refresher RecipeRefresher) *Service {
	return &Service{
		ingredients: store.NewIngredientRepository(db),
		recipes:     store.NewRecipeRepository(db),
		resolver:    resolver,
		refresher:   refresher,
	}
}

// normalized 已驗證的輸入
type normalized struct {
	name    string
	brand   string
	barcode barcode.Barcode
	unit    string
}

func validate(in Input) (normalized, error) {
	var out normalized
	out.name = strings.TrimSpace(in.Name)
	out.brand = strings.TrimSpace(in.Brand)
	if out.name == "" {
		return out, common.NewFieldError("name", "is required")
	}
	if in.Quantity <= 0 || in.Price <= 0 {
		return out, common.ErrNonPositiveInput
	}
	unit, err := units.Canonical(in.Unit)
	if err != nil {
		return out, common.ErrUnsupportedUnit.Wrap(err)
	}
	out.unit = unit
	if strings.TrimSpace(in.Barcode) != "" {
		code, err := barcode.Validate(in.Barcode)
		if err != nil {
			return out, common.ErrInvalidBarcode.Wrap(err)
		}
		out.barcode = code
	}
	if err := in.Nutrition.Validate(); err != nil {
		return out, common.NewFieldError("nutrition", err.Error())
	}
	return out, nil
}

func detailOf(ing *store.Ingredient) *Detail {
	d := &Detail{Ingredient: ing}
	if ppu, err := units.PricePerStandardUnit(ing.Quantity, ing.QuantityUnit, ing.Price); err == nil {
		d.PricePerUnit = ppu
	}
	return d
}

func storeError(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return common.ErrNotFound.WithMessage(what + " not found")
	case errors.Is(err, store.ErrDuplicate):
		return common.ErrConflict.WithMessage("an ingredient with this barcode already exists")
	default:
		return common.ErrInternalError.Wrap(err)
	}
}

// applyResolution 寫入解析結果；找不到時保持空白
func applyResolution(ing *store.Ingredient, res nutrition.Resolution) {
	if !res.Found() {
		ing.SetNutrition(nil, "", string(nutrition.ConfidenceNone))
		return
	}
	ing.SetNutrition(res.Record, res.Source, string(res.Confidence))
}

// Create 新增食材；營養查詢失敗不影響新增
func (s *Service) Create(ctx context.Context, userID uint, in Input) (*Detail, error) {
	n, err := validate(in)
	if err != nil {
		return nil, err
	}

	ing := &store.Ingredient{
		UserID:       userID,
		Name:         n.name,
		Brand:        common.StringPtr(n.brand),
		Quantity:     in.Quantity,
		QuantityUnit: n.unit,
		Price:        in.Price,
	}
	if !n.barcode.IsZero() {
		ing.Barcode = common.StringPtr(n.barcode.String())
		if _, err := s.ingredients.FindByBarcode(ctx, userID, n.barcode.String()); err == nil {
			return nil, common.ErrConflict.WithMessage("an ingredient with this barcode already exists")
		}
	}

	var preview *Preview
	if !in.Nutrition.IsEmpty() {
		ing.SetNutrition(in.Nutrition, ManualSource, "")
	} else {
		res := s.resolver.Resolve(ctx, nutrition.Request{Barcode: n.barcode, Name: n.name})
		applyResolution(ing, res)
		preview = previewOf(n.barcode, res)
		if ing.Brand == nil && res.Product != nil {
			ing.Brand = common.StringPtr(res.Product.Brand)
		}
	}

	if err := s.ingredients.Create(ctx, ing); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			common.LogError("新增食材失敗", zap.Uint("user_id", userID), zap.Error(err))
		}
		return nil, storeError(err, "ingredient")
	}

	common.LogInfo("食材已建立",
		zap.Uint("ingredient_id", ing.ID),
		zap.String("nutrition_source", ing.NutritionSource),
		zap.String("confidence", ing.NutritionConfidence),
	)
	d := detailOf(ing)
	d.Lookup = preview
	return d, nil
}

// Get 取得單一食材
func (s *Service) Get(ctx context.Context, userID, id uint) (*Detail, error) {
	ing, err := s.ingredients.Get(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "ingredient")
	}
	return detailOf(ing), nil
}

// List 列出食材
func (s *Service) List(ctx context.Context, userID uint) ([]*Detail, error) {
	list, err := s.ingredients.List(ctx, userID)
	if err != nil {
		return nil, storeError(err, "ingredient")
	}
	return details(list), nil
}

// Search 以條碼或名稱、品牌搜尋；條碼格式的查詢只比對條碼
func (s *Service) Search(ctx context.Context, userID uint, query string) ([]*Detail, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, userID)
	}
	list, err := s.ingredients.Search(ctx, userID, query)
	if err != nil {
		return nil, storeError(err, "ingredient")
	}
	return details(list), nil
}

func details(list []store.Ingredient) []*Detail {
	out := make([]*Detail, 0, len(list))
	for i := range list {
		out = append(out, detailOf(&list[i]))
	}
	return out
}

// Update 更新購買資料；營養只在明確提供時覆寫
func (s *Service) Update(ctx context.Context, userID, id uint, in Input) (*Detail, error) {
	n, err := validate(in)
	if err != nil {
		return nil, err
	}
	ing, err := s.ingredients.Get(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "ingredient")
	}

	ing.Name = n.name
	ing.Brand = common.StringPtr(n.brand)
	ing.Quantity = in.Quantity
	ing.QuantityUnit = n.unit
	ing.Price = in.Price
	ing.Barcode = nil
	if !n.barcode.IsZero() {
		ing.Barcode = common.StringPtr(n.barcode.String())
	}
	if !in.Nutrition.IsEmpty() {
		ing.SetNutrition(in.Nutrition, ManualSource, "")
	}

	if err := s.ingredients.Save(ctx, ing); err != nil {
		return nil, storeError(err, "ingredient")
	}
	s.refresh(ctx, userID, ing.ID)
	return detailOf(ing), nil
}

// Rescan 重新執行營養解析並覆寫營養欄位
func (s *Service) Rescan(ctx context.Context, userID, id uint) (*Detail, error) {
	ing, err := s.ingredients.Get(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "ingredient")
	}
	req, err := nutrition.NewRequest(common.Deref(ing.Barcode), ing.Name)
	if err != nil {
		return nil, common.ErrInvalidBarcode.Wrap(err)
	}

	res := s.resolver.Resolve(ctx, req)
	if res.Found() {
		applyResolution(ing, res)
		if err := s.ingredients.Save(ctx, ing); err != nil {
			return nil, storeError(err, "ingredient")
		}
	}
	common.LogInfo("食材營養已重新查詢",
		zap.Uint("ingredient_id", ing.ID),
		zap.Bool("found", res.Found()),
		zap.String("source", res.Source),
	)

	d := detailOf(ing)
	d.Lookup = previewOf(req.Barcode, res)
	return d, nil
}

// Delete 刪除食材；仍被食譜使用時拒絕
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.ingredients.Get(ctx, userID, id); err != nil {
		return storeError(err, "ingredient")
	}
	n, err := s.ingredients.CountUsages(ctx, id)
	if err != nil {
		return common.ErrInternalError.Wrap(err)
	}
	if n > 0 {
		return common.ErrConflict.WithMessage("ingredient is used by one or more recipes")
	}
	if err := s.ingredients.Delete(ctx, userID, id); err != nil {
		return storeError(err, "ingredient")
	}
	return nil
}

// RecipesUsing 列出使用此食材的食譜
func (s *Service) RecipesUsing(ctx context.Context, userID, id uint) ([]store.Recipe, error) {
	if _, err := s.ingredients.Get(ctx, userID, id); err != nil {
		return nil, storeError(err, "ingredient")
	}
	list, err := s.recipes.ListUsingIngredient(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "recipe")
	}
	return list, nil
}

func (s *Service) refresh(ctx context.Context, userID, id uint) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.RefreshTotalsFor(ctx, userID, id); err != nil {
		common.LogWarn("重算食譜總價失敗", zap.Uint("ingredient_id", id), zap.Error(err))
	}
}
