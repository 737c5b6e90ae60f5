package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-budget/internal/core/units"
	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Observer 彙總觀察者（指標）
type Observer interface {
	ObserveAggregation(issueKinds []string)
}

// UsageInput 食譜用量輸入
type UsageInput struct {
	IngredientID uint    `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

// Input 新增或更新食譜
type Input struct {
	Name         string       `json:"name"`
	Instructions string       `json:"instructions"`
	Servings     int          `json:"servings"`
	Usages       []UsageInput `json:"ingredients"`
}

// Detail 食譜與即時彙總
type Detail struct {
	Recipe  *store.Recipe `json:"recipe"`
	Summary Summary       `json:"summary"`
}

// Service 食譜服務
type Service struct {
	recipes     *store.RecipeRepository
	ingredients *store.IngredientRepository
	observer    Observer
}

// NewService 創建食譜服務
func NewService(db *gorm.DB, observer Observer) *Service {
	return &Service{
		recipes:     store.NewRecipeRepository(db),
		ingredients: store.NewIngredientRepository(db),
		observer:    observer,
	}
}

// LinesFor 將已載入食材的用量轉為計算列
func LinesFor(usages []store.RecipeIngredient) []Line {
	lines := make([]Line, 0, len(usages))
	for _, u := range usages {
		lines = append(lines, Line{
			IngredientID:     u.IngredientID,
			Name:             u.Ingredient.Name,
			PurchaseQuantity: u.Ingredient.Quantity,
			PurchaseUnit:     u.Ingredient.QuantityUnit,
			PurchasePrice:    u.Ingredient.Price,
			Nutrition:        u.Ingredient.Nutrition(),
			UsedQuantity:     u.Quantity,
			UsedUnit:         u.QuantityUnit,
		})
	}
	return lines
}

// Summarize 以目前食材狀態重新計算
func (s *Service) Summarize(recipe *store.Recipe) (Summary, error) {
	servings := recipe.Servings
	if servings < 1 {
		return Summary{}, common.ErrInvalidServings
	}
	sum, err := Aggregate(LinesFor(recipe.Ingredients), servings)
	if err != nil {
		return Summary{}, err
	}
	if s.observer != nil {
		s.observer.ObserveAggregation(sum.IssueKinds())
	}
	return sum, nil
}

func validateDetails(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return common.NewFieldError("name", "is required")
	}
	if in.Servings < 1 {
		return common.ErrInvalidServings
	}
	return nil
}

// buildUsages 驗證用量並確認食材屬於使用者
func (s *Service) buildUsages(ctx context.Context, userID uint, inputs []UsageInput) ([]store.RecipeIngredient, error) {
	ids := make([]uint, 0, len(inputs))
	seen := make(map[uint]bool, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("ingredients[%d]", i)
		if seen[in.IngredientID] {
			return nil, common.NewFieldError(field, "ingredient listed more than once")
		}
		seen[in.IngredientID] = true
		if in.Quantity <= 0 {
			return nil, common.ErrNonPositiveInput.WithMessage(field + ": quantity must be positive")
		}
		if _, err := units.Canonical(in.Unit); err != nil {
			return nil, common.ErrUnsupportedUnit.Wrap(err)
		}
		ids = append(ids, in.IngredientID)
	}

	owned, err := s.ingredients.GetMany(ctx, userID, ids)
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}

	usages := make([]store.RecipeIngredient, 0, len(inputs))
	for _, in := range inputs {
		ing, ok := owned[in.IngredientID]
		if !ok {
			return nil, common.ErrNotFound.WithMessage(fmt.Sprintf("ingredient %d not found", in.IngredientID))
		}
		unit, _ := units.Canonical(in.Unit)
		usages = append(usages, store.RecipeIngredient{
			IngredientID: in.IngredientID,
			Quantity:     in.Quantity,
			QuantityUnit: unit,
			Ingredient:   *ing,
		})
	}
	return usages, nil
}

// Create 新增食譜；總價以彙總結果寫入
func (s *Service) Create(ctx context.Context, userID uint, in Input) (*Detail, error) {
	if err := validateDetails(in); err != nil {
		return nil, err
	}
	usages, err := s.buildUsages(ctx, userID, in.Usages)
	if err != nil {
		return nil, err
	}

	recipe := &store.Recipe{
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Instructions: in.Instructions,
		Servings:     in.Servings,
		Ingredients:  usages,
	}
	sum, err := s.Summarize(recipe)
	if err != nil {
		return nil, err
	}
	recipe.TotalPrice = sum.TotalCost

	if err := s.recipes.Create(ctx, recipe); err != nil {
		common.LogError("新增食譜失敗", zap.Uint("user_id", userID), zap.Error(err))
		return nil, common.ErrInternalError.Wrap(err)
	}

	common.LogInfo("食譜已建立",
		zap.Uint("recipe_id", recipe.ID),
		zap.Int("ingredients", len(usages)),
		zap.Float64("total_cost", common.Round2(sum.TotalCost)),
	)
	return &Detail{Recipe: recipe, Summary: sum}, nil
}

// List 列出食譜；總價為儲存的投影值
func (s *Service) List(ctx context.Context, userID uint) ([]store.Recipe, error) {
	list, err := s.recipes.List(ctx, userID)
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return list, nil
}

func (s *Service) load(ctx context.Context, userID, id uint) (*store.Recipe, error) {
	recipe, err := s.recipes.Get(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, common.ErrNotFound.WithMessage("recipe not found")
	}
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return recipe, nil
}

// Get 取得食譜並重新計算彙總
func (s *Service) Get(ctx context.Context, userID, id uint) (*Detail, error) {
	recipe, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sum, err := s.Summarize(recipe)
	if err != nil {
		return nil, err
	}
	s.refreshTotal(ctx, recipe, sum.TotalCost)
	return &Detail{Recipe: recipe, Summary: sum}, nil
}

// refreshTotal 食材價格變動後同步投影值
func (s *Service) refreshTotal(ctx context.Context, recipe *store.Recipe, total float64) {
	if common.Round2(recipe.TotalPrice) == common.Round2(total) {
		return
	}
	if err := s.recipes.UpdateTotalPrice(ctx, recipe.ID, total); err != nil {
		common.LogWarn("更新食譜總價失敗", zap.Uint("recipe_id", recipe.ID), zap.Error(err))
		return
	}
	recipe.TotalPrice = total
}

// Update 更新食譜資料與用量
func (s *Service) Update(ctx context.Context, userID, id uint, in Input) (*Detail, error) {
	if err := validateDetails(in); err != nil {
		return nil, err
	}
	recipe, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	usages, err := s.buildUsages(ctx, userID, in.Usages)
	if err != nil {
		return nil, err
	}

	recipe.Name = strings.TrimSpace(in.Name)
	recipe.Instructions = in.Instructions
	recipe.Servings = in.Servings
	recipe.Ingredients = usages
	sum, err := s.Summarize(recipe)
	if err != nil {
		return nil, err
	}

	if err := s.recipes.Update(ctx, recipe, usages, sum.TotalCost); err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return &Detail{Recipe: recipe, Summary: sum}, nil
}

// RefreshTotalsFor 食材變更後重算使用它的食譜總價
func (s *Service) RefreshTotalsFor(ctx context.Context, userID, ingredientID uint) error {
	list, err := s.recipes.ListUsingIngredient(ctx, userID, ingredientID)
	if err != nil {
		return common.ErrInternalError.Wrap(err)
	}
	for _, r := range list {
		recipe, err := s.load(ctx, userID, r.ID)
		if err != nil {
			return err
		}
		sum, err := Aggregate(LinesFor(recipe.Ingredients), max(recipe.Servings, 1))
		if err != nil {
			return err
		}
		s.refreshTotal(ctx, recipe, sum.TotalCost)
	}
	return nil
}

// Delete 刪除食譜
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	err := s.recipes.Delete(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return common.ErrNotFound.WithMessage("recipe not found")
	}
	if err != nil {
		return common.ErrInternalError.Wrap(err)
	}
	common.LogInfo("食譜已刪除", zap.Uint("recipe_id", id))
	return nil
}
