package ingredient

import (
	"context"
	"errors"
	"strings"

	"food-budget/internal/core/barcode"
	"food-budget/internal/core/nutrition"
	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"
)

// AttemptView 單次來源嘗試
type AttemptView struct {
	Source    string `json:"source"`
	Key       string `json:"key"`
	Outcome   string `json:"outcome"`
	FromCache bool   `json:"from_cache"`
	Error     string `json:"error,omitempty"`
}

// Preview 查詢結果預覽，不寫入資料庫
type Preview struct {
	Barcode        string             `json:"barcode,omitempty"`
	Format         string             `json:"format,omitempty"`
	PriorityRegion bool               `json:"priority_region"`
	Found          bool               `json:"found"`
	Source         string             `json:"source,omitempty"`
	Confidence     string             `json:"confidence"`
	FromCache      bool               `json:"from_cache"`
	Nutrition      *nutrition.Record  `json:"nutrition,omitempty"`
	Product        *nutrition.Product `json:"product,omitempty"`
	Attempts       []AttemptView      `json:"attempts"`
	ExistingID     *uint              `json:"existing_ingredient_id,omitempty"`
}

func previewOf(code barcode.Barcode, res nutrition.Resolution) *Preview {
	p := &Preview{
		Barcode:        code.String(),
		Format:         string(code.Format()),
		PriorityRegion: res.PriorityRegion,
		Found:          res.Found(),
		Source:         res.Source,
		Confidence:     string(res.Confidence),
		FromCache:      res.FromCache,
		Nutrition:      res.Record,
		Product:        res.Product,
		Attempts:       make([]AttemptView, 0, len(res.Attempts)),
	}
	for _, a := range res.Attempts {
		v := AttemptView{Source: a.Source, Key: a.Key.String(), Outcome: string(a.Outcome), FromCache: a.FromCache}
		if a.Err != nil {
			v.Error = a.Err.Error()
		}
		p.Attempts = append(p.Attempts, v)
	}
	return p
}

// Lookup 以條碼（與可選名稱）查詢營養與商品資料
func (s *Service) Lookup(ctx context.Context, userID uint, rawBarcode, name string) (*Preview, error) {
	if strings.TrimSpace(rawBarcode) == "" && strings.TrimSpace(name) == "" {
		return nil, common.NewValidationError("barcode or name is required")
	}
	req, err := nutrition.NewRequest(rawBarcode, name)
	if err != nil {
		return nil, common.ErrInvalidBarcode.Wrap(err)
	}

	p := previewOf(req.Barcode, s.resolver.Resolve(ctx, req))
	if !req.Barcode.IsZero() {
		existing, err := s.ingredients.FindByBarcode(ctx, userID, req.Barcode.String())
		switch {
		case err == nil:
			p.ExistingID = &existing.ID
		case !errors.Is(err, store.ErrNotFound):
			return nil, common.ErrInternalError.Wrap(err)
		}
	}
	return p, nil
}
