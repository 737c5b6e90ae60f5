// Package catalog serves reference data: supported units and barcode checks.
package catalog

import (
	"net/http"

	"food-budget/internal/api/handlers"
	"food-budget/internal/core/barcode"
	"food-budget/internal/core/units"
	"food-budget/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Handler 參考資料
type Handler struct {
	region *barcode.RegionPolicy
}

// NewHandler 創建參考資料處理器
func NewHandler(region *barcode.RegionPolicy) *Handler {
	return &Handler{region: region}
}

type unitView struct {
	Unit     string `json:"unit"`
	Category string `json:"category"`
	Label    string `json:"standard_label"`
}

// Units GET /units
func (h *Handler) Units(c *gin.Context) {
	out := make([]unitView, 0, len(units.Supported()))
	for _, u := range units.Supported() {
		cat, err := units.CategoryOf(u)
		if err != nil {
			continue
		}
		out = append(out, unitView{Unit: u, Category: string(cat), Label: cat.StandardLabel()})
	}
	c.JSON(http.StatusOK, gin.H{"units": out})
}

// Barcode GET /barcodes/:code
func (h *Handler) Barcode(c *gin.Context) {
	code, err := barcode.Validate(c.Param("code"))
	if err != nil {
		handlers.Fail(c, common.ErrInvalidBarcode.WithMessage(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"barcode":         code.String(),
		"format":          code.Format(),
		"prefix":          code.Prefix(),
		"priority_region": h.region.IsPriority(code),
	})
}
