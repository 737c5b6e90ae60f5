package ingredient

import (
	"net/http"

	"food-budget/internal/api/handlers"
	ingredientService "food-budget/internal/core/ingredient"
	"food-budget/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 食材路由
type Handler struct {
	service *ingredientService.Service
}

// NewHandler 創建食材處理器
func NewHandler(service *ingredientService.Service) *Handler {
	return &Handler{service: service}
}

// List GET /ingredients?q=
func (h *Handler) List(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	list, err := h.service.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": list, "count": len(list)})
}

// Create POST /ingredients
func (h *Handler) Create(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	var req ingredientService.Input
	if !handlers.BindJSON(c, &req) {
		return
	}

	common.LogInfo("新增食材請求",
		zap.String("request_id", handlers.RequestID(c)),
		zap.Uint("user_id", userID),
		zap.Bool("has_barcode", req.Barcode != ""),
	)
	d, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Get GET /ingredients/:id
func (h *Handler) Get(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	d, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Update PUT /ingredients/:id
func (h *Handler) Update(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var req ingredientService.Input
	if !handlers.BindJSON(c, &req) {
		return
	}
	d, err := h.service.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Delete DELETE /ingredients/:id
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rescan POST /ingredients/:id/rescan
func (h *Handler) Rescan(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	d, err := h.service.Rescan(c.Request.Context(), userID, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Recipes GET /ingredients/:id/recipes
func (h *Handler) Recipes(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	list, err := h.service.RecipesUsing(c.Request.Context(), userID, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list, "count": len(list)})
}

// Lookup GET /ingredients/lookup?barcode=&name=
func (h *Handler) Lookup(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	p, err := h.service.Lookup(c.Request.Context(), userID, c.Query("barcode"), c.Query("name"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
