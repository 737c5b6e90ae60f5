package recipe

import (
	"net/http"

	"food-budget/internal/api/handlers"
	recipeService "food-budget/internal/core/recipe"

	"github.com/gin-gonic/gin"
)

// Handler 食譜路由
type Handler struct {
	service *recipeService.Service
}

// NewHandler 創建食譜處理器
func NewHandler(service *recipeService.Service) *Handler {
	return &Handler{service: service}
}

// List GET /recipes
func (h *Handler) List(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": list, "count": len(list)})
}

// Create POST /recipes
func (h *Handler) Create(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	var req recipeService.Input
	if !handlers.BindJSON(c, &req) {
		return
	}
	d, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Get GET /recipes/:id
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

// Update PUT /recipes/:id
func (h *Handler) Update(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var req recipeService.Input
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

// Delete DELETE /recipes/:id
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
