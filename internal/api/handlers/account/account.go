package account

import (
	"net/http"

	"food-budget/internal/api/handlers"
	"food-budget/internal/core/auth"

	"github.com/gin-gonic/gin"
)

// Handler 註冊與登入
type Handler struct {
	service *auth.Service
}

// NewHandler 創建帳號處理器
func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service}
}

// Register POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req auth.RegisterInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	sess, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Login POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	sess, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Me GET /me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := handlers.MustUserID(c)
	if !ok {
		return
	}
	u, err := h.service.CurrentUser(c.Request.Context(), &auth.Claims{UserID: userID})
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
