// Package handlers holds the HTTP request handlers and their shared helpers.
package handlers

import (
	"strconv"

	"food-budget/internal/api/middleware"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestID 取得請求 ID；沒有時生成新的
func RequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

// UserID 目前登入的使用者；未登入時回傳 false
func UserID(c *gin.Context) (uint, bool) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return 0, false
	}
	return claims.UserID, true
}

// MustUserID 取得使用者，未登入時直接回應 401
func MustUserID(c *gin.Context) (uint, bool) {
	id, ok := UserID(c)
	if !ok {
		Fail(c, common.ErrUnauthorized)
	}
	return id, ok
}

// ParamID 解析路徑中的數字 ID
func ParamID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		Fail(c, common.ErrInvalidRequest.WithMessage("invalid "+name))
		return 0, false
	}
	return uint(v), true
}

// BindJSON 解析請求體
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		common.LogWarn("無效的請求格式",
			zap.String("request_id", RequestID(c)),
			zap.Error(err),
		)
		Fail(c, common.ErrInvalidRequest.WithMessage("invalid json").Wrap(err))
		return false
	}
	return true
}

// Fail 依錯誤類型回應；5xx 記錄錯誤日誌，詳細原因只在 debug 模式回傳
func Fail(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	requestID := RequestID(c)

	if ce.Status >= 500 {
		common.LogError("請求處理失敗",
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
			zap.String("code", ce.Code),
			zap.Error(err),
		)
	}

	resp := common.ErrorResponse{Code: ce.Code, Message: ce.Message, RequestID: requestID}
	if debugMode(c) && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}
	c.AbortWithStatusJSON(ce.Status, resp)
}

func debugMode(c *gin.Context) bool {
	v, ok := c.Get("config")
	if !ok {
		return false
	}
	cfg, ok := v.(*config.Config)
	return ok && cfg.App.Debug
}
