package middleware

import (
	"net/http"
	"strings"

	"food-budget/internal/core/auth"
	"food-budget/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// CtxClaimsKey gin context 中權杖內容的鍵
const CtxClaimsKey = "auth_claims"

// Auth 驗證 Bearer 權杖
func Auth(tokens auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(h[len("Bearer "):]))
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, common.ErrorResponse{
		Code:      common.ErrCodeUnauthorized,
		Message:   msg,
		RequestID: requestid.Get(c),
	})
}

// ClaimsFrom 取出權杖內容；未登入時為 nil
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
