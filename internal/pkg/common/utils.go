package common

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// NormalizeName 名稱正規化：去除前後空白並轉小寫
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Round2 四捨五入至小數點後兩位（金額顯示用）
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Float64Ptr 取得浮點數指標
func Float64Ptr(v float64) *float64 {
	return &v
}

// StringPtr 取得字串指標，空字串回傳 nil
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref 取出字串指標的值
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
