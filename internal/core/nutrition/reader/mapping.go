// Package reader implements the external nutrition sources: a branded-product
// database keyed by barcode and a simple-food API keyed by name.
package reader

import (
	"regexp"
	"strconv"
	"strings"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/core/units"
	"food-budget/internal/pkg/common"
)

// kJ 轉 kcal
const kilojoulesToKcal = 0.23900573614

// fieldMap 來源欄位對應表：每個營養素依序嘗試的欄位
type fieldMap map[nutrition.Nutrient][]string

// pick 從原始資料取出第一個可用的非負數值
func pick(raw map[string]interface{}, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		f, ok := common.NumberValue(v)
		if !ok || f < 0 {
			continue
		}
		return f, true
	}
	return 0, false
}

// mapFields 依對應表轉換；未對應或無效的欄位保持缺漏
func mapFields(raw map[string]interface{}, fields fieldMap) map[nutrition.Nutrient]float64 {
	out := make(map[nutrition.Nutrient]float64, len(fields))
	for n, keys := range fields {
		if v, ok := pick(raw, keys); ok {
			out[n] = v
		}
	}
	return out
}

// firstString 取第一個非空字串欄位
func firstString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

var quantityPattern = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*([\p{L}]+)\.?\s*$`)

// parsePackageQuantity 解析 "500 g"、"1,5L" 等包裝標示；無法解析回傳 false
func parsePackageQuantity(text string) (float64, string, bool) {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	q, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || q <= 0 {
		return 0, "", false
	}
	unit, err := units.Canonical(m[2])
	if err != nil {
		return 0, "", false
	}
	return q, unit, true
}
