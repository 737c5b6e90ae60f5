// Package units converts purchase and usage quantities to standard units
// (kilograms for mass, litres for volume, raw counts for pieces).
package units

import (
	"errors"
	"fmt"
	"strings"
)

// Category 單位類別
type Category string

const (
	Mass   Category = "mass"
	Volume Category = "volume"
	Count  Category = "count"
)

// StandardLabel 類別對應的標準單位標籤
func (c Category) StandardLabel() string {
	switch c {
	case Mass:
		return "per kg"
	case Volume:
		return "per L"
	default:
		return "per unit"
	}
}

// unitDef 單位定義：factor 為換算成標準單位的倍率
type unitDef struct {
	name     string
	category Category
	factor   float64
}

var unitTable = map[string]unitDef{
	"g":          {"g", Mass, 1.0 / 1000},
	"kg":         {"kg", Mass, 1},
	"ml":         {"ml", Volume, 1.0 / 1000},
	"cl":         {"cl", Volume, 1.0 / 100},
	"l":          {"l", Volume, 1},
	"teaspoon":   {"teaspoon", Volume, 1.0 / 202},
	"tablespoon": {"tablespoon", Volume, 1.0 / 67.628},
	"unit":       {"unit", Count, 1},
}

var aliases = map[string]string{
	"gram": "g", "grams": "g", "gr": "g",
	"kilogram": "kg", "kilograms": "kg", "kilo": "kg",
	"milliliter": "ml", "millilitre": "ml", "milliliters": "ml", "millilitres": "ml",
	"centiliter": "cl", "centilitre": "cl", "centiliters": "cl", "centilitres": "cl",
	"liter": "l", "litre": "l", "liters": "l", "litres": "l",
	"tsp": "teaspoon", "teaspoons": "teaspoon",
	"tbsp": "tablespoon", "tablespoons": "tablespoon",
	"units": "unit", "pc": "unit", "pcs": "unit", "piece": "unit", "pieces": "unit", "stk": "unit",
}

// ErrNonPositiveInput 數量或價格非正數時回傳，不產生數值
var ErrNonPositiveInput = errors.New("quantity and price must be positive")

// UnsupportedUnitError 未知單位
type UnsupportedUnitError struct {
	Unit string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported unit %q", e.Unit)
}

// UnitCategoryMismatchError 使用單位與購買單位類別不同
type UnitCategoryMismatchError struct {
	Used      string
	Purchased string
	UsedCat   Category
	BoughtCat Category
}

func (e *UnitCategoryMismatchError) Error() string {
	return fmt.Sprintf("cannot reconcile %s (%s) with %s (%s)", e.Used, e.UsedCat, e.Purchased, e.BoughtCat)
}

func lookup(unit string) (unitDef, error) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := aliases[u]; ok {
		u = canonical
	}
	def, ok := unitTable[u]
	if !ok {
		return unitDef{}, &UnsupportedUnitError{Unit: unit}
	}
	return def, nil
}

// Canonical 回傳單位的標準寫法，例如 "Grams" -> "g"
func Canonical(unit string) (string, error) {
	def, err := lookup(unit)
	if err != nil {
		return "", err
	}
	return def.name, nil
}

// CategoryOf 回傳單位類別
func CategoryOf(unit string) (Category, error) {
	def, err := lookup(unit)
	if err != nil {
		return "", err
	}
	return def.category, nil
}

// Supported 列出所有支援的單位
func Supported() []string {
	return []string{"g", "kg", "ml", "cl", "l", "teaspoon", "tablespoon", "unit"}
}

// ToStandard 換算為標準單位數量
func ToStandard(quantity float64, unit string) (float64, Category, error) {
	def, err := lookup(unit)
	if err != nil {
		return 0, "", err
	}
	return quantity * def.factor, def.category, nil
}

// PricePerUnit 每標準單位價格
type PricePerUnit struct {
	Value float64  `json:"value"`
	Label string   `json:"label"`
	Cat   Category `json:"category"`
}

// PricePerStandardUnit 計算每公斤、每公升或每件的價格
func PricePerStandardUnit(quantity float64, unit string, price float64) (PricePerUnit, error) {
	if quantity <= 0 || price <= 0 {
		return PricePerUnit{}, ErrNonPositiveInput
	}
	std, cat, err := ToStandard(quantity, unit)
	if err != nil {
		return PricePerUnit{}, err
	}
	return PricePerUnit{Value: price / std, Label: cat.StandardLabel(), Cat: cat}, nil
}

// ProportionalQuantity 回傳使用量佔購買量的比例
func ProportionalQuantity(used float64, usedUnit string, purchased float64, purchaseUnit string) (float64, error) {
	usedStd, usedCat, err := ToStandard(used, usedUnit)
	if err != nil {
		return 0, err
	}
	boughtStd, boughtCat, err := ToStandard(purchased, purchaseUnit)
	if err != nil {
		return 0, err
	}
	if usedCat != boughtCat {
		return 0, &UnitCategoryMismatchError{Used: usedUnit, Purchased: purchaseUnit, UsedCat: usedCat, BoughtCat: boughtCat}
	}
	if boughtStd <= 0 {
		return 0, ErrNonPositiveInput
	}
	return usedStd / boughtStd, nil
}

// Per100Factor 將使用量換算為「幾個 100 g / 100 ml」；計數單位無法換算
func Per100Factor(quantity float64, unit string) (float64, Category, error) {
	std, cat, err := ToStandard(quantity, unit)
	if err != nil {
		return 0, "", err
	}
	if cat == Count {
		return 0, cat, nil
	}
	// 1 kg = 10 x 100 g；1 L 視為 10 x 100 ml
	return std * 10, cat, nil
}
