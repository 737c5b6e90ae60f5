// Package nutrition resolves per-100g nutrition facts for ingredients from
// external sources, with barcode/name fallback and a shared lookup cache.
package nutrition

import (
	"context"
	"fmt"
	"math"

	"food-budget/internal/pkg/common"
)

// Nutrient 營養素名稱
type Nutrient string

const (
	Calories      Nutrient = "calories"
	Protein       Nutrient = "protein"
	Carbohydrates Nutrient = "carbohydrates"
	Fat           Nutrient = "fat"
	Fiber         Nutrient = "fiber"
)

// AllNutrients 固定輸出順序
var AllNutrients = []Nutrient{Calories, Protein, Carbohydrates, Fat, Fiber}

// Record 每 100 g 營養資料；每個欄位皆可缺漏，存在時必為非負數
type Record struct {
	Calories      *float64 `json:"calories,omitempty"`
	Protein       *float64 `json:"protein,omitempty"`
	Carbohydrates *float64 `json:"carbohydrates,omitempty"`
	Fat           *float64 `json:"fat,omitempty"`
	Fiber         *float64 `json:"fiber,omitempty"`
}

// NewRecord 以 map 建立紀錄，負數或非有限值視為缺漏
func NewRecord(values map[Nutrient]float64) *Record {
	r := &Record{}
	for n, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		r.set(n, v)
	}
	return r
}

func (r *Record) set(n Nutrient, v float64) {
	p := common.Float64Ptr(v)
	switch n {
	case Calories:
		r.Calories = p
	case Protein:
		r.Protein = p
	case Carbohydrates:
		r.Carbohydrates = p
	case Fat:
		r.Fat = p
	case Fiber:
		r.Fiber = p
	}
}

// Get 取得單一營養素
func (r *Record) Get(n Nutrient) (float64, bool) {
	if r == nil {
		return 0, false
	}
	var p *float64
	switch n {
	case Calories:
		p = r.Calories
	case Protein:
		p = r.Protein
	case Carbohydrates:
		p = r.Carbohydrates
	case Fat:
		p = r.Fat
	case Fiber:
		p = r.Fiber
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// IsEmpty 是否完全沒有營養素
func (r *Record) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, n := range AllNutrients {
		if _, ok := r.Get(n); ok {
			return false
		}
	}
	return true
}

// Validate 檢查所有欄位非負
func (r *Record) Validate() error {
	if r == nil {
		return nil
	}
	for _, n := range AllNutrients {
		if v, ok := r.Get(n); ok && (v < 0 || math.IsNaN(v) || math.IsInf(v, 0)) {
			return fmt.Errorf("%s must be a non-negative number, got %v", n, v)
		}
	}
	return nil
}

// Clone 深拷貝，外部持有的紀錄不會被快取修改
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{}
	for _, n := range AllNutrients {
		if v, ok := r.Get(n); ok {
			out.set(n, v)
		}
	}
	return out
}

// KeyKind 查詢鍵類型
type KeyKind string

const (
	BarcodeKey KeyKind = "barcode"
	NameKey    KeyKind = "name"
)

// LookupKey 條碼與名稱屬於不同的識別空間
type LookupKey struct {
	Kind  KeyKind
	Value string
}

// ForBarcode 建立條碼查詢鍵
func ForBarcode(code string) LookupKey {
	return LookupKey{Kind: BarcodeKey, Value: code}
}

// ForName 建立名稱查詢鍵（去除空白並轉小寫）
func ForName(name string) LookupKey {
	return LookupKey{Kind: NameKey, Value: common.NormalizeName(name)}
}

func (k LookupKey) String() string {
	return string(k.Kind) + ":" + k.Value
}

// Outcome 來源查詢結果
type Outcome string

const (
	Found        Outcome = "found"
	NotFound     Outcome = "not_found"
	SourceError  Outcome = "source_error"
	InvalidQuery Outcome = "invalid_query"
)

// Product 品牌來源附帶的商品資訊
type Product struct {
	Name     string  `json:"name,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// Result 來源查詢結果；Record 只在 Found 時存在
type Result struct {
	Outcome Outcome
	Record  *Record
	Product *Product
	Err     error
}

// FoundResult 建立成功結果
func FoundResult(r *Record) Result { return Result{Outcome: Found, Record: r} }

// NotFoundResult 建立查無結果
func NotFoundResult() Result { return Result{Outcome: NotFound} }

// SourceErrorResult 建立來源錯誤結果
func SourceErrorResult(err error) Result { return Result{Outcome: SourceError, Err: err} }

// InvalidQueryResult 建立無效查詢結果
func InvalidQueryResult(err error) Result { return Result{Outcome: InvalidQuery, Err: err} }

// Reader 營養資料來源
type Reader interface {
	Name() string
	// Lookup 每次呼叫最多一次對外請求，錯誤以 Result 回傳
	Lookup(ctx context.Context, key LookupKey) Result
}

// CacheEntry 快取項目；Record 為 nil 代表負向快取
type CacheEntry struct {
	Record *Record
}

// Negative 是否為負向快取
func (e CacheEntry) Negative() bool { return e.Record == nil }

// Cache 查詢快取；沒有過期時間，最後寫入者勝出
type Cache interface {
	Get(ctx context.Context, key LookupKey) (CacheEntry, bool)
	Put(ctx context.Context, key LookupKey, record *Record) error
}
