package nutrition

import (
	"context"
	"strings"
	"time"

	"food-budget/internal/core/barcode"
	"food-budget/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Request 解析請求；Barcode 只能來自 barcode.Validate
type Request struct {
	Barcode barcode.Barcode
	Name    string
}

// NewRequest 驗證原始條碼並建立請求；空條碼代表只用名稱
func NewRequest(rawBarcode, name string) (Request, error) {
	req := Request{Name: name}
	if strings.TrimSpace(rawBarcode) == "" {
		return req, nil
	}
	b, err := barcode.Validate(rawBarcode)
	if err != nil {
		return Request{}, err
	}
	req.Barcode = b
	return req, nil
}

// Strategy 一個解析步驟：來源與取得查詢鍵的方式
type Strategy struct {
	Source Reader
	KeyFor func(Request) (LookupKey, bool)
}

// ByBarcode 以條碼查詢
func ByBarcode(src Reader) Strategy {
	return Strategy{Source: src, KeyFor: func(r Request) (LookupKey, bool) {
		if r.Barcode.IsZero() {
			return LookupKey{}, false
		}
		return ForBarcode(r.Barcode.String()), true
	}}
}

// ByName 以正規化名稱查詢
func ByName(src Reader) Strategy {
	return Strategy{Source: src, KeyFor: func(r Request) (LookupKey, bool) {
		k := ForName(r.Name)
		if k.Value == "" {
			return LookupKey{}, false
		}
		return k, true
	}}
}

// CacheOnlySource 沒有來源的策略在嘗試紀錄中的名稱
const CacheOnlySource = "cache"

// DefaultStrategies 品牌來源（條碼）優先，其次簡易食物來源（名稱）。
// 品牌來源停用時條碼鍵仍保留為只讀寫快取的步驟；簡易食物來源停用時略過
func DefaultStrategies(branded, simpleFood Reader) []Strategy {
	out := []Strategy{ByBarcode(branded)}
	if simpleFood != nil {
		out = append(out, ByName(simpleFood))
	}
	return out
}

// Attempt 單一步驟的紀錄，供呼叫端分別記錄 NotFound 與 SourceError
type Attempt struct {
	Source    string
	Key       LookupKey
	Outcome   Outcome
	FromCache bool
	Err       error
}

// Confidence 結果信心程度
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Resolution 解析結果；Record 為 nil 代表沒有營養資料（不是錯誤）
type Resolution struct {
	Record         *Record
	Product        *Product
	Source         string
	MatchedKey     LookupKey
	FromCache      bool
	PriorityRegion bool
	Confidence     Confidence
	Attempts       []Attempt
}

// Found 是否取得營養資料
func (r Resolution) Found() bool { return r.Record != nil }

// Observer 指標回報
type Observer interface {
	ObserveSourceLookup(source, outcome string)
	ObserveCacheLookup(result string)
	ObserveResolution(result string)
}

type nopObserver struct{}

func (nopObserver) ObserveSourceLookup(string, string) {}
func (nopObserver) ObserveCacheLookup(string)          {}
func (nopObserver) ObserveResolution(string)           {}

// Resolver 依序嘗試策略清單，成功即停止
type Resolver struct {
	cache      Cache
	strategies []Strategy
	policy     *barcode.RegionPolicy
	observer   Observer
	group      *singleflight.Group
}

// Option 解析器選項
type Option func(*Resolver)

// WithRegionPolicy 設定優先地區政策
func WithRegionPolicy(p *barcode.RegionPolicy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithObserver 設定指標回報
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithSingleFlight 合併相同請求的並行冷查詢
func WithSingleFlight(enabled bool) Option {
	return func(r *Resolver) {
		if enabled {
			r.group = &singleflight.Group{}
		} else {
			r.group = nil
		}
	}
}

// NewResolver 創建解析器
func NewResolver(cache Cache, strategies []Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		cache:      cache,
		strategies: strategies,
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveBarcode 驗證條碼後解析；條碼無效時回傳 ErrInvalidBarcode
func (r *Resolver) ResolveBarcode(ctx context.Context, rawBarcode, name string) (Resolution, error) {
	req, err := NewRequest(rawBarcode, name)
	if err != nil {
		return Resolution{}, err
	}
	return r.Resolve(ctx, req), nil
}

// Resolve 解析營養資料；來源失敗不會回傳錯誤
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	if r.group == nil {
		return r.resolve(ctx, req)
	}
	flightKey := req.Barcode.String() + "|" + common.NormalizeName(req.Name)
	v, _, shared := r.group.Do(flightKey, func() (interface{}, error) {
		return r.resolve(ctx, req), nil
	})
	res := v.(Resolution)
	if shared {
		common.LogDebug("合併並行營養查詢", zap.String("key", flightKey))
	}
	// 共享結果的切片不可被呼叫端修改
	res.Attempts = append([]Attempt(nil), res.Attempts...)
	res.Record = res.Record.Clone()
	return res
}

// resolve 的來源呼叫與快取寫入不受呼叫端取消影響，只受來源逾時限制
func (r *Resolver) resolve(parent context.Context, req Request) Resolution {
	ctx := context.WithoutCancel(parent)
	res := Resolution{Confidence: ConfidenceNone}
	if !req.Barcode.IsZero() {
		res.PriorityRegion = r.policy.IsPriority(req.Barcode)
	}

	var attempted []LookupKey
	seen := make(map[LookupKey]bool)

	for _, s := range r.strategies {
		key, ok := s.KeyFor(req)
		if !ok {
			continue
		}
		name := CacheOnlySource
		if s.Source != nil {
			name = s.Source.Name()
		}

		if !seen[key] {
			seen[key] = true
			if entry, hit := r.cacheGet(ctx, key); hit {
				// 快取命中即為終點，並回寫先前嘗試過的鍵
				r.putAll(ctx, attempted, entry.Record)
				res.Attempts = append(res.Attempts, Attempt{Source: name, Key: key, Outcome: outcomeOf(entry), FromCache: true})
				res.FromCache = true
				if !entry.Negative() {
					r.finish(&res, entry.Record.Clone(), nil, name, key)
				} else {
					r.observer.ObserveResolution("negative_cached")
				}
				return res
			}
			attempted = append(attempted, key)
		}
		if s.Source == nil {
			continue
		}

		start := time.Now()
		result := s.Source.Lookup(ctx, key)
		common.LogSourceLookup(name, key.String(), string(result.Outcome), time.Since(start), result.Err)
		r.observer.ObserveSourceLookup(name, string(result.Outcome))
		res.Attempts = append(res.Attempts, Attempt{Source: name, Key: key, Outcome: result.Outcome, Err: result.Err})

		if result.Outcome == Found && result.Record != nil {
			r.putAll(ctx, attempted, result.Record)
			r.finish(&res, result.Record.Clone(), result.Product, name, key)
			return res
		}
		// NotFound、SourceError、InvalidQuery 一律往下一個來源
	}

	r.putAll(ctx, attempted, nil)
	r.observer.ObserveResolution("not_found")
	return res
}

func (r *Resolver) finish(res *Resolution, rec *Record, product *Product, source string, key LookupKey) {
	res.Record = rec
	res.Product = product
	res.Source = source
	res.MatchedKey = key
	switch {
	case key.Kind == BarcodeKey && res.PriorityRegion:
		res.Confidence = ConfidenceHigh
	case key.Kind == BarcodeKey:
		res.Confidence = ConfidenceMedium
	default:
		res.Confidence = ConfidenceLow
	}
	r.observer.ObserveResolution("found")
}

func outcomeOf(e CacheEntry) Outcome {
	if e.Negative() {
		return NotFound
	}
	return Found
}

func (r *Resolver) cacheGet(ctx context.Context, key LookupKey) (CacheEntry, bool) {
	if r.cache == nil {
		return CacheEntry{}, false
	}
	entry, hit := r.cache.Get(ctx, key)
	switch {
	case !hit:
		r.observer.ObserveCacheLookup("miss")
		common.LogCacheMiss("nutrition", key.String())
	case entry.Negative():
		r.observer.ObserveCacheLookup("negative")
		common.LogCacheHit("nutrition", key.String())
	default:
		r.observer.ObserveCacheLookup("hit")
		common.LogCacheHit("nutrition", key.String())
	}
	return entry, hit
}

func (r *Resolver) putAll(ctx context.Context, keys []LookupKey, rec *Record) {
	if r.cache == nil {
		return
	}
	for _, k := range keys {
		if err := r.cache.Put(ctx, k, rec.Clone()); err != nil {
			common.LogWarn("營養快取寫入失敗", zap.String("key", k.String()), zap.Error(err))
		}
	}
}
