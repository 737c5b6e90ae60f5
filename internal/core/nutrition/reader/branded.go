package reader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"food-budget/internal/core/barcode"
	"food-budget/internal/core/nutrition"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// BrandedSourceName 品牌商品資料庫名稱
const BrandedSourceName = "openfoodfacts"

var brandedFields = fieldMap{
	nutrition.Calories:      {"energy-kcal_100g"},
	nutrition.Protein:       {"proteins_100g"},
	nutrition.Carbohydrates: {"carbohydrates_100g"},
	nutrition.Fat:           {"fat_100g"},
	nutrition.Fiber:         {"fiber_100g"},
}

// 只有 kJ 時的能量欄位
var brandedKilojouleFields = []string{"energy-kj_100g", "energy_100g"}

// brandedResponse Open Food Facts 回應
type brandedResponse struct {
	Status  int                    `json:"status"`
	Product map[string]interface{} `json:"product"`
}

// BrandedReader 以條碼查詢品牌商品營養資料
type BrandedReader struct {
	client *resty.Client
}

// NewBrandedReader 創建品牌來源讀取器
func NewBrandedReader(cfg config.SourceConfig) *BrandedReader {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	return &BrandedReader{client: client}
}

// Name 來源名稱
func (r *BrandedReader) Name() string { return BrandedSourceName }

// Lookup 查詢單一條碼
func (r *BrandedReader) Lookup(ctx context.Context, key nutrition.LookupKey) nutrition.Result {
	if key.Kind != nutrition.BarcodeKey {
		return nutrition.InvalidQueryResult(fmt.Errorf("%s only supports barcode lookups", BrandedSourceName))
	}
	code, err := barcode.Validate(key.Value)
	if err != nil {
		return nutrition.InvalidQueryResult(err)
	}

	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		Get("/" + code.String() + ".json")
	if err != nil {
		return nutrition.SourceErrorResult(fmt.Errorf("request failed: %w", err))
	}

	common.LogDebug("品牌來源回應",
		zap.String("barcode", code.String()),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("耗時", time.Since(start)),
	)

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nutrition.NotFoundResult()
	default:
		return nutrition.SourceErrorResult(fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	var body brandedResponse
	if err := common.ParseJSONBytes(resp.Body(), &body); err != nil {
		return nutrition.SourceErrorResult(fmt.Errorf("malformed response: %w", err))
	}
	if body.Status != 1 || len(body.Product) == 0 {
		return nutrition.NotFoundResult()
	}

	record := brandedRecord(body.Product)
	if record.IsEmpty() {
		return nutrition.NotFoundResult()
	}

	result := nutrition.FoundResult(record)
	result.Product = brandedProduct(body.Product)
	return result
}

func brandedRecord(product map[string]interface{}) *nutrition.Record {
	nutriments, _ := product["nutriments"].(map[string]interface{})
	if nutriments == nil {
		return &nutrition.Record{}
	}
	values := mapFields(nutriments, brandedFields)
	if _, ok := values[nutrition.Calories]; !ok {
		if kj, ok := pick(nutriments, brandedKilojouleFields); ok {
			values[nutrition.Calories] = kj * kilojoulesToKcal
		}
	}
	return nutrition.NewRecord(values)
}

func brandedProduct(product map[string]interface{}) *nutrition.Product {
	p := &nutrition.Product{
		Name:  firstString(product, "product_name", "product_name_en", "generic_name"),
		Brand: firstString(product, "brands", "brand_owner"),
	}
	// 多品牌時只取第一個
	if i := strings.Index(p.Brand, ","); i > 0 {
		p.Brand = strings.TrimSpace(p.Brand[:i])
	}
	if q, unit, ok := parsePackageQuantity(firstString(product, "quantity")); ok {
		p.Quantity = q
		p.Unit = unit
	}
	return p
}
