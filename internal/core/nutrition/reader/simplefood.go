package reader

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// SimpleFoodSourceName 簡易食物來源名稱
const SimpleFoodSourceName = "nutrifinder"

var simpleFoodFields = fieldMap{
	nutrition.Calories:      {"kcal"},
	nutrition.Protein:       {"protein"},
	nutrition.Carbohydrates: {"carb"},
	nutrition.Fat:           {"fat"},
	nutrition.Fiber:         {"fiber"},
}

// 名稱限 1-32 個字母，含變音字母
var simpleFoodName = regexp.MustCompile(`^\p{L}{1,32}$`)

// SimpleFoodReader 以食物名稱查詢通用營養資料
type SimpleFoodReader struct {
	client *resty.Client
}

// NewSimpleFoodReader 創建簡易食物來源讀取器
func NewSimpleFoodReader(cfg config.SourceConfig) *SimpleFoodReader {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &SimpleFoodReader{client: client}
}

// Name 來源名稱
func (r *SimpleFoodReader) Name() string { return SimpleFoodSourceName }

// ValidName 名稱是否符合來源格式
func ValidName(name string) bool {
	return simpleFoodName.MatchString(name)
}

// Lookup 查詢單一食物名稱；名稱格式不符時不發出請求
func (r *SimpleFoodReader) Lookup(ctx context.Context, key nutrition.LookupKey) nutrition.Result {
	if key.Kind != nutrition.NameKey {
		return nutrition.InvalidQueryResult(fmt.Errorf("%s only supports name lookups", SimpleFoodSourceName))
	}
	if !ValidName(key.Value) {
		return nutrition.InvalidQueryResult(fmt.Errorf("name %q must be 1-32 letters", key.Value))
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("foodItemName", key.Value).
		Get("")
	if err != nil {
		return nutrition.SourceErrorResult(fmt.Errorf("request failed: %w", err))
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nutrition.NotFoundResult()
	default:
		return nutrition.SourceErrorResult(fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	var raw map[string]interface{}
	if err := common.ParseJSONBytes(resp.Body(), &raw); err != nil {
		return nutrition.SourceErrorResult(fmt.Errorf("malformed response: %w", err))
	}

	record := nutrition.NewRecord(mapFields(raw, simpleFoodFields))
	if record.IsEmpty() {
		return nutrition.NotFoundResult()
	}

	result := nutrition.FoundResult(record)
	if name := firstString(raw, "foodItemName"); name != "" {
		result.Product = &nutrition.Product{Name: name}
	}
	return result
}
