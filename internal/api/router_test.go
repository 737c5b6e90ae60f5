package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"food-budget/internal/core/nutrition/cache"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/infrastructure/metrics"
	"food-budget/internal/infrastructure/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router       *gin.Engine
	brandedCalls *int32
	simpleCalls  *int32
	token        string
}

func testConfig(brandedURL, simpleURL string) *config.Config {
	source := func(url string) config.SourceConfig {
		return config.SourceConfig{Enabled: true, BaseURL: url, UserAgent: "food-budget-test", Timeout: 2 * time.Second}
	}
	return &config.Config{
		App:    config.AppConfig{Env: "test", Debug: true, Version: "test", Name: "food-budget"},
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second, MaxBodyBytes: 1 << 20},
		Auth:   config.AuthConfig{JWTSecret: "router-test-secret", Issuer: "food-budget", TokenTTL: time.Hour},
		Nutrition: config.NutritionConfig{
			Branded:          source(brandedURL),
			SimpleFood:       source(simpleURL),
			PriorityPrefixes: []string{"570-579"},
		},
		RateLimit:   config.RateLimitConfig{Enabled: true, Requests: 3, Window: time.Minute},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
		DedupWindow: time.Second,
	}
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var brandedCalls, simpleCalls int32
	branded := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&brandedCalls, 1)
		if r.URL.Path != "/5701234567899.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":1,"product":{"product_name":"Havregryn","brands":"Ø-mærket","quantity":"1 kg","nutriments":{"energy-kcal_100g":200}}}`))
	}))
	t.Cleanup(branded.Close)
	simple := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&simpleCalls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(simple.Close)

	cfg := testConfig(branded.URL, simple.URL)
	db, err := store.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })

	svc, err := NewServices(cfg, db, cache.NewMemoryStore(), metrics.New(metrics.Config{Environment: "test"}))
	require.NoError(t, err)
	router, err := SetupRouter(cfg, svc)
	require.NoError(t, err)

	env := &testEnv{router: router, brandedCalls: &brandedCalls, simpleCalls: &simpleCalls}
	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password1", "confirmation": "password1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	env.token = sess.Token
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestIngredientAndRecipeFlow(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/ingredients", map[string]interface{}{
		"name": "Oats", "barcode": "5701234567899", "quantity": 100, "quantity_unit": "g", "price": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	oats := decode(t, rec)["ingredient"].(map[string]interface{})
	assert.Equal(t, 200.0, oats["calories"])
	assert.Equal(t, "high", oats["nutrition_confidence"])

	rec = env.do(t, http.MethodPost, "/api/v1/ingredients", map[string]interface{}{
		"name": "Salt", "quantity": 1, "quantity_unit": "kg", "price": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	salt := decode(t, rec)["ingredient"].(map[string]interface{})
	assert.Nil(t, salt["calories"])
	assert.Equal(t, int32(1), atomic.LoadInt32(env.simpleCalls))

	recipeBody := map[string]interface{}{
		"name": "Porridge", "servings": 1,
		"ingredients": []map[string]interface{}{
			{"ingredient_id": oats["id"], "quantity": 50, "unit": "g"},
			{"ingredient_id": salt["id"], "quantity": 10, "unit": "g"},
		},
	}
	rec = env.do(t, http.MethodPost, "/api/v1/recipes", recipeBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	recipeID := created["recipe"].(map[string]interface{})["id"]

	rec = env.do(t, http.MethodPost, "/api/v1/recipes", recipeBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "identical POST inside the dedup window")

	rec = env.do(t, http.MethodGet, "/api/v1/recipes/"+jsonID(recipeID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode(t, rec)["summary"].(map[string]interface{})
	assert.InDelta(t, 1.04, summary["total_cost"].(float64), 1e-9)
	assert.InDelta(t, 0.5, summary["completeness"].(float64), 1e-9)
	calories := summary["nutrients"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "calories", calories["nutrient"])
	assert.InDelta(t, 100.0, calories["total"].(float64), 1e-9)

	rec = env.do(t, http.MethodDelete, "/api/v1/ingredients/"+jsonID(oats["id"]), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/ingredients/"+jsonID(oats["id"])+"/recipes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["count"])

	rec = env.do(t, http.MethodDelete, "/api/v1/recipes/"+jsonID(recipeID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/v1/ingredients/"+jsonID(oats["id"]), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func jsonID(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestValidationErrorsMapToStatus(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/ingredients", map[string]interface{}{
		"name": "Bad", "barcode": "5701234567890", "quantity": 1, "quantity_unit": "g", "price": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BARCODE", decode(t, rec)["code"])

	rec = env.do(t, http.MethodPost, "/api/v1/recipes", map[string]interface{}{"name": "Zero", "servings": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SERVINGS", decode(t, rec)["code"])

	rec = env.do(t, http.MethodGet, "/api/v1/ingredients/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/recipes/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := setupEnv(t)
	env.token = ""

	rec := env.do(t, http.MethodGet, "/api/v1/ingredients", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.token = "not-a-jwt"
	rec = env.do(t, http.MethodGet, "/api/v1/recipes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLookupIsRateLimited(t *testing.T) {
	env := setupEnv(t)

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodGet, "/api/v1/ingredients/lookup?barcode=5701234567899", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(env.brandedCalls), "later lookups are served from cache")

	rec := env.do(t, http.MethodGet, "/api/v1/ingredients/lookup?barcode=5701234567899", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestReferenceAndOperationalRoutes(t *testing.T) {
	env := setupEnv(t)
	env.do(t, http.MethodGet, "/api/v1/ingredients/lookup?barcode=5701234567899", nil)

	rec := env.do(t, http.MethodGet, "/api/v1/barcodes/5701234567899", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "EAN-13", body["format"])
	assert.Equal(t, true, body["priority_region"])

	rec = env.do(t, http.MethodGet, "/api/v1/units", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"per kg"`)

	rec = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "cache")

	rec = env.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "nutrition_source_lookups_total"))
	assert.True(t, strings.Contains(rec.Body.String(), `outcome="found"`))
}
