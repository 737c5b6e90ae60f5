// Package api wires services, middleware and routes into the gin engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"food-budget/internal/api/handlers/account"
	"food-budget/internal/api/handlers/catalog"
	"food-budget/internal/api/handlers/health"
	ingredientHandler "food-budget/internal/api/handlers/ingredient"
	recipeHandler "food-budget/internal/api/handlers/recipe"
	"food-budget/internal/api/middleware"
	"food-budget/internal/core/auth"
	"food-budget/internal/core/barcode"
	"food-budget/internal/core/ingredient"
	"food-budget/internal/core/nutrition"
	"food-budget/internal/core/nutrition/cache"
	"food-budget/internal/core/nutrition/reader"
	"food-budget/internal/core/recipe"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/infrastructure/metrics"
	"food-budget/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 路由所需的服務
type Services struct {
	DB          *gorm.DB
	Auth        *auth.Service
	Ingredients *ingredient.Service
	Recipes     *recipe.Service
	Region      *barcode.RegionPolicy
	CacheStats  cache.Stats
	Metrics     *metrics.Metrics
}

// NewServices 依設定組裝來源讀取器、解析器與業務服務
func NewServices(cfg *config.Config, db *gorm.DB, nutritionCache nutrition.Cache, m *metrics.Metrics) (*Services, error) {
	region, err := barcode.NewRegionPolicy(cfg.Nutrition.PriorityPrefixes)
	if err != nil {
		return nil, fmt.Errorf("invalid priority prefixes: %w", err)
	}

	// 停用的來源保持 nil 介面，解析器會略過
	var branded, simpleFood nutrition.Reader
	if cfg.Nutrition.Branded.Enabled {
		branded = reader.NewBrandedReader(cfg.Nutrition.Branded)
	}
	if cfg.Nutrition.SimpleFood.Enabled {
		simpleFood = reader.NewSimpleFoodReader(cfg.Nutrition.SimpleFood)
	}

	opts := []nutrition.Option{
		nutrition.WithRegionPolicy(region),
		nutrition.WithSingleFlight(cfg.Nutrition.SingleFlight),
	}
	var aggregationObserver recipe.Observer
	if m != nil {
		opts = append(opts, nutrition.WithObserver(m))
		aggregationObserver = m
	}
	resolver := nutrition.NewResolver(nutritionCache, nutrition.DefaultStrategies(branded, simpleFood), opts...)

	recipes := recipe.NewService(db, aggregationObserver)
	svc := &Services{
		DB:          db,
		Auth:        auth.NewService(db, auth.NewTokenService(cfg.Auth)),
		Ingredients: ingredient.NewService(db, resolver, recipes),
		Recipes:     recipes,
		Region:      region,
		Metrics:     m,
	}
	if stats, ok := nutritionCache.(cache.Stats); ok {
		svc.CacheStats = stats
	}

	common.LogInfo("Services initialized",
		zap.Bool("branded_source", branded != nil),
		zap.Bool("simple_food_source", simpleFood != nil),
		zap.Bool("single_flight", cfg.Nutrition.SingleFlight),
		zap.Strings("priority_prefixes", cfg.Nutrition.PriorityPrefixes),
	)
	return svc, nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc *Services) (*gin.Engine, error) {
	if svc == nil || svc.DB == nil || svc.Auth == nil || svc.Ingredients == nil || svc.Recipes == nil {
		return nil, errors.New("router requires initialized services")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(contextMiddleware(cfg, svc))

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	if cfg.Metrics.Enabled && svc.Metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(svc.Metrics.Handler()))
	}

	accounts := account.NewHandler(svc.Auth)
	ingredients := ingredientHandler.NewHandler(svc.Ingredients)
	recipes := recipeHandler.NewHandler(svc.Recipes)
	refs := catalog.NewHandler(svc.Region)

	dedup := middleware.NewDeduplicator(cfg.DedupWindow).Middleware()
	lookupLimit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		lookupLimit = middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/units", refs.Units)
		v1.GET("/barcodes/:code", refs.Barcode)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", dedup, accounts.Register)
			authGroup.POST("/login", accounts.Login)
		}

		private := v1.Group("")
		private.Use(middleware.Auth(svc.Auth.Tokens()))
		{
			private.GET("/me", accounts.Me)

			ing := private.Group("/ingredients")
			{
				ing.GET("", ingredients.List)
				ing.POST("", dedup, ingredients.Create)
				ing.GET("/lookup", lookupLimit, ingredients.Lookup)
				ing.GET("/:id", ingredients.Get)
				ing.PUT("/:id", ingredients.Update)
				ing.DELETE("/:id", ingredients.Delete)
				ing.POST("/:id/rescan", lookupLimit, ingredients.Rescan)
				ing.GET("/:id/recipes", ingredients.Recipes)
			}

			rec := private.Group("/recipes")
			{
				rec.GET("", recipes.List)
				rec.POST("", dedup, recipes.Create)
				rec.GET("/:id", recipes.Get)
				rec.PUT("/:id", recipes.Update)
				rec.DELETE("/:id", recipes.Delete)
			}
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// contextMiddleware 設置請求超時並注入設定與共用資源
func contextMiddleware(cfg *config.Config, svc *Services) gin.HandlerFunc {
	timeout := cfg.Server.RequestTimeout
	return func(c *gin.Context) {
		if timeout > 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
		}

		c.Set("config", cfg)
		c.Set("db", svc.DB)
		if svc.CacheStats != nil {
			c.Set("cache_stats", svc.CacheStats)
		}

		c.Next()

		if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:      common.ErrCodeGatewayTimeout,
				Message:   "request timeout",
				RequestID: requestid.Get(c),
			})
		}
	}
}
