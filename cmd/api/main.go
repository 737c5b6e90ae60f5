package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-budget/internal/api"
	"food-budget/internal/core/nutrition/cache"
	"food-budget/internal/infrastructure/config"
	"food-budget/internal/infrastructure/metrics"
	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if cfg.Auth.JWTSecret == "" {
		// 開發環境每次啟動產生新的密鑰，重啟後舊權杖失效
		cfg.Auth.JWTSecret = uuid.NewString()
		common.LogWarn("JWT secret not configured, using an ephemeral secret", zap.String("env", cfg.App.Env))
	}

	common.LogInfo("載入設定",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("branded_source", cfg.Nutrition.Branded.BaseURL),
		zap.String("simple_food_source", cfg.Nutrition.SimpleFood.BaseURL),
		zap.String("jwt_secret", config.MaskSecret(cfg.Auth.JWTSecret)),
	)

	db, err := store.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer store.Close(db)
	if err := store.Migrate(db); err != nil {
		common.LogFatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化營養快取
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	nutritionCache, err := cache.New(initCtx, cfg.Cache)
	cancelInit()
	if err != nil {
		common.LogFatal("Failed to initialize nutrition cache", zap.Error(err))
	}
	defer nutritionCache.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metrics.Config{ServiceName: cfg.App.Name, Environment: cfg.App.Env})
	}

	svc, err := api.NewServices(cfg, db, nutritionCache, m)
	if err != nil {
		common.LogFatal("Failed to initialize services", zap.Error(err))
	}

	router, err := api.SetupRouter(cfg, svc)
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
