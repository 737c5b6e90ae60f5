package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Nutrition   NutritionConfig `mapstructure:"nutrition"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogFile     string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig 資料庫設定
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig 登入權杖設定
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// SourceConfig 單一營養資料來源設定
type SourceConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// NutritionConfig 營養資料解析設定
type NutritionConfig struct {
	Branded          SourceConfig `mapstructure:"branded"`
	SimpleFood       SourceConfig `mapstructure:"simple_food"`
	PriorityPrefixes []string     `mapstructure:"priority_prefixes"` // 例如 "570-579"
	SingleFlight     bool         `mapstructure:"single_flight"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"` // 空值表示每個程序獨立命名空間
}

// CacheConfig 營養快取配置
type CacheConfig struct {
	Backend string      `mapstructure:"backend"` // memory | redis
	Redis   RedisConfig `mapstructure:"redis"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// MetricsConfig Prometheus 指標設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	_ = v.BindEnv("database.driver", "APP_DATABASE_DRIVER", "DB_DRIVER")
	_ = v.BindEnv("database.dsn", "APP_DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "APP_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("cache.backend", "APP_CACHE_BACKEND", "CACHE_BACKEND")
	_ = v.BindEnv("cache.redis.addr", "APP_CACHE_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("rate_limit.enabled", "APP_RATE_LIMIT_ENABLED", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "APP_RATE_LIMIT_REQUESTS", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "APP_RATE_LIMIT_WINDOW", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "APP_DEDUP_WINDOW", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "APP_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("nutrition.single_flight", "APP_NUTRITION_SINGLE_FLIGHT", "NUTRITION_SINGLE_FLIGHT")

	// 選用的 config.yaml
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 逗號分隔的環境變數
	if len(config.Nutrition.PriorityPrefixes) == 1 && strings.Contains(config.Nutrition.PriorityPrefixes[0], ",") {
		config.Nutrition.PriorityPrefixes = splitList(config.Nutrition.PriorityPrefixes[0])
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskSecret 遮罩密鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "food-budget")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 資料庫設定
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "food_budget.db")

	// 登入設定
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "food-budget")
	v.SetDefault("auth.token_ttl", "24h")

	// 營養來源設定
	v.SetDefault("nutrition.branded.enabled", true)
	v.SetDefault("nutrition.branded.base_url", "https://world.openfoodfacts.org/api/v0/product")
	v.SetDefault("nutrition.branded.user_agent", "MyFoodBudget/0.1 (https://github.com/user/myfoodbudget)")
	v.SetDefault("nutrition.branded.timeout", "10s")
	v.SetDefault("nutrition.simple_food.enabled", true)
	v.SetDefault("nutrition.simple_food.base_url", "https://api.mtbonde.dev/api/nutrition")
	v.SetDefault("nutrition.simple_food.user_agent", "MyFoodBudget/0.1 (https://github.com/user/myfoodbudget)")
	v.SetDefault("nutrition.simple_food.timeout", "10s")
	v.SetDefault("nutrition.priority_prefixes", []string{"570-579"})
	v.SetDefault("nutrition.single_flight", false)

	// 快取設定
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.namespace", "")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// 指標設定
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/app.log")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if config.App.Env == "production" && config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required in production")
	}
	if config.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid token ttl")
	}

	for name, src := range map[string]SourceConfig{"branded": config.Nutrition.Branded, "simple_food": config.Nutrition.SimpleFood} {
		if !src.Enabled {
			continue
		}
		if src.BaseURL == "" {
			return fmt.Errorf("nutrition.%s.base_url is required", name)
		}
		if src.Timeout <= 0 {
			return fmt.Errorf("invalid nutrition.%s.timeout", name)
		}
	}

	switch config.Cache.Backend {
	case "memory":
	case "redis":
		if config.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", config.Cache.Backend)
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 {
			return fmt.Errorf("invalid rate limit requests")
		}
		if config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window")
		}
	}

	return nil
}
