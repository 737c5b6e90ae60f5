// Package store persists users, ingredients and recipes with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-budget/internal/infrastructure/config"
	"food-budget/internal/pkg/common"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound 資料不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 違反唯一性
	ErrDuplicate = errors.New("duplicate record")
)

// Open 依設定開啟 sqlite 或 postgres
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	common.LogInfo("資料庫已連線", zap.String("driver", cfg.Driver))
	return db, nil
}

// OpenInMemory 開啟已遷移的記憶體 sqlite，name 區隔不同連線
func OpenInMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(name))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Models 所有需要遷移的模型
func Models() []interface{} {
	return []interface{}{&User{}, &Ingredient{}, &Recipe{}, &RecipeIngredient{}}
}

// Migrate 自動遷移資料表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// Reset 刪除並重建所有資料表
func Reset(db *gorm.DB) error {
	models := Models()
	// 反向刪除以符合外鍵順序
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("drop table failed: %w", err)
		}
	}
	return Migrate(db)
}

// Ping 檢查資料庫連線
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// TableStatus 每個資料表的筆數
type TableStatus struct {
	Table  string
	Exists bool
	Rows   int64
}

// Status 列出資料表狀態
func Status(ctx context.Context, db *gorm.DB) ([]TableStatus, error) {
	var out []TableStatus
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		st := TableStatus{Table: stmt.Schema.Table, Exists: db.Migrator().HasTable(m)}
		if st.Exists {
			if err := db.WithContext(ctx).Model(m).Count(&st.Rows).Error; err != nil {
				return nil, err
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// translate 將 gorm 錯誤轉成本套件的錯誤
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
