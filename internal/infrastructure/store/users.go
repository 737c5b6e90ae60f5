package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// UserRepository 使用者資料存取
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 創建使用者資料存取
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 新增使用者
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

// GetByID 以 ID 查詢
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetByUsername 以使用者名稱查詢
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetByEmail 以 email 查詢
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
