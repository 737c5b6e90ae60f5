package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"food-budget/internal/infrastructure/store"
	"food-budget/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 註冊
type RegisterInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

// LoginInput 登入
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session 登入結果
type Session struct {
	User      *store.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Service 使用者與登入服務
type Service struct {
	users  *store.UserRepository
	tokens TokenService
	cost   int
}

// NewService 創建登入服務
func NewService(db *gorm.DB, tokens TokenService) *Service {
	return &Service{users: store.NewUserRepository(db), tokens: tokens, cost: bcrypt.DefaultCost}
}

// WithHashCost 調整 bcrypt 成本（測試用較低成本）
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// Tokens 權杖服務
func (s *Service) Tokens() TokenService { return s.tokens }

func validateRegister(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Username == "" || in.Email == "" || in.Password == "" || in.Confirmation == "" {
		return common.NewValidationError("all fields are required")
	}
	if len(in.Username) < 3 || len(in.Username) > 30 {
		return common.NewFieldError("username", "must be 3-30 chars")
	}
	if !strings.Contains(in.Email, "@") || len(in.Email) > 255 {
		return common.NewFieldError("email", "invalid email")
	}
	if len(in.Password) < 8 || len(in.Password) > 72 {
		return common.NewFieldError("password", "must be 8-72 chars")
	}
	if in.Password != in.Confirmation {
		return common.NewFieldError("confirmation", "passwords must match")
	}
	return nil
}

// Register 註冊並直接登入
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := validateRegister(&in); err != nil {
		return nil, err
	}

	if u, _ := s.users.GetByUsername(ctx, in.Username); u != nil {
		return nil, common.ErrConflict.WithMessage("username or email already exists")
	}
	if u, _ := s.users.GetByEmail(ctx, in.Email); u != nil {
		return nil, common.ErrConflict.WithMessage("username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}

	u := &store.User{Username: in.Username, Email: in.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, common.ErrConflict.WithMessage("username or email already exists")
		}
		return nil, common.ErrInternalError.Wrap(err)
	}

	common.LogInfo("使用者已註冊", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return s.session(u)
}

// Login 以使用者名稱與密碼登入
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, common.NewValidationError("must provide username and password")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, common.ErrInternalError.Wrap(err)
		}
		return nil, common.ErrUnauthorized.WithMessage("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, common.ErrUnauthorized.WithMessage("invalid username or password")
	}
	return s.session(u)
}

func (s *Service) session(u *store.User) (*Session, error) {
	token, exp, err := s.tokens.Sign(u.ID, u.Username)
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}

// CurrentUser 依權杖內容取得使用者
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*store.User, error) {
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return u, nil
}
