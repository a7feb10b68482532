// Package auth はメールアドレスとパスワードによる認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/flavorshare/internal/metrics"
	"github.com/hitoshi/flavorshare/internal/model"
	"github.com/hitoshi/flavorshare/internal/repository"
	"github.com/hitoshi/flavorshare/internal/validation"
)

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=100"`
	Password        string `json:"password" validate:"required,max=72"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginInput はログインの入力。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int     // セッション有効期間（秒）
	AdminUserIDs  []int64 // 管理者として扱うユーザーID
	BcryptCost    int     // 0の場合はbcrypt.DefaultCost
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	metrics     metrics.Recorder
	config      ServiceConfig
	admins      map[int64]bool
	now         func() time.Time
}

// NewService はServiceを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	recorder metrics.Recorder,
	config ServiceConfig,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	admins := make(map[int64]bool, len(config.AdminUserIDs))
	for _, id := range config.AdminUserIDs {
		admins[id] = true
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		metrics:     recorder,
		config:      config,
		admins:      admins,
		now:         time.Now,
	}
}

// Register は新規ユーザーを登録する。登録後のログインは行わない。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		s.metrics.RecordAuthEvent("register", false)
		return nil, model.NewValidationError("All fields are required")
	}
	if err := validation.Struct(in); err != nil {
		s.metrics.RecordAuthEvent("register", false)
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		s.metrics.RecordAuthEvent("register", false)
		return nil, model.NewPasswordMismatchError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordAuthEvent("register", false)
			return nil, model.NewEmailInUseError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordAuthEvent("register", true)
	slog.Info("user registered", slog.Int64("user_id", user.ID))
	return user, nil
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
func (s *Service) Login(ctx context.Context, in LoginInput) (*model.Session, *model.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		s.metrics.RecordAuthEvent("login", false)
		return nil, nil, model.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuthEvent("login", false)
		return nil, nil, model.NewUserNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.metrics.RecordAuthEvent("login", false)
		slog.Warn("login rejected", slog.Int64("user_id", user.ID))
		return nil, nil, model.NewInvalidPasswordError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordAuthEvent("login", true)
	slog.Info("user logged in", slog.Int64("user_id", user.ID))
	return session, user, nil
}

// Logout はセッションを破棄する。セッションIDが空の場合は何もしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.metrics.RecordAuthEvent("logout", true)
	slog.Info("user logged out")
	return nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
// 未ログイン・期限切れの場合はnilを返す（エラーにはしない）。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ResolveIdentity はセッションIDからリクエスト元のIdentityを解決する。
// 無効なセッションの場合はゼロ値のIdentityを返す。
func (s *Service) ResolveIdentity(ctx context.Context, sessionID string) (model.Identity, error) {
	if sessionID == "" {
		return model.Identity{}, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return model.Identity{}, nil
	}

	return model.Identity{UserID: session.UserID, IsAdmin: s.IsAdmin(session.UserID)}, nil
}

// IsAdmin は指定ユーザーが管理者かどうかを返す。
func (s *Service) IsAdmin(userID int64) bool {
	return s.admins[userID]
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID int64) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
