// Package newsletter はニュースレター購読の登録を提供する。
package newsletter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/flavorshare/internal/model"
	"github.com/hitoshi/flavorshare/internal/repository"
	"github.com/hitoshi/flavorshare/internal/validation"
)

// Service はニュースレター購読のサービス層。
type Service struct {
	repo repository.NewsletterRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.NewsletterRepository) *Service {
	return &Service{repo: repo}
}

// Subscribe はメールアドレスを購読者として登録する。
// 登録済みのアドレスでも成功として扱う。
func (s *Service) Subscribe(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !validation.Email(email) {
		return model.NewInvalidEmailError()
	}

	created, err := s.repo.Subscribe(ctx, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	slog.Info("newsletter subscription", slog.Bool("created", created))
	return nil
}
