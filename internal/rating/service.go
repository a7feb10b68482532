// Package rating はレシピ評価の登録と集計を提供する。
package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/flavorshare/internal/metrics"
	"github.com/hitoshi/flavorshare/internal/model"
	"github.com/hitoshi/flavorshare/internal/repository"
)

// 評価登録結果のメッセージ
const (
	MessageSubmitted = "Rating submitted successfully"
	MessageUpdated   = "Rating updated successfully"
)

// Result は評価登録後にクライアントへ返す集計値。
type Result struct {
	Message      string
	NewRating    float64 // 0.5刻みに丸めた平均
	ReviewsCount int
	Created      bool
}

// Service は評価のサービス層。
type Service struct {
	ratingRepo repository.RatingRepository
	metrics    metrics.Recorder
}

// NewService はServiceを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewService(ratingRepo repository.RatingRepository, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		ratingRepo: ratingRepo,
		metrics:    recorder,
	}
}

// Rate はレシピに評価を登録する。同じユーザーの既存評価は上書きする。
// 検証に失敗した場合は何も書き込まない。
func (s *Service) Rate(ctx context.Context, identity model.Identity, recipeID int64, score int) (*Result, error) {
	if !identity.Authenticated() {
		return nil, model.NewUnauthorizedError("Please login to rate recipes")
	}
	if recipeID <= 0 {
		return nil, model.NewInvalidRecipeIDError()
	}
	if score < model.MinRatingScore || score > model.MaxRatingScore {
		return nil, model.NewInvalidRatingError(score)
	}

	res, err := s.ratingRepo.Upsert(ctx, recipeID, identity.UserID, score)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, model.NewRecipeNotFoundError()
		}
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	s.metrics.RecordRating(res.Created)
	slog.Info("recipe rated",
		slog.Int64("recipe_id", recipeID),
		slog.Int64("user_id", identity.UserID),
		slog.Int("rating", score),
		slog.Bool("created", res.Created),
	)

	msg := MessageUpdated
	if res.Created {
		msg = MessageSubmitted
	}
	return &Result{
		Message:      msg,
		NewRating:    res.Aggregate.DisplayRating(),
		ReviewsCount: res.Aggregate.Count,
		Created:      res.Created,
	}, nil
}
