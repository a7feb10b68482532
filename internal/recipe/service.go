// Package recipe はレシピの一覧・詳細・投稿・注目設定・削除のドメインロジックを提供する。
package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hitoshi/flavorshare/internal/metrics"
	"github.com/hitoshi/flavorshare/internal/model"
	"github.com/hitoshi/flavorshare/internal/repository"
	"github.com/hitoshi/flavorshare/internal/security"
	"github.com/hitoshi/flavorshare/internal/validation"
)

// ImageStore は投稿画像の保存先のインターフェース。
type ImageStore interface {
	Save(filename string, size int64, r io.Reader) (string, error)
	Remove(publicPath string) error
}

// ImageUpload はフォームから受け取った画像ファイル。
type ImageUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// CreateInput はレシピ投稿の入力。
type CreateInput struct {
	Title       string             `json:"title" validate:"required,max=255"`
	Description string             `json:"description" validate:"max=5000"`
	CategoryID  int64              `json:"category" validate:"required,gt=0"`
	Ingredients []model.Ingredient `json:"ingredients" validate:"required,min=1,dive"`
	Steps       []string           `json:"steps" validate:"required,min=1,dive,required"`
	Image       *ImageUpload       `json:"-" validate:"-"`
}

// Service はレシピのサービス層。
type Service struct {
	recipeRepo   repository.RecipeRepository
	categoryRepo repository.CategoryRepository
	images       ImageStore
	sanitizer    security.TextSanitizer
	metrics      metrics.Recorder
}

// NewService はServiceを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewService(
	recipeRepo repository.RecipeRepository,
	categoryRepo repository.CategoryRepository,
	images ImageStore,
	sanitizer security.TextSanitizer,
	recorder metrics.Recorder,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		recipeRepo:   recipeRepo,
		categoryRepo: categoryRepo,
		images:       images,
		sanitizer:    sanitizer,
		metrics:      recorder,
	}
}

// List は一覧クエリに一致するレシピを1ページ分、ページ情報付きで返す。
// 件数と行は同じ条件で取得するため、total_recipesと返却行は常に整合する。
func (s *Service) List(ctx context.Context, q model.ListingQuery) (*model.RecipePage, error) {
	q = q.Normalize()

	total, err := s.recipeRepo.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	pagination := model.NewPagination(q, total)
	recipes := []model.RecipeSummary{}
	if q.Page <= pagination.TotalPages {
		recipes, err = s.recipeRepo.List(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list recipes: %w", err)
		}
	}

	s.metrics.RecordListing(q.Popular, len(recipes))
	return &model.RecipePage{
		Recipes:    recipes,
		Pagination: pagination,
	}, nil
}

// Get はレシピ詳細を評価集計付きで返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.RecipeDetail, error) {
	if id <= 0 {
		return nil, model.NewInvalidRecipeIDError()
	}

	detail, err := s.recipeRepo.FindDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	if detail == nil {
		return nil, model.NewRecipeNotFoundError()
	}
	return detail, nil
}

// ListCategories は全カテゴリをレシピ数付きで返す。
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create はレシピを投稿する。テキストはサニタイズしてから検証する。
// 画像がある場合は先に保存し、DB登録に失敗したら削除する。
func (s *Service) Create(ctx context.Context, identity model.Identity, in CreateInput) (*model.Recipe, error) {
	if !identity.Authenticated() {
		return nil, model.NewUnauthorizedError("Please login to submit a recipe")
	}

	in = s.sanitize(in)
	if in.Title == "" || in.CategoryID == 0 || len(in.Ingredients) == 0 || len(in.Steps) == 0 {
		return nil, model.NewValidationError("Title, category, ingredients and steps are required")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	exists, err := s.categoryRepo.Exists(ctx, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}
	if !exists {
		return nil, model.NewCategoryNotFoundError()
	}

	var imagePath string
	if in.Image != nil {
		imagePath, err = s.images.Save(in.Image.Filename, in.Image.Size, in.Image.Body)
		if err != nil {
			return nil, err
		}
	}

	recipe := &model.Recipe{
		Title:       in.Title,
		Description: in.Description,
		Ingredients: in.Ingredients,
		Steps:       in.Steps,
		Image:       imagePath,
		UserID:      identity.UserID,
		CategoryID:  in.CategoryID,
	}
	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		if imagePath != "" {
			if rmErr := s.images.Remove(imagePath); rmErr != nil {
				slog.Warn("failed to remove orphan image",
					slog.String("path", imagePath),
					slog.String("error", rmErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.metrics.RecordRecipeCreated()
	slog.Info("recipe created",
		slog.Int64("recipe_id", recipe.ID),
		slog.Int64("user_id", identity.UserID),
	)
	return recipe, nil
}

// Feature はレシピを注目レシピに設定する。作成者本人のみ実行できる。
func (s *Service) Feature(ctx context.Context, identity model.Identity, id int64) error {
	if !identity.Authenticated() {
		return model.NewUnauthorizedError("You must be logged in to feature a recipe")
	}
	if id <= 0 {
		return model.NewValidationError("Recipe ID is required")
	}

	recipe, err := s.recipeRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find recipe: %w", err)
	}
	if recipe == nil {
		return model.NewRecipeNotFoundError()
	}
	if recipe.UserID != identity.UserID {
		return model.NewForbiddenError("You can only feature your own recipes")
	}

	if err := s.recipeRepo.SetFeatured(ctx, id, true); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return model.NewRecipeNotFoundError()
		}
		return fmt.Errorf("failed to feature recipe: %w", err)
	}

	slog.Info("recipe featured", slog.Int64("recipe_id", id))
	return nil
}

// Delete はレシピと評価を削除し、保存済みの画像も削除する。
// 作成者本人と管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, identity model.Identity, id int64) error {
	if !identity.Authenticated() {
		return model.NewUnauthorizedError("Please login to delete recipes")
	}
	if id <= 0 {
		return model.NewInvalidRecipeIDError()
	}

	recipe, err := s.recipeRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find recipe: %w", err)
	}
	if recipe == nil {
		return model.NewRecipeNotFoundError()
	}
	if recipe.UserID != identity.UserID && !identity.IsAdmin {
		return model.NewForbiddenError("You do not have permission to delete this recipe")
	}

	imagePath, err := s.recipeRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return model.NewRecipeNotFoundError()
		}
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	// 画像削除の失敗はレシピ削除の結果に影響させない
	if imagePath != "" {
		if err := s.images.Remove(imagePath); err != nil {
			slog.Warn("failed to remove recipe image",
				slog.Int64("recipe_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.RecordRecipeDeleted()
	slog.Info("recipe deleted",
		slog.Int64("recipe_id", id),
		slog.Int64("user_id", identity.UserID),
		slog.Bool("by_admin", recipe.UserID != identity.UserID),
	)
	return nil
}

// sanitize はテキスト項目からHTMLを取り除き、空の材料・手順を除く。
func (s *Service) sanitize(in CreateInput) CreateInput {
	in.Title = s.sanitizer.Sanitize(in.Title)
	in.Description = s.sanitizer.Sanitize(in.Description)
	in.Steps = security.SanitizeAll(s.sanitizer, in.Steps)

	ingredients := make([]model.Ingredient, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		name := s.sanitizer.Sanitize(ing.Name)
		if name == "" {
			continue
		}
		ingredients = append(ingredients, model.Ingredient{
			Amount: s.sanitizer.Sanitize(ing.Amount),
			Name:   name,
		})
	}
	in.Ingredients = ingredients
	return in
}
