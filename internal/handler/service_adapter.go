package handler

import (
	"context"

	"github.com/hitoshi/flavorshare/internal/auth"
	"github.com/hitoshi/flavorshare/internal/model"
	"github.com/hitoshi/flavorshare/internal/newsletter"
	"github.com/hitoshi/flavorshare/internal/rating"
	"github.com/hitoshi/flavorshare/internal/recipe"
)

// RecipeServiceAdapter は recipe.Service を RecipeServiceInterface に適合させるアダプタ。
type RecipeServiceAdapter struct {
	svc *recipe.Service
}

// NewRecipeServiceAdapter はRecipeServiceAdapterを生成する。
func NewRecipeServiceAdapter(svc *recipe.Service) *RecipeServiceAdapter {
	return &RecipeServiceAdapter{svc: svc}
}

// ListRecipes はレシピ一覧をhandlerレスポンス型で返す。
func (a *RecipeServiceAdapter) ListRecipes(ctx context.Context, q model.ListingQuery) (*recipeListResponse, error) {
	page, err := a.svc.List(ctx, q)
	if err != nil {
		return nil, err
	}
	resp := toRecipeListResponse(page)
	return &resp, nil
}

// GetRecipe はレシピ詳細をhandlerレスポンス型で返す。
func (a *RecipeServiceAdapter) GetRecipe(ctx context.Context, id int64) (*recipeDetailResponse, error) {
	detail, err := a.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &recipeDetailResponse{Recipe: toRecipeDetail(detail)}, nil
}

// CreateRecipe はhandlerの入力をrecipe.CreateInputに変換して投稿する。
func (a *RecipeServiceAdapter) CreateRecipe(ctx context.Context, identity model.Identity, in recipeInput) (int64, error) {
	input := recipe.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  int64(in.CategoryID),
		Ingredients: in.Ingredients,
		Steps:       in.Steps,
	}
	if in.Image != nil {
		input.Image = &recipe.ImageUpload{
			Filename: in.Image.Filename,
			Size:     in.Image.Size,
			Body:     in.Image.Body,
		}
	}

	created, err := a.svc.Create(ctx, identity, input)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// FeatureRecipe はレシピをおすすめに設定する。
func (a *RecipeServiceAdapter) FeatureRecipe(ctx context.Context, identity model.Identity, id int64) error {
	return a.svc.Feature(ctx, identity, id)
}

// DeleteRecipe はレシピを削除する。
func (a *RecipeServiceAdapter) DeleteRecipe(ctx context.Context, identity model.Identity, id int64) error {
	return a.svc.Delete(ctx, identity, id)
}

// ListCategories はカテゴリ一覧をhandlerレスポンス型で返す。
func (a *RecipeServiceAdapter) ListCategories(ctx context.Context) ([]categoryResponse, error) {
	categories, err := a.svc.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		results[i] = categoryResponse{
			ID:    c.ID,
			Name:  c.Name,
			Image: c.Image,
			Count: c.RecipeCount,
		}
	}
	return results, nil
}

// toRecipeListResponse はドメインの一覧結果をhandlerのレスポンス型に変換する。
// 評価値は詳細・評価登録と同じDisplayRatingで丸める。
func toRecipeListResponse(page *model.RecipePage) recipeListResponse {
	recipes := make([]recipeSummaryResponse, len(page.Recipes))
	for i, s := range page.Recipes {
		recipes[i] = recipeSummaryResponse{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Image:       s.Image,
			CreatedAt:   s.CreatedAt,
			Category:    s.Category,
			Author:      s.Author,
			Reviews:     s.Aggregate.Count,
			Rating:      s.Aggregate.DisplayRating(),
		}
	}
	return recipeListResponse{
		Recipes: recipes,
		Pagination: paginationResponse{
			CurrentPage:  page.Pagination.CurrentPage,
			TotalPages:   page.Pagination.TotalPages,
			TotalRecipes: page.Pagination.TotalRecipes,
		},
	}
}

func toRecipeDetail(d *model.RecipeDetail) recipeDetail {
	ingredients := d.Ingredients
	if ingredients == nil {
		ingredients = []model.Ingredient{}
	}
	steps := d.Steps
	if steps == nil {
		steps = []string{}
	}
	return recipeDetail{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Ingredients: ingredients,
		Steps:       steps,
		Image:       d.Image,
		UserID:      d.UserID,
		CategoryID:  d.CategoryID,
		Featured:    d.Featured,
		CreatedAt:   d.CreatedAt,
		Category:    d.Category,
		Author:      d.Author,
		Reviews:     d.Aggregate.Count,
		Rating:      d.Aggregate.DisplayRating(),
	}
}

// RatingServiceAdapter は rating.Service を RatingServiceInterface に適合させるアダプタ。
type RatingServiceAdapter struct {
	svc *rating.Service
}

// NewRatingServiceAdapter はRatingServiceAdapterを生成する。
func NewRatingServiceAdapter(svc *rating.Service) *RatingServiceAdapter {
	return &RatingServiceAdapter{svc: svc}
}

// RateRecipe は評価を登録し、集計結果をhandlerレスポンス型で返す。
func (a *RatingServiceAdapter) RateRecipe(ctx context.Context, identity model.Identity, recipeID int64, score int) (*rateResponse, error) {
	res, err := a.svc.Rate(ctx, identity, recipeID, score)
	if err != nil {
		return nil, err
	}
	return &rateResponse{
		envelope:     ok(res.Message),
		NewRating:    res.NewRating,
		ReviewsCount: res.ReviewsCount,
	}, nil
}

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はユーザーを登録する。
func (a *AuthServiceAdapter) Register(ctx context.Context, name, email, password, confirmPassword string) (*model.User, error) {
	return a.svc.Register(ctx, auth.RegisterInput{
		Name:            name,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirmPassword,
	})
}

// Login はログインしセッションを発行する。
func (a *AuthServiceAdapter) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	return a.svc.Login(ctx, auth.LoginInput{Email: email, Password: password})
}

// Logout はセッションを破棄する。
func (a *AuthServiceAdapter) Logout(ctx context.Context, sessionID string) error {
	return a.svc.Logout(ctx, sessionID)
}

// CurrentUser はセッションのユーザーを返す。
func (a *AuthServiceAdapter) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return a.svc.CurrentUser(ctx, sessionID)
}

// コンパイル時にインターフェース実装を検証する
var (
	_ RecipeServiceInterface = (*RecipeServiceAdapter)(nil)
	_ RatingServiceInterface = (*RatingServiceAdapter)(nil)
	_ AuthServiceInterface   = (*AuthServiceAdapter)(nil)

	_ NewsletterServiceInterface = (*newsletter.Service)(nil)
)
