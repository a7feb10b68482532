package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/flavorshare/internal/middleware"
	"github.com/hitoshi/flavorshare/internal/model"
)

// RatingServiceInterface は評価ハンドラーが必要とするサービスインターフェース。
type RatingServiceInterface interface {
	// RateRecipe はレシピに評価を登録または更新し、更新後の集計を返す。
	RateRecipe(ctx context.Context, identity model.Identity, recipeID int64, score int) (*rateResponse, error)
}

// RatingHandler はレシピ評価のHTTPハンドラー。
type RatingHandler struct {
	service RatingServiceInterface
}

// NewRatingHandler はRatingHandlerを生成する。
func NewRatingHandler(service RatingServiceInterface) *RatingHandler {
	return &RatingHandler{service: service}
}

type rateRequest struct {
	RecipeID looseInt `json:"recipe_id"`
	Rating   wholeInt `json:"rating"`
}

// rateResponse は評価登録のAPIレスポンス。
type rateResponse struct {
	envelope
	NewRating    float64 `json:"new_rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// Rate はレシピ評価を処理する。
// POST /api/recipes/rate {"recipe_id": n, "rating": 1-5}
func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	resp, err := h.service.RateRecipe(r.Context(), identity, int64(req.RecipeID), int(req.Rating))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	resp.Success = true
	writeJSON(w, http.StatusOK, resp)
}
