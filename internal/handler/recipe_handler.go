package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/flavorshare/internal/middleware"
	"github.com/hitoshi/flavorshare/internal/model"
)

// multipartMemory はmultipartフォームをメモリに保持する上限。超過分は一時ファイルに書かれる。
const multipartMemory = 8 << 20

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type RecipeServiceInterface interface {
	// ListRecipes は条件に一致するレシピ一覧とページ情報を返す。
	ListRecipes(ctx context.Context, q model.ListingQuery) (*recipeListResponse, error)
	// GetRecipe はレシピ詳細を返す。
	GetRecipe(ctx context.Context, id int64) (*recipeDetailResponse, error)
	// CreateRecipe はレシピを投稿し、採番されたIDを返す。
	CreateRecipe(ctx context.Context, identity model.Identity, in recipeInput) (int64, error)
	// FeatureRecipe は自分のレシピをおすすめに設定する。
	FeatureRecipe(ctx context.Context, identity model.Identity, id int64) error
	// DeleteRecipe はレシピを削除する。
	DeleteRecipe(ctx context.Context, identity model.Identity, id int64) error
	// ListCategories はレシピ件数付きのカテゴリ一覧を返す。
	ListCategories(ctx context.Context) ([]categoryResponse, error)
}

// RecipeHandlerConfig はレシピハンドラーの設定。
type RecipeHandlerConfig struct {
	MaxUploadBytes int64 // リクエストボディ全体の上限
}

// RecipeHandler はレシピ関連のHTTPハンドラー。
type RecipeHandler struct {
	service RecipeServiceInterface
	config  RecipeHandlerConfig
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface, config RecipeHandlerConfig) *RecipeHandler {
	return &RecipeHandler{service: service, config: config}
}

// recipeImage はフォームで受け取った画像ファイル。
type recipeImage struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// recipeInput はレシピ投稿リクエストの内容。
type recipeInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	CategoryID  looseInt           `json:"category"`
	Ingredients []model.Ingredient `json:"ingredients"`
	Steps       []string           `json:"steps"`
	Image       *recipeImage       `json:"-"`
}

// recipeIDRequest はレシピIDのみを持つリクエストボディ。
type recipeIDRequest struct {
	RecipeID looseInt `json:"recipe_id"`
}

// recipeSummaryResponse は一覧の1件。
type recipeSummaryResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	Reviews     int       `json:"reviews"`
	Rating      float64   `json:"rating"`
}

type paginationResponse struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalRecipes int `json:"total_recipes"`
}

// recipeListResponse はレシピ一覧のAPIレスポンス。
type recipeListResponse struct {
	envelope
	Recipes    []recipeSummaryResponse `json:"recipes"`
	Pagination paginationResponse      `json:"pagination"`
}

// recipeDetail はレシピ詳細の本体。
type recipeDetail struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Ingredients []model.Ingredient `json:"ingredients"`
	Steps       []string           `json:"steps"`
	Image       string             `json:"image"`
	UserID      int64              `json:"user_id"`
	CategoryID  int64              `json:"category_id"`
	Featured    bool               `json:"featured"`
	CreatedAt   time.Time          `json:"created_at"`
	Category    string             `json:"category"`
	Author      string             `json:"author"`
	Reviews     int                `json:"reviews"`
	Rating      float64            `json:"rating"`
}

// recipeDetailResponse はレシピ詳細のAPIレスポンス。
type recipeDetailResponse struct {
	envelope
	Recipe recipeDetail `json:"recipe"`
}

type createRecipeResponse struct {
	envelope
	RecipeID int64 `json:"recipe_id"`
}

type categoryResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Count int    `json:"count"`
}

type categoryListResponse struct {
	envelope
	Categories []categoryResponse `json:"categories"`
}

// ListRecipes はレシピ一覧を返す。
// GET /api/recipes?featured=&popular=&category=&q=&limit=&page=
func (h *RecipeHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	q, err := parseListingQuery(r.URL.Query())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp, err := h.service.ListRecipes(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	resp.envelope = ok("")
	writeJSON(w, http.StatusOK, resp)
}

// GetRecipe はパスパラメータのIDでレシピ詳細を返す。
// GET /api/recipes/{id}
func (h *RecipeHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	h.writeDetail(w, r, parseRecipeID(chi.URLParam(r, "id")))
}

// GetRecipeByQuery はクエリパラメータのIDでレシピ詳細を返す。
// GET /api/recipe_detail?id=
func (h *RecipeHandler) GetRecipeByQuery(w http.ResponseWriter, r *http.Request) {
	h.writeDetail(w, r, parseRecipeID(r.URL.Query().Get("id")))
}

func (h *RecipeHandler) writeDetail(w http.ResponseWriter, r *http.Request, id int64) {
	resp, err := h.service.GetRecipe(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	resp.envelope = ok("")
	writeJSON(w, http.StatusOK, resp)
}

// CreateRecipe はレシピ投稿を処理する。
// POST /api/recipes （multipart/form-data または JSON）
func (h *RecipeHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	if limit := h.config.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			handleServiceError(w, r, model.NewImageTooLargeError(limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var in recipeInput
	if isJSONRequest(r) {
		if !decodeJSONBody(w, r, &in) {
			return
		}
	} else {
		form, cleanup, err := readRecipeForm(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		defer cleanup()
		in = form
	}

	id, err := h.service.CreateRecipe(r.Context(), middleware.IdentityFromContext(r.Context()), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createRecipeResponse{
		envelope: ok("Recipe added successfully"),
		RecipeID: id,
	})
}

// FeatureRecipe は自分のレシピをおすすめに設定する。
// POST /api/recipes/feature {"recipe_id": n}
func (h *RecipeHandler) FeatureRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeIDRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	if err := h.service.FeatureRecipe(r.Context(), identity, int64(req.RecipeID)); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recipe successfully featured")
}

// DeleteRecipe はレシピを削除する。
// POST /api/recipes/delete {"recipe_id": n}
func (h *RecipeHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeIDRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	if err := h.service.DeleteRecipe(r.Context(), identity, int64(req.RecipeID)); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recipe deleted successfully")
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *RecipeHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []categoryResponse{}
	}
	writeJSON(w, http.StatusOK, categoryListResponse{
		envelope:   ok(""),
		Categories: categories,
	})
}

// readRecipeForm はmultipartまたはurlencodedのフォームからレシピ入力を組み立てる。
// ingredientsとstepsはJSON配列の文字列として受け取る。
// 返されたcleanupはハンドラー終了時に呼ぶこと。
func readRecipeForm(r *http.Request) (recipeInput, func(), error) {
	cleanup := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return recipeInput{}, cleanup, model.NewImageTooLargeError(maxErr.Limit)
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return recipeInput{}, cleanup, model.NewInvalidRequestError("Request body could not be parsed")
		}
	}
	if r.MultipartForm != nil {
		cleanup = func() { r.MultipartForm.RemoveAll() }
	}

	in := recipeInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if raw := strings.TrimSpace(r.FormValue("category")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			in.CategoryID = looseInt(v)
		}
	}
	if raw := r.FormValue("ingredients"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Ingredients); err != nil {
			return in, cleanup, model.NewValidationError("Ingredients must be a JSON array")
		}
	}
	if raw := r.FormValue("steps"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Steps); err != nil {
			return in, cleanup, model.NewValidationError("Steps must be a JSON array")
		}
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		prev := cleanup
		cleanup = func() {
			file.Close()
			prev()
		}
		in.Image = imageFromHeader(header, file)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return in, cleanup, model.NewInvalidImageError()
	}

	return in, cleanup, nil
}

func imageFromHeader(header *multipart.FileHeader, file multipart.File) *recipeImage {
	return &recipeImage{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}
}
