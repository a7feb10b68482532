package handler

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/flavorshare/internal/metrics"
	"github.com/hitoshi/flavorshare/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	IdentityResolver  middleware.IdentityResolver
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.Recorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 投稿画像の配信元ディレクトリ。空の場合は/uploadsを公開しない。
	UploadDir string

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// レシピ・評価・ニュースレター
	RecipeService     RecipeServiceInterface
	RecipeConfig      RecipeHandlerConfig
	RatingService     RatingServiceInterface
	NewsletterService NewsletterServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Session → Logging
//	  /api/*:        → RateLimit(General) → CSRF
//	  /api/recipes/rate: → RateLimit(Rating)
//
// Sessionは未ログインでも拒否せず、認可は各サービスで行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(recorder))
	if deps.IdentityResolver != nil {
		r.Use(middleware.NewSessionMiddleware(deps.IdentityResolver))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	recipeHandler := NewRecipeHandler(deps.RecipeService, deps.RecipeConfig)
	ratingHandler := NewRatingHandler(deps.RatingService)
	newsletterHandler := NewNewsletterHandler(deps.NewsletterService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", newUploadFileServer(deps.UploadDir)))
	}

	// --- API ---
	// ミドルウェアスタック: RateLimit(General) → CSRF
	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/categories", recipeHandler.ListCategories)
		r.Get("/recipe_detail", recipeHandler.GetRecipeByQuery)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.ListRecipes)
			r.Post("/", recipeHandler.CreateRecipe)
			r.Get("/{id}", recipeHandler.GetRecipe)
			r.Post("/feature", recipeHandler.FeatureRecipe)
			r.Post("/delete", recipeHandler.DeleteRecipe)

			// 評価は専用のレート制限を追加で適用する
			r.With(rateLimiter.RatingMiddleware()).Post("/rate", ratingHandler.Rate)
		})

		r.Post("/newsletter", newsletterHandler.Subscribe)
	})

	return r
}

// uploadFileSystem はディレクトリ一覧を返さないhttp.FileSystem。
type uploadFileSystem struct {
	fs http.FileSystem
}

func (u uploadFileSystem) Open(name string) (http.File, error) {
	f, err := u.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// newUploadFileServer は投稿画像ディレクトリを配信するハンドラーを返す。
func newUploadFileServer(dir string) http.Handler {
	files := http.FileServer(uploadFileSystem{fs: http.Dir(dir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
