package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/flavorshare/internal/middleware"
	"github.com/hitoshi/flavorshare/internal/model"
)

const testCSRFToken = "router-test-csrf-token"

// mockIdentityResolver はmiddleware.IdentityResolverのモック実装。
type mockIdentityResolver struct {
	resolveFn func(ctx context.Context, sessionID string) (model.Identity, error)
}

func (m *mockIdentityResolver) ResolveIdentity(ctx context.Context, sessionID string) (model.Identity, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sessionID)
	}
	return model.Identity{}, nil
}

// staticResolver は固定のセッションIDとIdentityの対応で解決するリゾルバを返す。
func staticResolver(sessions map[string]model.Identity) *mockIdentityResolver {
	return &mockIdentityResolver{
		resolveFn: func(ctx context.Context, sessionID string) (model.Identity, error) {
			return sessions[sessionID], nil
		},
	}
}

// newTestRouterDeps はモックサービスで構成したRouterDepsを返す。
func newTestRouterDeps(t *testing.T) *RouterDeps {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(600, 60))
	t.Cleanup(rl.Stop)

	return &RouterDeps{
		IdentityResolver:  staticResolver(map[string]model.Identity{"member-session": member}),
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     mockHealthChecker{},
		AuthService:       &mockAuthService{},
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 3600},
		RecipeService:     &mockRecipeService{},
		RatingService:     &mockRatingService{},
		NewsletterService: &mockNewsletterService{},
	}
}

// withCSRF はダブルサブミット用のCookieとヘッダーを付与する。
func withCSRF(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	r.Header.Set("X-CSRF-Token", testCSRFToken)
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNewRouter_Routes(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	tests := []struct {
		name       string
		request    *http.Request
		wantStatus int
	}{
		{"ヘルスチェック", httptest.NewRequest(http.MethodGet, "/health", nil), http.StatusOK},
		{"CSRFトークン取得", httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil), http.StatusOK},
		{"レシピ一覧", httptest.NewRequest(http.MethodGet, "/api/recipes", nil), http.StatusOK},
		{"レシピ一覧(ページ指定)", httptest.NewRequest(http.MethodGet, "/api/recipes?page=2", nil), http.StatusOK},
		{"レシピ詳細(パス)", httptest.NewRequest(http.MethodGet, "/api/recipes/12", nil), http.StatusNotFound},
		{"レシピ詳細(クエリ)", httptest.NewRequest(http.MethodGet, "/api/recipe_detail?id=12", nil), http.StatusNotFound},
		{"カテゴリ一覧", httptest.NewRequest(http.MethodGet, "/api/categories", nil), http.StatusOK},
		{"ログイン状態", httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), http.StatusOK},
		{"登録", withCSRF(jsonRequest(http.MethodPost, "/api/auth/register", `{}`)), http.StatusCreated},
		{"ログアウト", withCSRF(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)), http.StatusOK},
		{"評価", withCSRF(jsonRequest(http.MethodPost, "/api/recipes/rate", `{"recipe_id":1,"rating":5}`)), http.StatusOK},
		{"おすすめ", withCSRF(jsonRequest(http.MethodPost, "/api/recipes/feature", `{"recipe_id":1}`)), http.StatusOK},
		{"削除", withCSRF(jsonRequest(http.MethodPost, "/api/recipes/delete", `{"recipe_id":1}`)), http.StatusOK},
		{"投稿", withCSRF(jsonRequest(http.MethodPost, "/api/recipes", `{"title":"x"}`)), http.StatusCreated},
		{"ニュースレター", withCSRF(jsonRequest(http.MethodPost, "/api/newsletter", `{"email":"a@example.com"}`)), http.StatusOK},
		{"存在しないルート", httptest.NewRequest(http.MethodGet, "/api/unknown", nil), http.StatusNotFound},
		{"許可されないメソッド", withCSRF(httptest.NewRequest(http.MethodDelete, "/api/recipes/1", nil)), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.request)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d (body=%s)",
					tt.request.Method, tt.request.URL, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestNewRouter_StateChangingRoutesRequireCSRF(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	for _, path := range []string{
		"/api/auth/register",
		"/api/auth/login",
		"/api/auth/logout",
		"/api/recipes",
		"/api/recipes/rate",
		"/api/recipes/feature",
		"/api/recipes/delete",
		"/api/newsletter",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(http.MethodPost, path, `{}`))

			assertErrorBody(t, w, http.StatusForbidden, "CSRF_TOKEN_INVALID")
		})
	}
}

func TestNewRouter_SessionIdentityReachesService(t *testing.T) {
	deps := newTestRouterDeps(t)
	var got model.Identity
	deps.RatingService = &mockRatingService{
		rateRecipeFn: func(ctx context.Context, identity model.Identity, recipeID int64, score int) (*rateResponse, error) {
			got = identity
			return &rateResponse{}, nil
		},
	}
	router := NewRouter(deps)

	req := withCSRF(jsonRequest(http.MethodPost, "/api/recipes/rate", `{"recipe_id":1,"rating":5}`))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "member-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != member {
		t.Errorf("identity = %+v, want %+v", got, member)
	}
}

func TestNewRouter_RatingRouteHasOwnRateLimit(t *testing.T) {
	deps := newTestRouterDeps(t)
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(600, 1))
	t.Cleanup(rl.Stop)
	deps.RateLimiter = rl
	router := NewRouter(deps)

	rate := func() int {
		req := withCSRF(jsonRequest(http.MethodPost, "/api/recipes/rate", `{"recipe_id":1,"rating":5}`))
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "member-session"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if got := rate(); got != http.StatusOK {
		t.Fatalf("first rating status = %d, want %d", got, http.StatusOK)
	}
	if got := rate(); got != http.StatusTooManyRequests {
		t.Errorf("second rating status = %d, want %d", got, http.StatusTooManyRequests)
	}

	// 一覧は評価の上限に影響されない
	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "member-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("listing status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	deps := newTestRouterDeps(t)
	deps.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("flavorshare_up 1\n"))
	})
	router := NewRouter(deps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "flavorshare_up") {
		t.Errorf("status = %d, body = %q", w.Code, w.Body.String())
	}
}

func TestNewRouter_ServesUploads(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "recipes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "recipes", "pic.png"), []byte("image-data"), 0o644); err != nil {
		t.Fatal(err)
	}

	deps := newTestRouterDeps(t)
	deps.UploadDir = dir
	router := NewRouter(deps)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"画像ファイル", "/uploads/recipes/pic.png", http.StatusOK},
		{"ディレクトリ一覧は返さない", "/uploads/recipes/", http.StatusNotFound},
		{"ディレクトリ一覧は返さない(スラッシュなし)", "/uploads/recipes", http.StatusNotFound},
		{"存在しないファイル", "/uploads/recipes/missing.png", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && w.Body.String() != "image-data" {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestNewRouter_SecurityAndCORSHeaders(t *testing.T) {
	router := NewRouter(newTestRouterDeps(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes", nil))

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}
