package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/flavorshare/internal/model"
)

func testLimiterConfig(generalBurst, ratingBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		RatingRate:      1,
		RatingBurst:     ratingBurst,
		CleanupInterval: time.Minute,
	}
}

// frozenLimiter は時刻を固定し、テスト中にトークンが補充されないRateLimiterを返す。
func frozenLimiter(t *testing.T, cfg RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Stop)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }
	return rl
}

func requestAs(userID int64, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.RemoteAddr = remoteAddr
	if userID > 0 {
		req = req.WithContext(ContextWithIdentity(req.Context(), model.Identity{UserID: userID}))
	}
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	rl := frozenLimiter(t, testLimiterConfig(2, 1))
	handler := rl.GeneralMiddleware()(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(1, "10.0.0.1:1234"))
		if w.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, want)
		}
	}
}

func TestRateLimitMiddleware_429ResponseIsEnvelope(t *testing.T) {
	rl := frozenLimiter(t, testLimiterConfig(1, 1))
	handler := rl.GeneralMiddleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestAs(1, "10.0.0.1:1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(1, "10.0.0.1:1"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["success"] != false || body["code"] != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("body = %v", body)
	}
}

func TestRateLimitMiddleware_KeysByUserThenIP(t *testing.T) {
	rl := frozenLimiter(t, testLimiterConfig(1, 1))
	handler := rl.GeneralMiddleware()(okHandler())

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"ユーザー1の1回目", requestAs(1, "10.0.0.1:1"), http.StatusOK},
		{"同じIPの別ユーザーは独立", requestAs(2, "10.0.0.1:2"), http.StatusOK},
		{"ユーザー1は別IPからでも制限", requestAs(1, "10.0.0.9:1"), http.StatusTooManyRequests},
		{"未ログインはIP単位", requestAs(0, "192.0.2.1:5000"), http.StatusOK},
		{"同じIPの未ログインはポートが違っても制限", requestAs(0, "192.0.2.1:5001"), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, tt.req)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
	}
	if got := rl.GeneralLimiterCount(); got != 3 {
		t.Errorf("GeneralLimiterCount = %d, want 3", got)
	}
}

func TestRatingMiddleware_IndependentFromGeneralLimit(t *testing.T) {
	rl := frozenLimiter(t, testLimiterConfig(10, 1))
	handler := rl.GeneralMiddleware()(rl.RatingMiddleware()(okHandler()))
	other := rl.GeneralMiddleware()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(1, "10.0.0.1:1"))
	if w.Code != http.StatusOK {
		t.Fatalf("first rating: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(1, "10.0.0.1:1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second rating: status = %d, want 429", w.Code)
	}

	// 評価の上限に達しても他のAPIは使える
	w = httptest.NewRecorder()
	other.ServeHTTP(w, requestAs(1, "10.0.0.1:1"))
	if w.Code != http.StatusOK {
		t.Errorf("general request: status = %d, want 200", w.Code)
	}
	if rl.RatingLimiterCount() != 1 {
		t.Errorf("RatingLimiterCount = %d, want 1", rl.RatingLimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := frozenLimiter(t, testLimiterConfig(5, 5))
	handler := rl.GeneralMiddleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestAs(1, "10.0.0.1:1"))
	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("GeneralLimiterCount = %d, want 1", rl.GeneralLimiterCount())
	}

	later := time.Date(2026, 1, 1, 0, 3, 0, 0, time.UTC)
	rl.now = func() time.Time { return later }
	rl.cleanup()

	if rl.GeneralLimiterCount() != 0 {
		t.Errorf("GeneralLimiterCount after cleanup = %d, want 0", rl.GeneralLimiterCount())
	}
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 30)
	if cfg.GeneralRate != 2 || cfg.GeneralBurst != 120 {
		t.Errorf("general = %v/%d, want 2/120", cfg.GeneralRate, cfg.GeneralBurst)
	}
	if cfg.RatingRate != 0.5 || cfg.RatingBurst != 30 {
		t.Errorf("rating = %v/%d, want 0.5/30", cfg.RatingRate, cfg.RatingBurst)
	}
	if DefaultRateLimiterConfig() != cfg {
		t.Error("DefaultRateLimiterConfig should match 120/30 per minute")
	}

	// Stopは複数回呼んでもpanicしない
	rl := NewRateLimiter(cfg)
	rl.Stop()
	rl.Stop()
}
