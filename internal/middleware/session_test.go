package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/flavorshare/internal/model"
)

// --- モック定義 ---

type mockIdentityResolver struct {
	resolveFn func(ctx context.Context, sessionID string) (model.Identity, error)
	calls     int
}

func (m *mockIdentityResolver) ResolveIdentity(ctx context.Context, sessionID string) (model.Identity, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sessionID)
	}
	return model.Identity{}, nil
}

var _ IdentityResolver = (*mockIdentityResolver)(nil)

func sessionResolver() *mockIdentityResolver {
	return &mockIdentityResolver{
		resolveFn: func(_ context.Context, id string) (model.Identity, error) {
			switch id {
			case "member-session":
				return model.Identity{UserID: 123}, nil
			case "admin-session":
				return model.Identity{UserID: 1, IsAdmin: true}, nil
			}
			return model.Identity{}, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_InjectsIdentity(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		want   model.Identity
	}{
		{"有効なセッション", "member-session", model.Identity{UserID: 123}},
		{"管理者のセッション", "admin-session", model.Identity{UserID: 1, IsAdmin: true}},
		{"期限切れ・不明なセッション", "expired", model.Identity{}},
		{"Cookieなし", "", model.Identity{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewSessionMiddleware(sessionResolver())

			called := false
			var got model.Identity
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called {
				t.Fatal("anonymous requests must reach the handler")
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if got != tt.want {
				t.Errorf("identity = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSessionMiddleware_SkipsResolverWithoutCookie(t *testing.T) {
	resolver := &mockIdentityResolver{}
	handler := NewSessionMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if resolver.calls != 0 {
		t.Errorf("resolver called %d times, want 0", resolver.calls)
	}
}

func TestSessionMiddleware_ResolverErrorFallsBackToAnonymous(t *testing.T) {
	resolver := &mockIdentityResolver{
		resolveFn: func(context.Context, string) (model.Identity, error) {
			return model.Identity{UserID: 5}, errors.New("db down")
		},
	}

	var got model.Identity
	handler := NewSessionMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.Authenticated() {
		t.Errorf("identity = %+v, want anonymous", got)
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}

	ctx := ContextWithIdentity(context.Background(), model.Identity{UserID: 42})
	id, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("userID = %d, want 42", id)
	}
}

func TestSessionIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionIDFromRequest(req); got != "" {
		t.Errorf("SessionIDFromRequest = %q, want empty", got)
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})
	if got := SessionIDFromRequest(req); got != "abc" {
		t.Errorf("SessionIDFromRequest = %q, want %q", got, "abc")
	}
}
