package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCSRFMiddleware_SafeMethodsPassWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/api/recipes", nil))

			if !called {
				t.Errorf("handler should be called for %s", method)
			}
		})
	}
}

func TestCSRFMiddleware_GETIssuesCookieOnce(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{CookieSecure: true, CookieDomain: "example.com"})
	handler := mw(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes", nil))

	c := findCookie(w.Result(), csrfCookieName)
	if c == nil {
		t.Fatal("csrf cookie should be issued")
	}
	if len(c.Value) != 64 || c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie = %+v", c)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if findCookie(w.Result(), csrfCookieName) != nil {
		t.Error("existing csrf cookie must not be replaced")
	}
}

func TestCSRFMiddleware_StateChangingRequests(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   int
	}{
		{"トークン一致", "valid-token", "valid-token", http.StatusOK},
		{"Cookieなし", "", "valid-token", http.StatusForbidden},
		{"ヘッダーなし", "valid-token", "", http.StatusForbidden},
		{"トークン不一致", "valid-token", "wrong-token", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCSRFMiddleware(CSRFConfig{})(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/recipes/rate", strings.NewReader("{}"))
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				var body map[string]any
				json.NewDecoder(w.Body).Decode(&body)
				if body["success"] != false || body["code"] != "CSRF_TOKEN_INVALID" {
					t.Errorf("body = %v", body)
				}
			}
		})
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	t.Run("新規発行", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

		var body struct {
			Success bool   `json:"success"`
			Token   string `json:"token"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		c := findCookie(w.Result(), csrfCookieName)
		if !body.Success || body.Token == "" || c == nil || c.Value != body.Token {
			t.Errorf("body = %+v, cookie = %+v", body, c)
		}
	})

	t.Run("既存トークンを返す", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-csrf-token"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		var body struct {
			Token string `json:"token"`
		}
		json.NewDecoder(w.Body).Decode(&body)
		if body.Token != "existing-csrf-token" {
			t.Errorf("token = %q, want %q", body.Token, "existing-csrf-token")
		}
	})
}
