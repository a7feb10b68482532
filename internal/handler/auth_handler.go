// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/flavorshare/internal/middleware"
	"github.com/hitoshi/flavorshare/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password, confirmPassword string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// authRequest は登録・ログインの入力。JSONとフォームのどちらでも受け付ける。
type authRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// loginStatusResponse はログイン状態のAPIレスポンス。
type loginStatusResponse struct {
	envelope
	LoggedIn bool   `json:"loggedIn"`
	UserID   int64  `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
}

// Register はユーザー登録を処理する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, okReq := h.readRequest(w, r)
	if !okReq {
		return
	}

	if _, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Registration successful")
}

// Login はログインを処理し、セッションCookieを発行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, okReq := h.readRequest(w, r)
	if !okReq {
		return
	}

	session, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginStatusResponse{
		envelope: ok("Login successful"),
		LoggedIn: true,
		UserID:   user.ID,
		UserName: user.Name,
	})
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionIDFromRequest(r); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeMessage(w, http.StatusOK, "Logout successful")
}

// Me は現在のログイン状態を返す。未ログインでもエラーにはしない。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := loginStatusResponse{envelope: ok("")}

	user, err := h.service.CurrentUser(r.Context(), middleware.SessionIDFromRequest(r))
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
	}
	if user != nil {
		resp.LoggedIn = true
		resp.UserID = user.ID
		resp.UserName = user.Name
	}

	writeJSON(w, http.StatusOK, resp)
}

// readRequest はJSONまたはフォームから認証リクエストを読み取る。
func (h *AuthHandler) readRequest(w http.ResponseWriter, r *http.Request) (authRequest, bool) {
	var req authRequest
	if isJSONRequest(r) {
		return req, decodeJSONBody(w, r, &req)
	}

	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Request body could not be parsed"))
		return req, false
	}
	req.Name = r.PostFormValue("name")
	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
	req.ConfirmPassword = r.PostFormValue("confirm_password")
	return req, true
}
