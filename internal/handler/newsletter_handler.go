package handler

import (
	"context"
	"net/http"
)

// NewsletterServiceInterface はニュースレターハンドラーが必要とするサービスインターフェース。
type NewsletterServiceInterface interface {
	Subscribe(ctx context.Context, email string) error
}

// NewsletterHandler はニュースレター購読のHTTPハンドラー。
type NewsletterHandler struct {
	service NewsletterServiceInterface
}

// NewNewsletterHandler はNewsletterHandlerを生成する。
func NewNewsletterHandler(service NewsletterServiceInterface) *NewsletterHandler {
	return &NewsletterHandler{service: service}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe はニュースレター購読を登録する。登録済みのアドレスも成功を返す。
// POST /api/newsletter {"email": "..."}
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.Subscribe(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Successfully subscribed to newsletter")
}
