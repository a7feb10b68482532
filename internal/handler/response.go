package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/flavorshare/internal/middleware"
	"github.com/hitoshi/flavorshare/internal/model"
)

// envelope はすべてのJSONレスポンスに共通するフィールド。
// 各レスポンス型に埋め込んで使う。
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(message string) envelope {
	return envelope{Success: true, Message: message}
}

// messageResponse はメッセージのみを返すレスポンス。
type messageResponse struct {
	envelope
}

// writeJSON はvをJSONとして書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeMessage は成功メッセージのみのレスポンスを書き込む。
func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, messageResponse{envelope: ok(message)})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外は内部エラーとしてログに残し、詳細はクライアントに返さない。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest, model.ErrCodeInvalidQuery,
		model.ErrCodeInvalidRecipeID, model.ErrCodeInvalidRating, model.ErrCodePasswordMismatch,
		model.ErrCodeInvalidImage, model.ErrCodeImageTypeNotAllow, model.ErrCodeInvalidEmail,
		model.ErrCodeCategoryNotFound:
		return http.StatusBadRequest
	case model.ErrCodeImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidPassword:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeRecipeNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailInUse:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSONBody はリクエストボディをvにデコードする。失敗した場合は400を書き込みfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Request body must be valid JSON"))
		return false
	}
	return true
}

// isJSONRequest はContent-TypeがJSONかどうかを返す。
func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// looseInt は数値と数値文字列のどちらも受け付ける整数。
// 解釈できない値は0になり、呼び出し側の範囲チェックで弾かれる。
type looseInt int64

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = looseInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = looseInt(int64(f))
		return nil
	}
	*n = 0
	return nil
}

// wholeInt はlooseIntと同様に数値文字列も受け付けるが、小数部を持つ値は切り捨てずに0とする。
// 評価値のように整数であること自体が入力条件の項目に使う。
type wholeInt int64

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (n *wholeInt) UnmarshalJSON(b []byte) error {
	*n = 0
	s := strings.Trim(string(b), `"`)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = wholeInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
		*n = wholeInt(f)
	}
	return nil
}
