package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示するメッセージと原因カテゴリ、対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（クライアントはそのまま表示する）
	Category string // カテゴリ: auth, validation, recipe, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidQuery      = "INVALID_QUERY"
	ErrCodeInvalidRecipeID   = "INVALID_RECIPE_ID"
	ErrCodeInvalidRating     = "INVALID_RATING"
	ErrCodeRecipeNotFound    = "RECIPE_NOT_FOUND"
	ErrCodeCategoryNotFound  = "CATEGORY_NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeEmailInUse        = "EMAIL_IN_USE"
	ErrCodePasswordMismatch  = "PASSWORD_MISMATCH"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInvalidPassword   = "INVALID_PASSWORD"
	ErrCodeInvalidImage      = "INVALID_IMAGE"
	ErrCodeImageTooLarge     = "IMAGE_TOO_LARGE"
	ErrCodeImageTypeNotAllow = "IMAGE_TYPE_NOT_ALLOWED"
	ErrCodeInvalidEmail      = "INVALID_EMAIL"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the highlighted fields and try again.",
	}
}

// NewInvalidRequestError はリクエストボディを解析できない場合のエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "Send a well-formed request body.",
	}
}

// NewInvalidQueryError は一覧クエリパラメータが不正な場合のエラーを生成する。
func NewInvalidQueryError(param, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("Invalid value for %s: %q", param, value),
		Category: "validation",
		Action:   "page, limit, category, featured and popular must be integers.",
	}
}

// NewInvalidRecipeIDError はレシピIDが不正な場合のエラーを生成する。
func NewInvalidRecipeIDError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRecipeID,
		Message:  "Invalid recipe ID",
		Category: "validation",
		Action:   "Specify a positive integer recipe ID.",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(score int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("Invalid rating: %d", score),
		Category: "validation",
		Action:   fmt.Sprintf("Rate between %d and %d stars.", MinRatingScore, MaxRatingScore),
	}
}

// NewRecipeNotFoundError はレシピ未検出エラーを生成する。
func NewRecipeNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRecipeNotFound,
		Message:  "Recipe not found",
		Category: "recipe",
		Action:   "The recipe may have been deleted. Reload the list.",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  "Category not found",
		Category: "recipe",
		Action:   "Choose one of the listed categories.",
	}
}

// NewUnauthorizedError は未ログインで操作しようとした場合のエラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewForbiddenError は権限のない操作のエラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "Only the author can change this recipe.",
	}
}

// NewEmailInUseError はメールアドレス重複エラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "Email already in use",
		Category: "auth",
		Action:   "Log in with this email or register with another one.",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Passwords do not match",
		Category: "validation",
		Action:   "Enter the same password twice.",
	}
}

// NewUserNotFoundError はログイン対象ユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Check the email address or register a new account.",
	}
}

// NewInvalidPasswordError はパスワード不一致エラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "Invalid password",
		Category: "auth",
		Action:   "Check the password and try again.",
	}
}

// NewInvalidImageError は画像として読み込めないファイルのエラーを生成する。
func NewInvalidImageError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  "File is not an image",
		Category: "validation",
		Action:   "Upload a JPG, PNG or GIF image.",
	}
}

// NewImageTooLargeError は画像サイズ超過エラーを生成する。
func NewImageTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeImageTooLarge,
		Message:  fmt.Sprintf("Image file is too large (max %dMB)", maxBytes/1000000),
		Category: "validation",
		Action:   "Resize the image and try again.",
	}
}

// NewImageTypeNotAllowedError は許可されていない拡張子のエラーを生成する。
func NewImageTypeNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeImageTypeNotAllow,
		Message:  "Only JPG, JPEG, PNG & GIF files are allowed",
		Category: "validation",
		Action:   "Convert the image to JPG, PNG or GIF.",
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "Please provide a valid email address",
		Category: "validation",
		Action:   "Enter an address like name@example.com.",
	}
}
