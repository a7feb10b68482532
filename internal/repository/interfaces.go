// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/flavorshare/internal/model"
)

var (
	// ErrDuplicateEmail はメールアドレスの一意制約に違反した場合に返される。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrRecipeNotFound は更新・削除対象のレシピが存在しない場合に返される。
	ErrRecipeNotFound = errors.New("recipe not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// メールアドレスが既に使われている場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// ListWithCounts は全カテゴリをレシピ数付きで名前順に返す。
	ListWithCounts(ctx context.Context) ([]model.Category, error)
	// Exists は指定IDのカテゴリが存在するかを返す。
	Exists(ctx context.Context, id int64) (bool, error)
}

// RecipeRepository はレシピの永続化インターフェース。
type RecipeRepository interface {
	// List は一覧クエリに一致するレシピを1ページ分返す。qはNormalize済みであること。
	List(ctx context.Context, q model.ListingQuery) ([]model.RecipeSummary, error)

	// Count は一覧クエリに一致するレシピの総件数を返す。
	// ページ指定は無視され、フィルタはListと同一の条件が使われる。
	Count(ctx context.Context, q model.ListingQuery) (int, error)

	// FindDetail はレシピ詳細を評価集計付きで取得する。見つからない場合はnilを返す。
	FindDetail(ctx context.Context, id int64) (*model.RecipeDetail, error)

	// FindByID はレシピ本体を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Recipe, error)

	// Create はレシピを作成し、採番されたIDと作成日時をrecipeに設定する。
	Create(ctx context.Context, recipe *model.Recipe) error

	// SetFeatured はレシピの注目フラグを更新する。
	// 対象が存在しない場合はErrRecipeNotFoundを返す。
	SetFeatured(ctx context.Context, id int64, featured bool) error

	// Delete はレシピと紐づく評価を同一トランザクションで削除し、
	// 削除したレシピの画像パスを返す。対象が存在しない場合はErrRecipeNotFoundを返す。
	Delete(ctx context.Context, id int64) (string, error)
}

// RatingRepository は評価の永続化インターフェース。
type RatingRepository interface {
	// Upsert は評価を登録または上書きし、更新後の集計値を返す。
	// レシピ行のロック、評価のUPSERT、集計の再計算を1トランザクションで行う。
	// レシピが存在しない場合はErrRecipeNotFoundを返し、何も書き込まない。
	Upsert(ctx context.Context, recipeID, userID int64, score int) (*model.RatingResult, error)
}

// NewsletterRepository はニュースレター購読者の永続化インターフェース。
type NewsletterRepository interface {
	// Subscribe はメールアドレスを登録する。既に登録済みの場合は登録日時を更新し、
	// createdにfalseを返す。
	Subscribe(ctx context.Context, email string) (created bool, err error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
