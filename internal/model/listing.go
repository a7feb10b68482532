package model

import "math"

// ページネーションのデフォルト値と上限
const (
	DefaultListingLimit = 12
	MaxListingLimit     = 100
	// MaxListingPage は(Page-1)*Limitがint64に収まるページ番号の上限。
	MaxListingPage = math.MaxInt32
)

// ListingQuery はレシピ一覧取得1回分のフィルタ・ソート・ページ指定。
// 永続化しないリクエストスコープの値。
type ListingQuery struct {
	FeaturedOnly bool
	Popular      bool
	CategoryID   int64 // 0の場合はカテゴリで絞り込まない
	Search       string
	Page         int
	Limit        int
}

// Normalize はページとリミットを正規化した値を返す。
// Pageは1未満を1に、Limitは未指定を既定値に、上限超過を上限に丸める。
func (q ListingQuery) Normalize() ListingQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxListingPage {
		q.Page = MaxListingPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultListingLimit
	}
	if q.Limit > MaxListingLimit {
		q.Limit = MaxListingLimit
	}
	return q
}

// Offset は取得開始位置を返す。Normalize済みの値に対して呼び出すこと。
func (q ListingQuery) Offset() int64 {
	return int64(q.Page-1) * int64(q.Limit)
}

// Pagination は一覧結果のページ情報。
type Pagination struct {
	CurrentPage  int
	TotalPages   int
	TotalRecipes int
}

// NewPagination は総件数とクエリからページ情報を算出する。
// 該当0件の場合TotalPagesは0になる。
func NewPagination(q ListingQuery, total int) Pagination {
	pages := 0
	if total > 0 && q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return Pagination{
		CurrentPage:  q.Page,
		TotalPages:   pages,
		TotalRecipes: total,
	}
}

// RecipePage はレシピ一覧の1ページ分の結果。
type RecipePage struct {
	Recipes    []RecipeSummary
	Pagination Pagination
}
