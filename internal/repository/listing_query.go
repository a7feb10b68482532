package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/flavorshare/internal/model"
)

// listingFrom は一覧の行取得と件数取得で共有するFROM句。
// 件数と行の対象集合が一致するよう、JOIN条件も共有する。
const listingFrom = `
	FROM recipes r
	JOIN categories c ON c.id = r.category_id
	JOIN users u ON u.id = r.user_id`

// listingReviewJoin はレシピごとの評価集計を結合する。評価0件のレシピはNULLになる。
const listingReviewJoin = `
	LEFT JOIN (
		SELECT recipe_id, AVG(rating)::float8 AS avg_rating, COUNT(*) AS review_count
		FROM reviews
		GROUP BY recipe_id
	) rv ON rv.recipe_id = r.id`

// listingRoundedRating はmodel.RoundToHalfと同じ丸め（2倍して四捨五入し半分）をSQLで行う。
const listingRoundedRating = `FLOOR(COALESCE(rv.avg_rating, 0) * 2 + 0.5) / 2`

// listingFilter は一覧クエリから組み立てたWHERE句とバインド引数。
type listingFilter struct {
	where string
	args  []any
}

// buildListingFilter はフィルタ条件をAND結合したWHERE句を組み立てる。
// 条件がない場合whereは空文字列になる。値はすべてプレースホルダで渡す。
func buildListingFilter(q model.ListingQuery) listingFilter {
	var conds []string
	var args []any

	if q.FeaturedOnly {
		conds = append(conds, "r.featured = true")
	}
	if q.CategoryID > 0 {
		args = append(args, q.CategoryID)
		conds = append(conds, fmt.Sprintf("r.category_id = $%d", len(args)))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(r.title ILIKE $%d ESCAPE '\' OR r.description ILIKE $%d ESCAPE '\')`, n, n))
	}

	f := listingFilter{args: args}
	if len(conds) > 0 {
		f.where = " WHERE " + strings.Join(conds, " AND ")
	}
	return f
}

// escapeLike はLIKEのメタ文字（\ % _）をエスケープし、検索語を文字通りに一致させる。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// listingOrder はソート指定に対応するORDER BY句を返す。
// 同値の行はidの降順で並べ、ページ間で順序が揺れないようにする。
func listingOrder(q model.ListingQuery) string {
	if q.Popular {
		return " ORDER BY " + listingRoundedRating + " DESC, COALESCE(rv.review_count, 0) DESC, r.id DESC"
	}
	return " ORDER BY r.created_at DESC, r.id DESC"
}

// buildListingRowsQuery は一覧の行取得クエリを組み立てる。qはNormalize済みであること。
func buildListingRowsQuery(q model.ListingQuery) (string, []any) {
	f := buildListingFilter(q)
	args := append(f.args, q.Limit, q.Offset())

	query := `SELECT r.id, r.title, r.description, COALESCE(r.image, ''), r.created_at,
		c.name, u.name, COALESCE(rv.avg_rating, 0), COALESCE(rv.review_count, 0)` +
		listingFrom + listingReviewJoin + f.where + listingOrder(q) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return query, args
}

// buildListingCountQuery は一覧の総件数取得クエリを組み立てる。
func buildListingCountQuery(q model.ListingQuery) (string, []any) {
	f := buildListingFilter(q)
	return "SELECT COUNT(*)" + listingFrom + f.where, f.args
}
