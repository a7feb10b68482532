package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/flavorshare/internal/model"
)

// parseListingQuery は一覧APIのクエリパラメータをListingQueryに変換する。
//
// 数値パラメータ（page, limit, category, featured, popular）が整数として解釈できない場合は
// INVALID_QUERYを返す。pageは1未満を1に丸め、limitは未指定なら既定値、
// 1未満はエラー、上限超過は上限に丸める。
func parseListingQuery(values url.Values) (model.ListingQuery, error) {
	q := model.ListingQuery{
		Search: strings.TrimSpace(values.Get("q")),
		Page:   1,
		Limit:  model.DefaultListingLimit,
	}

	featured, err := optionalInt(values, "featured")
	if err != nil {
		return q, err
	}
	q.FeaturedOnly = featured != 0

	popular, err := optionalInt(values, "popular")
	if err != nil {
		return q, err
	}
	q.Popular = popular != 0

	category, err := optionalInt(values, "category")
	if err != nil {
		return q, err
	}
	if category < 0 {
		return q, model.NewInvalidQueryError("category", values.Get("category"))
	}
	q.CategoryID = category

	if values.Has("page") {
		page, err := optionalInt(values, "page")
		if err != nil {
			return q, err
		}
		if page > 1 {
			q.Page = int(min(page, model.MaxListingPage))
		}
	}

	if values.Has("limit") {
		limit, err := optionalInt(values, "limit")
		if err != nil {
			return q, err
		}
		if limit < 1 {
			return q, model.NewInvalidQueryError("limit", values.Get("limit"))
		}
		q.Limit = int(min(limit, model.MaxListingLimit))
	}

	return q, nil
}

// optionalInt は整数パラメータを読む。未指定・空文字は0を返す。
func optionalInt(values url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewInvalidQueryError(name, raw)
	}
	return v, nil
}

// parseRecipeID はパスやクエリのレシピIDを解釈する。正の整数以外は0を返す。
func parseRecipeID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
