package model

import (
	"math"
	"time"
)

// Ingredient はレシピの材料1行を表す。
type Ingredient struct {
	Amount string `json:"amount"`
	Name   string `json:"name"`
}

// Category はレシピのカテゴリを表す。
type Category struct {
	ID          int64
	Name        string
	Image       string
	RecipeCount int
}

// Recipe はレシピ本体を表す。
type Recipe struct {
	ID          int64
	Title       string
	Description string
	Ingredients []Ingredient
	Steps       []string
	Image       string
	UserID      int64
	CategoryID  int64
	Featured    bool
	CreatedAt   time.Time
}

// RecipeSummary はレシピ一覧に使う縮約表現。
// 材料と手順は含めない。
type RecipeSummary struct {
	ID          int64
	Title       string
	Description string
	Image       string
	CreatedAt   time.Time
	Category    string
	Author      string
	Aggregate   RatingAggregate
}

// RecipeDetail はレシピ詳細表示用の表現。
type RecipeDetail struct {
	Recipe
	Category  string
	Author    string
	Aggregate RatingAggregate
}

// RatingAggregate はレシピごとの評価集計値。
// Averageは生の平均値で、表示にはDisplayRatingを使う。
type RatingAggregate struct {
	Average float64
	Count   int
}

// DisplayRating は表示用の評価値を返す。
// 一覧・詳細・評価登録のすべてでこの値を返すこと。
func (a RatingAggregate) DisplayRating() float64 {
	if a.Count == 0 {
		return 0
	}
	return RoundToHalf(a.Average)
}

// RoundToHalf は値を0.5刻みに丸める（2倍して四捨五入し、半分にする）。
func RoundToHalf(v float64) float64 {
	return math.Floor(v*2+0.5) / 2
}

// Rating は1ユーザーによる1レシピへの評価。
// (RecipeID, UserID) の組につき最大1件。
type Rating struct {
	ID        int64
	RecipeID  int64
	UserID    int64
	Score     int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 評価値の範囲
const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// RatingResult は評価登録後の集計結果。
type RatingResult struct {
	Aggregate RatingAggregate
	Created   bool // falseの場合は既存評価の上書き
}
