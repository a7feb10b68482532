package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/flavorshare/internal/model"
)

// PostgresRatingRepo はPostgreSQLを使用した評価リポジトリ。
type PostgresRatingRepo struct {
	db TxBeginner
}

// NewPostgresRatingRepo はPostgresRatingRepoを生成する。
func NewPostgresRatingRepo(db TxBeginner) *PostgresRatingRepo {
	return &PostgresRatingRepo{db: db}
}

// Upsert は評価を登録または上書きし、更新後の集計値を返す。
//
// レシピ行をFOR UPDATEでロックするため、同一レシピへの評価は直列化され、
// 返す集計値は自分の書き込みを含む時点の値になる。途中で失敗した場合は全体をロールバックする。
func (r *PostgresRatingRepo) Upsert(ctx context.Context, recipeID, userID int64, score int) (*model.RatingResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, recipeID,
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock recipe: %w", err)
	}

	// xmax = 0 の場合は新規INSERT、それ以外はON CONFLICTによる更新
	var created bool
	err = tx.QueryRowContext(ctx,
		`INSERT INTO reviews (recipe_id, user_id, rating)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (recipe_id, user_id) DO UPDATE SET
		   rating = EXCLUDED.rating,
		   updated_at = now()
		 RETURNING (xmax = 0)`,
		recipeID, userID, score,
	).Scan(&created)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert rating: %w", err)
	}

	result := &model.RatingResult{Created: created}
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating)::float8, 0), COUNT(*) FROM reviews WHERE recipe_id = $1`,
		recipeID,
	).Scan(&result.Aggregate.Average, &result.Aggregate.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ RatingRepository = (*PostgresRatingRepo)(nil)
