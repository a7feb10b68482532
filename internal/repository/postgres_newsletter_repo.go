package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresNewsletterRepo はPostgreSQLを使用したニュースレター購読者リポジトリ。
type PostgresNewsletterRepo struct {
	db *sql.DB
}

// NewPostgresNewsletterRepo はPostgresNewsletterRepoを生成する。
func NewPostgresNewsletterRepo(db *sql.DB) *PostgresNewsletterRepo {
	return &PostgresNewsletterRepo{db: db}
}

// Subscribe はメールアドレスを登録する。既存の場合は登録日時のみ更新する。
// xmax = 0 は当該行が今回のINSERTで作られたことを示す。
func (r *PostgresNewsletterRepo) Subscribe(ctx context.Context, email string) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO newsletter (email)
		 VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET subscribed_at = now()
		 RETURNING (xmax = 0)`,
		email,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to subscribe newsletter: %w", err)
	}
	return created, nil
}

// compile-time interface check
var _ NewsletterRepository = (*PostgresNewsletterRepo)(nil)
