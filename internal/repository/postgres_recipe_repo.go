package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/flavorshare/internal/model"
)

// PostgresRecipeRepo はPostgreSQLを使用したレシピリポジトリ。
type PostgresRecipeRepo struct {
	db *sql.DB
}

// NewPostgresRecipeRepo はPostgresRecipeRepoを生成する。
func NewPostgresRecipeRepo(db *sql.DB) *PostgresRecipeRepo {
	return &PostgresRecipeRepo{db: db}
}

// List は一覧クエリに一致するレシピを1ページ分返す。
func (r *PostgresRecipeRepo) List(ctx context.Context, q model.ListingQuery) ([]model.RecipeSummary, error) {
	query, args := buildListingRowsQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.RecipeSummary{}
	for rows.Next() {
		var s model.RecipeSummary
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.Image, &s.CreatedAt,
			&s.Category, &s.Author, &s.Aggregate.Average, &s.Aggregate.Count,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return recipes, nil
}

// Count は一覧クエリに一致するレシピの総件数を返す。
func (r *PostgresRecipeRepo) Count(ctx context.Context, q model.ListingQuery) (int, error) {
	query, args := buildListingCountQuery(q)

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return total, nil
}

// FindDetail はレシピ詳細を評価集計付きで取得する。見つからない場合はnilを返す。
func (r *PostgresRecipeRepo) FindDetail(ctx context.Context, id int64) (*model.RecipeDetail, error) {
	d := &model.RecipeDetail{}
	var ingredients, steps []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.title, r.description, r.ingredients, r.steps, COALESCE(r.image, ''),
		        r.user_id, r.category_id, r.featured, r.created_at,
		        c.name, u.name,
		        COALESCE((SELECT AVG(rating)::float8 FROM reviews WHERE recipe_id = r.id), 0),
		        (SELECT COUNT(*) FROM reviews WHERE recipe_id = r.id)
		 FROM recipes r
		 JOIN categories c ON c.id = r.category_id
		 JOIN users u ON u.id = r.user_id
		 WHERE r.id = $1`,
		id,
	).Scan(
		&d.ID, &d.Title, &d.Description, &ingredients, &steps, &d.Image,
		&d.UserID, &d.CategoryID, &d.Featured, &d.CreatedAt,
		&d.Category, &d.Author,
		&d.Aggregate.Average, &d.Aggregate.Count,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe detail: %w", err)
	}

	if err := decodeRecipeLists(&d.Recipe, ingredients, steps); err != nil {
		return nil, err
	}
	return d, nil
}

// FindByID はレシピ本体を取得する。見つからない場合はnilを返す。
func (r *PostgresRecipeRepo) FindByID(ctx context.Context, id int64) (*model.Recipe, error) {
	rec := &model.Recipe{}
	var ingredients, steps []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, ingredients, steps, COALESCE(image, ''),
		        user_id, category_id, featured, created_at
		 FROM recipes WHERE id = $1`,
		id,
	).Scan(
		&rec.ID, &rec.Title, &rec.Description, &ingredients, &steps, &rec.Image,
		&rec.UserID, &rec.CategoryID, &rec.Featured, &rec.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}

	if err := decodeRecipeLists(rec, ingredients, steps); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create はレシピを作成し、採番されたIDと作成日時をrecipeに設定する。
func (r *PostgresRecipeRepo) Create(ctx context.Context, recipe *model.Recipe) error {
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to encode ingredients: %w", err)
	}
	steps, err := json.Marshal(recipe.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	var image sql.NullString
	if recipe.Image != "" {
		image = sql.NullString{String: recipe.Image, Valid: true}
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO recipes (title, description, ingredients, steps, image, user_id, category_id, featured)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		recipe.Title, recipe.Description, ingredients, steps, image,
		recipe.UserID, recipe.CategoryID, recipe.Featured,
	).Scan(&recipe.ID, &recipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// SetFeatured はレシピの注目フラグを更新する。
func (r *PostgresRecipeRepo) SetFeatured(ctx context.Context, id int64, featured bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE recipes SET featured = $2 WHERE id = $1`, id, featured)
	if err != nil {
		return fmt.Errorf("failed to update featured flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// Delete はレシピと紐づく評価を同一トランザクションで削除し、画像パスを返す。
func (r *PostgresRecipeRepo) Delete(ctx context.Context, id int64) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var image string
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(image, '') FROM recipes WHERE id = $1 FOR UPDATE`, id,
	).Scan(&image)
	if err == sql.ErrNoRows {
		return "", ErrRecipeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock recipe: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE recipe_id = $1`, id); err != nil {
		return "", fmt.Errorf("failed to delete reviews: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id); err != nil {
		return "", fmt.Errorf("failed to delete recipe: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return image, nil
}

// decodeRecipeLists はJSONBの材料・手順をrecに展開する。
func decodeRecipeLists(rec *model.Recipe, ingredients, steps []byte) error {
	rec.Ingredients = []model.Ingredient{}
	rec.Steps = []string{}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &rec.Ingredients); err != nil {
			return fmt.Errorf("failed to decode ingredients of recipe %d: %w", rec.ID, err)
		}
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &rec.Steps); err != nil {
			return fmt.Errorf("failed to decode steps of recipe %d: %w", rec.ID, err)
		}
	}
	return nil
}

// compile-time interface check
var _ RecipeRepository = (*PostgresRecipeRepo)(nil)
