package postgres

import (
	"context"
	"errors"
	"fmt"

	"auth_api/internal/models"
	"auth_api/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) CreateItem(ctx context.Context, name string) (models.Item, error) {
	const op = "storage.postgres.CreateItem"

	query := `
		INSERT INTO items (name)
		VALUES ($1)
		RETURNING id, name, created_at, updated_at;
	`

	var it models.Item

	err := r.db.QueryRow(ctx, query, name).Scan(&it.ID, &it.Name, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

func (r *PostgresRepo) Item(ctx context.Context, id int64) (models.Item, error) {
	const op = "storage.postgres.Item"

	query := `
		SELECT id, name, created_at, updated_at
		FROM items
		WHERE id = $1;
	`

	var it models.Item

	err := r.db.QueryRow(ctx, query, id).Scan(&it.ID, &it.Name, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Item{}, storage.ErrItemNotFound
		}

		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

func (r *PostgresRepo) Items(ctx context.Context) ([]models.Item, error) {
	const op = "storage.postgres.Items"

	query := `
		SELECT id, name, created_at, updated_at
		FROM items
		ORDER BY id;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)

	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (r *PostgresRepo) UpdateItem(ctx context.Context, id int64, name string) (models.Item, error) {
	const op = "storage.postgres.UpdateItem"

	query := `
		UPDATE items
		SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, created_at, updated_at;
	`

	var it models.Item

	err := r.db.QueryRow(ctx, query, name, id).Scan(&it.ID, &it.Name, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Item{}, storage.ErrItemNotFound
		}

		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

func (r *PostgresRepo) DeleteItem(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteItem"

	query := `DELETE FROM items WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrItemNotFound
	}

	return nil
}
