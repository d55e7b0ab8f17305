package postgres

import (
	"context"
	"errors"
	"fmt"

	"auth_api/internal/models"
	"auth_api/internal/storage"

	"github.com/jackc/pgx/v5"
)

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// SaveUser inserts a user. The unique constraints are the source of truth
// for username and email uniqueness, whatever callers checked beforehand.
func (r *PostgresRepo) SaveUser(ctx context.Context, username, email, passHash string) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id int64

	err := r.db.QueryRow(ctx, query, username, email, passHash).Scan(&id)
	if err != nil {
		if pgErr, ok := isUniqueViolation(err); ok {
			switch pgErr.ConstraintName {
			case usernameConstraint:
				return 0, storage.ErrUsernameTaken
			case emailConstraint:
				return 0, storage.ErrEmailTaken
			default:
				return 0, storage.ErrUserExists
			}
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(ctx, "storage.postgres.UserByID", query, id)
}

func (r *PostgresRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1;
	`

	return r.scanUser(ctx, "storage.postgres.UserByUsername", query, username)
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(ctx, "storage.postgres.UserByEmail", query, email)
}

func (r *PostgresRepo) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage.postgres.Users"

	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		ORDER BY id;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (r *PostgresRepo) scanUser(ctx context.Context, op, query string, arg any) (models.User, error) {
	var u models.User

	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}
