package storage

import (
	"context"
	"fmt"
	"log/slog"

	"bolsya/internal/core"
)

// CreateUser inserts the user and seeds the default categories in one
// transaction. A taken email yields core.ErrDuplicateEmail.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	u := core.User{Email: email, PasswordHash: passwordHash}
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		var created string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (email, password_hash) VALUES (?, ?) RETURNING id, created_at`,
			email, passwordHash,
		).Scan(&u.ID, &created)
		if err != nil {
			return fmt.Errorf("insert user: %w", translate(err))
		}
		if u.CreatedAt, err = core.ParseStoredTime(created); err != nil {
			return err
		}
		return seedDefaultCategories(ctx, tx, u.ID)
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, nil
}

// GetUserByEmail looks up a user by exact email.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg any) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", translate(err))
	}
	if u.CreatedAt, err = core.ParseStoredTime(created); err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
