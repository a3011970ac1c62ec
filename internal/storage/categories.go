package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bolsya/internal/core"
)

const categoryColumns = `id, user_id, name, type, color, icon, is_default`

// SeedDefaultCategories inserts the default set for userID in one
// transaction. It is not idempotent: a second call duplicates the set.
func (r *SQLiteRepository) SeedDefaultCategories(ctx context.Context, userID int64) error {
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		return seedDefaultCategories(ctx, tx, userID)
	})
	if err != nil {
		return fmt.Errorf("seed default categories: %w", err)
	}

	slog.InfoContext(ctx, "Default categories seeded", "user_id", userID, "count", len(core.DefaultCategories))
	return nil
}

func seedDefaultCategories(ctx context.Context, q DBTX, userID int64) error {
	for _, c := range core.DefaultCategories {
		_, err := q.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, type, color, icon, is_default) VALUES (?, ?, ?, ?, ?, 1)`,
			userID, c.Name, string(c.Type), c.Color, c.Icon,
		)
		if err != nil {
			return fmt.Errorf("insert default category %q: %w", c.Name, translate(err))
		}
	}
	return nil
}

// CreateCategory inserts a user category. IsDefault on c is ignored.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c = c.WithDefaults()
	c.IsDefault = false
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (user_id, name, type, color, icon, is_default) VALUES (?, ?, ?, ?, ?, 0) RETURNING id`,
		c.UserID, c.Name, string(c.Type), c.Color, c.Icon,
	).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", translate(err))
	}

	slog.InfoContext(ctx, "Category created", "user_id", c.UserID, "category_id", c.ID, "type", c.Type)
	return c, nil
}

// ListCategories returns the user's categories ordered by name, optionally
// restricted to one type.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, typ *core.EntryType) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?`
	args := []any{userID}
	if typ != nil {
		query += ` AND type = ?`
		args = append(args, string(*typ))
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns one of the user's categories or core.ErrNotFound.
func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	return getCategory(ctx, r.db, userID, id)
}

func getCategory(ctx context.Context, q DBTX, userID, id int64) (core.Category, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", translate(err))
	}
	return c, nil
}

// UpdateCategory changes name, color and icon. The type never changes.
// Default categories yield core.ErrProtectedCategory.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c = c.WithDefaults()
	var updated core.Category
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ? AND user_id = ? AND is_default = 0`,
			c.Name, c.Color, c.Icon, c.ID, c.UserID,
		)
		if err != nil {
			return translate(err)
		}
		if err := guardAffected(ctx, tx, res, c.UserID, c.ID); err != nil {
			return err
		}
		updated, err = getCategory(ctx, tx, c.UserID, c.ID)
		return err
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}

	slog.InfoContext(ctx, "Category updated", "user_id", c.UserID, "category_id", c.ID)
	return updated, nil
}

// DeleteCategory removes exactly one non-default category. Transactions
// booked under it are kept with a null category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM categories WHERE id = ? AND user_id = ? AND is_default = 0`, id, userID)
		if err != nil {
			return translate(err)
		}
		return guardAffected(ctx, tx, res, userID, id)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", "user_id", userID, "category_id", id)
	return nil
}

// guardAffected explains a zero-row update or delete: the row is either
// missing or protected.
func guardAffected(ctx context.Context, q DBTX, res sql.Result, userID, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var isDefault bool
	err = q.QueryRowContext(ctx,
		`SELECT is_default FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}
	if isDefault {
		return core.ErrProtectedCategory
	}
	return core.ErrNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c   core.Category
		typ string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon, &c.IsDefault); err != nil {
		return core.Category{}, err
	}
	c.Type = core.EntryType(typ)
	return c, nil
}
