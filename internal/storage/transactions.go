package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bolsya/internal/core"
)

const transactionViewQuery = `
SELECT t.id, t.user_id, t.category_id, t.amount_cents, t.type, t.date, t.description, t.created_at,
       c.name, c.color, c.icon
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

// TransactionFilter narrows ListTransactions. Zero values mean unbounded.
type TransactionFilter struct {
	Start time.Time
	End   time.Time
	Limit int
}

// CreateTransaction inserts t as given; consistency with its category is
// checked by the caller.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var created string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (user_id, category_id, amount_cents, type, date, description)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id, created_at`,
		t.UserID, t.CategoryID, t.Amount.Cents, string(t.Type), core.FormatStoredTime(t.Date), t.Description,
	).Scan(&t.ID, &created)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", translate(err))
	}
	if t.CreatedAt, err = core.ParseStoredTime(created); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", t.UserID,
		"transaction_id", t.ID,
		"category_id", t.CategoryID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)
	return t, nil
}

// ListTransactions returns the user's transactions joined with their
// category, newest first (date, then creation time, then id).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.TransactionView, error) {
	query := transactionViewQuery + ` WHERE t.user_id = ?`
	args := []any{userID}
	if !f.Start.IsZero() {
		query += ` AND t.date >= ?`
		args = append(args, core.FormatStoredTime(f.Start))
	}
	if !f.End.IsZero() {
		query += ` AND t.date <= ?`
		args = append(args, core.FormatStoredTime(f.End))
	}
	query += ` ORDER BY t.date DESC, t.created_at DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	views := []core.TransactionView{}
	for rows.Next() {
		v, err := scanTransactionView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return views, nil
}

// RecentTransactions returns the user's most recently dated transactions.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.TransactionView, error) {
	return r.ListTransactions(ctx, userID, TransactionFilter{Limit: limit})
}

// GetTransaction returns one of the user's transactions or core.ErrNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.TransactionView, error) {
	row := r.db.QueryRowContext(ctx, transactionViewQuery+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	v, err := scanTransactionView(row)
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("get transaction: %w", translate(err))
	}
	return v, nil
}

// UpdateTransaction rewrites category, amount, date and description. The
// stored type is left untouched.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, amount_cents = ?, date = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		t.CategoryID, t.Amount.Cents, core.FormatStoredTime(t.Date), t.Description, t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", translate(err))
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "user_id", t.UserID, "transaction_id", t.ID)
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "user_id", userID, "transaction_id", id)
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanTransactionView(s rowScanner) (core.TransactionView, error) {
	var (
		v                  core.TransactionView
		categoryID         sql.NullInt64
		typ, date, created string
		name, color, icon  sql.NullString
	)
	err := s.Scan(&v.ID, &v.UserID, &categoryID, &v.Amount.Cents, &typ, &date, &v.Description, &created,
		&name, &color, &icon)
	if err != nil {
		return core.TransactionView{}, err
	}
	v.CategoryID = categoryID.Int64
	v.Type = core.EntryType(typ)
	if v.Date, err = core.ParseStoredTime(date); err != nil {
		return core.TransactionView{}, err
	}
	if v.CreatedAt, err = core.ParseStoredTime(created); err != nil {
		return core.TransactionView{}, err
	}
	v.CategoryName = nullable(name)
	v.CategoryColor = nullable(color)
	v.CategoryIcon = nullable(icon)
	return v, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
