package storage

import (
	"context"
	"fmt"
	"time"

	"bolsya/internal/core"
)

const categoryTotalsQuery = `
SELECT c.id, c.name, c.color, c.icon, COALESCE(SUM(t.amount_cents), 0) AS total
FROM categories c
LEFT JOIN transactions t
       ON t.category_id = c.id
      AND t.user_id = c.user_id
      AND t.type = c.type
      AND t.date BETWEEN ? AND ?
WHERE c.user_id = ? AND c.type = ?
GROUP BY c.id, c.name, c.color, c.icon
HAVING total > 0
ORDER BY total DESC, c.id ASC`

// DashboardStats aggregates the user's transactions dated within the
// inclusive range [start, end].
func (r *SQLiteRepository) DashboardStats(ctx context.Context, userID int64, start, end time.Time) (core.DashboardStats, error) {
	stats := core.EmptyStats(start, end)
	from, to := core.FormatStoredTime(start), core.FormatStoredTime(end)

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'income'  THEN amount_cents END), 0),
		       COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
		FROM transactions
		WHERE user_id = ? AND date BETWEEN ? AND ?`,
		userID, from, to,
	).Scan(&stats.TotalIncome.Cents, &stats.TotalExpense.Cents)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("sum totals: %w", err)
	}
	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpense)

	if stats.ExpensesByCategory, err = r.categoryTotals(ctx, userID, core.Expense, from, to); err != nil {
		return core.DashboardStats{}, err
	}
	if stats.IncomesByCategory, err = r.categoryTotals(ctx, userID, core.Income, from, to); err != nil {
		return core.DashboardStats{}, err
	}
	return stats, nil
}

func (r *SQLiteRepository) categoryTotals(ctx context.Context, userID int64, typ core.EntryType, from, to string) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, categoryTotalsQuery, from, to, userID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("sum %s categories: %w", typ, err)
	}
	defer rows.Close()

	totals := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Color, &ct.Icon, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}
