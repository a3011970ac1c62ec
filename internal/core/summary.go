package core

import "time"

// CategoryTotal is the amount booked under one category within a range.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Color      string
	Icon       string
	Total      Money
}

// DashboardStats summarizes a user's ledger for an inclusive date range.
type DashboardStats struct {
	Start              time.Time
	End                time.Time
	TotalIncome        Money
	TotalExpense       Money
	Balance            Money
	ExpensesByCategory []CategoryTotal
	IncomesByCategory  []CategoryTotal
}

// EmptyStats is the zero-valued summary for callers that prefer to render
// nothing over surfacing a store failure.
func EmptyStats(start, end time.Time) DashboardStats {
	return DashboardStats{
		Start:              start,
		End:                end,
		ExpensesByCategory: []CategoryTotal{},
		IncomesByCategory:  []CategoryTotal{},
	}
}
