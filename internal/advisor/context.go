package advisor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bolsya/internal/core"
)

const noDataText = "No financial data available."

// FinancialContext is everything the advice generator gets to see about a
// user: the aggregated period and the latest transactions.
type FinancialContext struct {
	Stats  core.DashboardStats
	Recent []core.TransactionView
}

// BuildContext renders fc as the plain-text data block of the prompt. The
// output is deterministic for a given input.
func BuildContext(fc *FinancialContext) string {
	if fc == nil {
		return noDataText
	}
	s := fc.Stats

	var b strings.Builder
	b.WriteString("CURRENT PERIOD SUMMARY:\n")
	fmt.Fprintf(&b, "- Balance: %s\n", core.FormatMoney(s.Balance))
	fmt.Fprintf(&b, "- Total income: %s\n", core.FormatMoney(s.TotalIncome))
	fmt.Fprintf(&b, "- Total expenses: %s\n", core.FormatMoney(s.TotalExpense))

	if len(s.ExpensesByCategory) > 0 {
		b.WriteString("\nEXPENSES BY CATEGORY:\n")
		for _, ct := range s.ExpensesByCategory {
			fmt.Fprintf(&b, "- %s: %s (%s%%)\n", ct.Name, core.FormatMoney(ct.Total), Percentage(ct.Total, s.TotalExpense))
		}
	}

	if len(s.IncomesByCategory) > 0 {
		b.WriteString("\nINCOME BY CATEGORY:\n")
		for _, ct := range s.IncomesByCategory {
			fmt.Fprintf(&b, "- %s: %s\n", ct.Name, core.FormatMoney(ct.Total))
		}
	}

	if len(fc.Recent) > 0 {
		fmt.Fprintf(&b, "\nLAST %d TRANSACTIONS:\n", len(fc.Recent))
		for _, tx := range fc.Recent {
			sign := "-"
			if tx.Type == core.Income {
				sign = "+"
			}
			fmt.Fprintf(&b, "- %s %s: %s%s", tx.Date.Format("2006-01-02"), tx.CategoryLabel(), sign, core.FormatMoney(tx.Amount))
			if tx.Description != "" {
				fmt.Fprintf(&b, " (%s)", tx.Description)
			}
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Percentage returns part/total*100 with one decimal, or "0" when total
// is zero.
func Percentage(part, total core.Money) string {
	if total.Cents == 0 {
		return "0"
	}
	return decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total.Cents)).
		Round(1).
		StringFixed(1)
}
