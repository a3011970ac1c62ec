package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"bolsya/internal/advisor"
	"bolsya/internal/core"
	"bolsya/internal/services"
)

const dateLayout = "2006-01-02"

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type categoryResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Color     string `json:"color"`
	Icon      string `json:"icon"`
	IsDefault bool   `json:"is_default"`
}

type transactionResponse struct {
	ID            int64      `json:"id"`
	CategoryID    *int64     `json:"category_id"`
	Amount        core.Money `json:"amount"`
	Type          string     `json:"type"`
	Date          string     `json:"date"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
	CategoryName  *string    `json:"category_name"`
	CategoryColor *string    `json:"category_color"`
	CategoryIcon  *string    `json:"category_icon"`
}

type categoryTotalResponse struct {
	CategoryID int64      `json:"category_id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Icon       string     `json:"icon"`
	Total      core.Money `json:"total"`
	Percentage string     `json:"percentage"`
}

type statsResponse struct {
	Start              time.Time               `json:"start"`
	End                time.Time               `json:"end"`
	Label              string                  `json:"label,omitempty"`
	TotalIncome        core.Money              `json:"total_income"`
	TotalExpense       core.Money              `json:"total_expense"`
	Balance            core.Money              `json:"balance"`
	Formatted          formattedTotals         `json:"formatted"`
	ExpensesByCategory []categoryTotalResponse `json:"expenses_by_category"`
	IncomesByCategory  []categoryTotalResponse `json:"incomes_by_category"`
}

type formattedTotals struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	Balance      string `json:"balance"`
}

type chatMessageResponse struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type chatReplyResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type chatContextResponse struct {
	Context string `json:"context"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func newUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func newSessionResponse(s services.Session) sessionResponse {
	return sessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: newUserResponse(s.User)}
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.Type.String(),
		Color:     c.Color,
		Icon:      c.Icon,
		IsDefault: c.IsDefault,
	}
}

func newCategoryResponses(cs []core.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, newCategoryResponse(c))
	}
	return out
}

func newTransactionResponse(v core.TransactionView) transactionResponse {
	resp := transactionResponse{
		ID:            v.ID,
		Amount:        v.Amount,
		Type:          v.Type.String(),
		Date:          v.Date.UTC().Format(dateLayout),
		Description:   v.Description,
		CreatedAt:     v.CreatedAt,
		CategoryName:  v.CategoryName,
		CategoryColor: v.CategoryColor,
		CategoryIcon:  v.CategoryIcon,
	}
	if v.CategoryID > 0 {
		id := v.CategoryID
		resp.CategoryID = &id
	}
	return resp
}

func newTransactionResponses(vs []core.TransactionView) []transactionResponse {
	out := make([]transactionResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, newTransactionResponse(v))
	}
	return out
}

func newCategoryTotals(totals []core.CategoryTotal, sum core.Money) []categoryTotalResponse {
	out := make([]categoryTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, categoryTotalResponse{
			CategoryID: t.CategoryID,
			Name:       t.Name,
			Color:      t.Color,
			Icon:       t.Icon,
			Total:      t.Total,
			Percentage: advisor.Percentage(t.Total, sum),
		})
	}
	return out
}

// rangeLabel names the month when start..end covers exactly one calendar
// month; other ranges get no label.
func rangeLabel(start, end time.Time) string {
	monthStart, monthEnd := core.MonthRange(start)
	if !start.Equal(monthStart) || !end.Equal(monthEnd) {
		return ""
	}
	return core.MonthLabel(start)
}

func newStatsResponse(s core.DashboardStats) statsResponse {
	return statsResponse{
		Start:        s.Start,
		End:          s.End,
		Label:        rangeLabel(s.Start, s.End),
		TotalIncome:  s.TotalIncome,
		TotalExpense: s.TotalExpense,
		Balance:      s.Balance,
		Formatted: formattedTotals{
			TotalIncome:  core.FormatMoney(s.TotalIncome),
			TotalExpense: core.FormatMoney(s.TotalExpense),
			Balance:      core.FormatMoney(s.Balance),
		},
		ExpensesByCategory: newCategoryTotals(s.ExpensesByCategory, s.TotalExpense),
		IncomesByCategory:  newCategoryTotals(s.IncomesByCategory, s.TotalIncome),
	}
}

func newChatMessageResponses(ms []core.ChatMessage) []chatMessageResponse {
	out := make([]chatMessageResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, chatMessageResponse{ID: m.ID, Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}
