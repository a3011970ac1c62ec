package sheets

import (
	"context"
	"errors"
	"time"

	"bolsya/internal/core"
)

var (
	// ErrHeaderMismatch means the target sheet starts with a row that is not
	// the ledger header. Retrying cannot fix it.
	ErrHeaderMismatch = errors.New("unexpected ledger header")
	ErrInvalidRow     = errors.New("ledger row without transaction id")
)

// Header is the first row of the ledger sheet. Row values follow its order.
var Header = []string{"Event", "Exported At", "User", "Transaction", "Date", "Type", "Category", "Amount", "Description"}

// LedgerRow is one exported ledger change. Deleted transactions only carry
// their ids.
type LedgerRow struct {
	Event         string
	ExportedAt    time.Time
	UserID        int64
	TransactionID int64
	Date          time.Time
	Type          core.EntryType
	Category      string
	Amount        core.Money
	Description   string
}

// RowFromView builds the row for a transaction that still exists.
func RowFromView(event string, at time.Time, v core.TransactionView) LedgerRow {
	return LedgerRow{
		Event:         event,
		ExportedAt:    at.UTC(),
		UserID:        v.UserID,
		TransactionID: v.ID,
		Date:          v.Date.UTC(),
		Type:          v.Type,
		Category:      v.CategoryLabel(),
		Amount:        v.Amount,
		Description:   v.Description,
	}
}

// Values renders the row as sheet cells. Amounts are plain decimals so the
// sheet can sum them.
func (r LedgerRow) Values() []any {
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.Format("2006-01-02")
	}
	amount := ""
	if r.Amount.Cents != 0 {
		amount = r.Amount.Decimal().StringFixed(2)
	}
	return []any{
		r.Event,
		r.ExportedAt.UTC().Format(time.RFC3339),
		r.UserID,
		r.TransactionID,
		date,
		string(r.Type),
		r.Category,
		amount,
		r.Description,
	}
}

// LedgerExporter appends ledger rows to an external journal.
type LedgerExporter interface {
	AppendLedgerRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
}
