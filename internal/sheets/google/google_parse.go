package google

import (
	"fmt"
	"strings"

	ports "bolsya/internal/sheets"
)

const (
	headerSpan = "A1:I1"
	columnSpan = "A:I"
)

// checkHeader reports whether values (the first sheet row) already holds
// the ledger header. An empty row is not an error; any other content is.
func checkHeader(values [][]any) (bool, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return false, nil
	}
	got := toStrings(values[0])
	for i, want := range ports.Header {
		if !strings.EqualFold(safeGet(got, i), want) {
			return false, fmt.Errorf("%w: column %d is %q, want %q; got headers=%v", ports.ErrHeaderMismatch, i+1, safeGet(got, i), want, got)
		}
	}
	return true, nil
}

func headerCells() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// rowCells renders row for USER_ENTERED input. Free text that the sheet
// would evaluate as a formula is quoted.
func rowCells(row ports.LedgerRow) []any {
	cells := row.Values()
	for i, v := range cells {
		if s, ok := v.(string); ok && i >= 5 {
			cells[i] = escapeFormula(s)
		}
	}
	return cells
}

func escapeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
