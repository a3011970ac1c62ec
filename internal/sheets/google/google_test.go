package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bolsya/internal/core"
	ports "bolsya/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets values API the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	header   []any
	appended [][]any
	gets     int
	failGet  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!A1:I1"):
		f.gets++
		if f.failGet {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"code":500,"message":"backend error"}}`)
			return
		}
		resp := gsheet.ValueRange{Range: "Ledger!A1:I1"}
		if f.header != nil {
			resp.Values = [][]any{f.header}
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPut && strings.HasSuffix(path, "!A1:I1"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.header = vr.Values[0]
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: "Ledger!A1:I1"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		row := len(f.appended) + 1
		_ = json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "Ledger!A" + itoa(row) + ":I" + itoa(row)},
		})
	default:
		http.NotFound(w, r)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Ledger", nil)
}

func sampleRow() ports.LedgerRow {
	return ports.LedgerRow{
		Event:         "transaction.created",
		ExportedAt:    time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC),
		UserID:        3,
		TransactionID: 42,
		Date:          time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC),
		Type:          core.Expense,
		Category:      "Food",
		Amount:        core.Money{Cents: 1250},
		Description:   "=HYPERLINK(\"x\")",
	}
}

func TestAppendLedgerRowWritesHeaderOnce(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.AppendLedgerRow(ctx, sampleRow())
	require.NoError(t, err)
	assert.Equal(t, "Ledger!A2:I2", ref)

	ref, err = c.AppendLedgerRow(ctx, sampleRow())
	require.NoError(t, err)
	assert.Equal(t, "Ledger!A3:I3", ref)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.gets, "header is checked once per client")
	require.Len(t, fake.header, len(ports.Header))
	assert.Equal(t, "Event", fake.header[0])
	require.Len(t, fake.appended, 2)

	cells := fake.appended[0]
	assert.Equal(t, "transaction.created", cells[0])
	assert.Equal(t, "2025-03-18", cells[4])
	assert.Equal(t, "expense", cells[5])
	assert.Equal(t, "12.50", cells[7])
	assert.Equal(t, "'=HYPERLINK(\"x\")", cells[8])
}

func TestAppendLedgerRowKeepsExistingHeader(t *testing.T) {
	fake := &fakeSheets{header: headerCells()}
	c := newTestClient(t, fake)

	_, err := c.AppendLedgerRow(context.Background(), sampleRow())
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.appended, 1)
}

func TestAppendLedgerRowRejectsForeignHeader(t *testing.T) {
	fake := &fakeSheets{header: []any{"Month", "Day", "Description"}}
	c := newTestClient(t, fake)

	_, err := c.AppendLedgerRow(context.Background(), sampleRow())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrHeaderMismatch)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.appended)
}

func TestAppendLedgerRowHeaderReadFailure(t *testing.T) {
	fake := &fakeSheets{failGet: true}
	c := newTestClient(t, fake)

	_, err := c.AppendLedgerRow(context.Background(), sampleRow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read header")

	// The failed check is retried on the next append.
	fake.mu.Lock()
	fake.failGet = false
	fake.mu.Unlock()
	_, err = c.AppendLedgerRow(context.Background(), sampleRow())
	assert.NoError(t, err)
}

func TestAppendLedgerRowValidation(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.AppendLedgerRow(context.Background(), sampleRow())
	assert.EqualError(t, err, "sheets service not initialized")

	fake := &fakeSheets{}
	c = newTestClient(t, fake)
	row := sampleRow()
	row.TransactionID = 0
	_, err = c.AppendLedgerRow(context.Background(), row)
	assert.ErrorIs(t, err, ports.ErrInvalidRow)
}

func TestNewRequiresSettings(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{SheetName: "Ledger", CredentialsJSON: "{}"}, nil)
	assert.EqualError(t, err, "missing spreadsheet id")

	_, err = New(ctx, Config{SpreadsheetID: "id", CredentialsJSON: "{}"}, nil)
	assert.EqualError(t, err, "missing sheet name")

	_, err = New(ctx, Config{SpreadsheetID: "id", SheetName: "Ledger"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(ctx, Config{SpreadsheetID: "id", SheetName: "Ledger", CredentialsJSON: "invalid-json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse service account credentials")

	_, err = New(ctx, Config{SpreadsheetID: "id", SheetName: "Ledger", CredentialsFile: "/nonexistent/sa.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestCheckHeader(t *testing.T) {
	present, err := checkHeader(nil)
	assert.NoError(t, err)
	assert.False(t, present)

	present, err = checkHeader([][]any{{}})
	assert.NoError(t, err)
	assert.False(t, present)

	upper := headerCells()
	upper[0] = "EVENT "
	present, err = checkHeader([][]any{upper})
	assert.NoError(t, err)
	assert.True(t, present)

	_, err = checkHeader([][]any{{"Event", "Exported At"}})
	assert.ErrorIs(t, err, ports.ErrHeaderMismatch)
}

func TestEscapeFormula(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"groceries": "groceries",
		"=SUM(A1)":  "'=SUM(A1)",
		"+39 phone": "'+39 phone",
		"-refund":   "'-refund",
		"@user":     "'@user",
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeFormula(in), in)
	}
}
