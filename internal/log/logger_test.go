package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.Info("Transaction created", FieldUserID, 7)
	logger.WithComponent(ComponentStats).Debug("Stats cache hit")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "user_id=7") {
		t.Fatalf("missing fields: %s", out)
	}
	if !strings.Contains(out, "component=stats") {
		t.Fatalf("missing derived component: %s", out)
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithUser(3).
		WithTransaction(10, 2, "expense", 1250).
		WithError(errors.New("boom"), ErrorTypeDatabase).
		WithError(nil, ErrorTypeInternal)

	if f[FieldTransactionID] != int64(10) || f[FieldAmountCents] != int64(1250) {
		t.Fatalf("unexpected fields %v", f)
	}
	if f[FieldErrorType] != ErrorTypeDatabase {
		t.Fatalf("nil error must not overwrite: %v", f)
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Fatalf("ToSlice length = %d", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentHTTP, Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id missing: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("fallback logger should be unknown")
	}
}
