package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", seen, err)
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestMiddleware_ReusesIncomingID(t *testing.T) {
	m := NewMiddleware(nil)
	incoming := uuid.NewString()

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"valid uuid", incoming, true},
		{"garbage", "not-an-id\r\nX-Evil: 1", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if (seen == tt.header) != tt.reuse {
				t.Errorf("seen = %q, header = %q, reuse = %v", seen, tt.header, tt.reuse)
			}
		})
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(nil)
	ok := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	fail := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	fail.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	if got.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", got.TotalRequests)
	}
	if got.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", got.ServerErrors)
	}
}
