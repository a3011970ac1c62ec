package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, perWindow int) (*Limiter, *fakeClock) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerWindow: perWindow, Window: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("user:1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("user:1") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("user:2") {
		t.Fatal("other key should have its own budget")
	}

	clock.t = clock.t.Add(time.Minute)
	if !rl.Allow("user:1") {
		t.Fatal("window did not reset")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Errorf("TotalHits = %d, want 1", got)
	}
}

func TestLimiter_WindowDoesNotSlide(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	rl.Allow("k")
	clock.t = clock.t.Add(50 * time.Second)
	rl.Allow("k")
	if rl.Allow("k") {
		t.Fatal("third request in window allowed")
	}
	if got := rl.RetryAfter("k"); got != 10*time.Second {
		t.Errorf("RetryAfter = %v, want 10s", got)
	}
	clock.t = clock.t.Add(10 * time.Second)
	if !rl.Allow("k") {
		t.Fatal("request after window rejected")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, clock := newTestLimiter(t, 5)
	rl.Allow("a")
	clock.t = clock.t.Add(9 * time.Minute)
	rl.Allow("b")
	clock.t = clock.t.Add(2 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(r *http.Request) string { return r.Header.Get("X-Key") }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Key", key)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := send("a"); rr.Code != http.StatusOK {
		t.Fatalf("first status = %d", rr.Code)
	}
	rr := send("a")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	for i := 0; i < 3; i++ {
		if rr := send(""); rr.Code != http.StatusOK {
			t.Fatalf("unkeyed request limited: %d", rr.Code)
		}
	}
}
