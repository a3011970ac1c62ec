package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bolsya/internal/advisor"
	"bolsya/internal/auth"
	"bolsya/internal/cache"
	"bolsya/internal/core"
	"bolsya/internal/services"
	"bolsya/internal/storage"
)

type testAPI struct {
	t      *testing.T
	srv    *Server
}

func newTestAPI(t *testing.T, adv advisor.Advisor, chatPerMinute int) *testAPI {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bolsya.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	issuer := auth.NewIssuer("http-test-secret-0123456789", time.Hour)
	stats := services.NewStatsService(repo, cache.NewLRUCache[core.DashboardStats](32, time.Minute))
	svc := Services{
		Auth:         services.NewAuthService(repo, issuer).WithHashCost(bcrypt.MinCost),
		Categories:   services.NewCategoryService(repo, stats),
		Transactions: services.NewTransactionService(repo, stats, nil),
		Stats:        stats,
		Chat:         services.NewChatService(repo, stats, adv, 10, 100),
	}
	srv := NewServer(":0", svc, Options{
		Issuer:                issuer,
		Ready:                 repo.Ping,
		ChatRequestsPerMinute: chatPerMinute,
	})
	srv.now = func() time.Time { return time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	var s sessionResponse
	decode(a.t, rr, &s)
	return s.Token
}

func (a *testAPI) categoryID(token, name string) int64 {
	a.t.Helper()
	var cats []categoryResponse
	decode(a.t, a.do(http.MethodGet, "/api/categories", token, nil), &cats)
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	a.t.Fatalf("category %q not found", name)
	return 0
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, nil, 10)

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, want, rr.Body.String())
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	token := api.register("flow@example.com")

	rr := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "flow@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@example.com", "password": "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var e errorResponse
	decode(t, rr, &e)
	assert.Equal(t, "password", e.Field)

	rr = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "flow@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "flow@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = api.do(http.MethodGet, "/api/auth/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me userResponse
	decode(t, rr, &me)
	assert.Equal(t, "flow@example.com", me.Email)
}

func TestMalformedBodies(t *testing.T) {
	api := newTestAPI(t, nil, 10)

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "{"},
		{"unknown field", `{"email":"a@b.c","password":"password123","admin":true}`},
		{"two objects", `{"email":"a@b.c","password":"password123"}{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestCategoryEndpoints(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	token := api.register("cats@example.com")

	var cats []categoryResponse
	decode(t, api.do(http.MethodGet, "/api/categories", token, nil), &cats)
	assert.Len(t, cats, 12)

	decode(t, api.do(http.MethodGet, "/api/categories?type=income", token, nil), &cats)
	assert.Len(t, cats, 4)
	rr := api.do(http.MethodGet, "/api/categories?type=transfer", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = api.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Pets", "type": "expense", "color": "blue"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = api.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Pets", "type": "expense"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var pets categoryResponse
	decode(t, rr, &pets)
	assert.Equal(t, core.DefaultColor, pets.Color)
	assert.False(t, pets.IsDefault)

	rr = api.do(http.MethodPut, "/api/categories/"+itoa(pets.ID), token, map[string]string{"name": "Animals", "icon": "paw"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var renamed categoryResponse
	decode(t, rr, &renamed)
	assert.Equal(t, "Animals", renamed.Name)
	assert.Equal(t, "paw", renamed.Icon)

	food := api.categoryID(token, "Food")
	rr = api.do(http.MethodPut, "/api/categories/"+itoa(food), token, map[string]string{"name": "Groceries"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = api.do(http.MethodDelete, "/api/categories/"+itoa(food), token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(http.MethodDelete, "/api/categories/"+itoa(pets.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = api.do(http.MethodGet, "/api/categories/"+itoa(pets.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(http.MethodGet, "/api/categories/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTransactionEndpoints(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	token := api.register("tx@example.com")
	food := api.categoryID(token, "Food")
	salary := api.categoryID(token, "Salary")

	rr := api.do(http.MethodPost, "/api/transactions", token, map[string]any{
		"category_id": food, "amount": "12,50", "type": "expense", "date": "2025-03-05", "description": "lunch",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created transactionResponse
	decode(t, rr, &created)
	assert.Equal(t, int64(1250), created.Amount.Cents)
	assert.Equal(t, "2025-03-05", created.Date)
	require.NotNil(t, created.CategoryName)
	assert.Equal(t, "Food", *created.CategoryName)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"negative amount", map[string]any{"category_id": food, "amount": -5, "type": "expense", "date": "2025-03-05"}, "amount"},
		{"missing amount", map[string]any{"category_id": food, "type": "expense", "date": "2025-03-05"}, "amount"},
		{"bad date", map[string]any{"category_id": food, "amount": 5, "type": "expense", "date": "05/03/2025"}, "date"},
		{"type mismatch", map[string]any{"category_id": salary, "amount": 5, "type": "expense", "date": "2025-03-05"}, "type"},
		{"unknown category", map[string]any{"category_id": 9999, "amount": 5, "type": "expense", "date": "2025-03-05"}, "category_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(http.MethodPost, "/api/transactions", token, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			var e errorResponse
			decode(t, rr, &e)
			assert.Equal(t, tt.field, e.Field)
		})
	}

	path := "/api/transactions/" + itoa(created.ID)
	rr = api.do(http.MethodPut, path, token, map[string]any{
		"category_id": food, "amount": 20, "date": "2025-03-06", "description": "dinner",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated transactionResponse
	decode(t, rr, &updated)
	assert.Equal(t, "expense", updated.Type)
	assert.Equal(t, int64(2000), updated.Amount.Cents)

	var list []transactionResponse
	decode(t, api.do(http.MethodGet, "/api/transactions?start=2025-03-06&end=2025-03-06", token, nil), &list)
	require.Len(t, list, 1)
	decode(t, api.do(http.MethodGet, "/api/transactions?month=2025-02", token, nil), &list)
	assert.Empty(t, list)
	decode(t, api.do(http.MethodGet, "/api/transactions", token, nil), &list)
	assert.Len(t, list, 1)
	decode(t, api.do(http.MethodGet, "/api/transactions/recent?limit=5", token, nil), &list)
	assert.Len(t, list, 1)

	other := api.register("other@example.com")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, other, nil).Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, token, nil).Code)
}

func TestDashboardEndpoint(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	token := api.register("dash@example.com")
	food := api.categoryID(token, "Food")
	salary := api.categoryID(token, "Salary")

	for _, body := range []map[string]any{
		{"category_id": salary, "amount": "5000", "type": "income", "date": "2025-03-01"},
		{"category_id": food, "amount": "1000", "type": "expense", "date": "2025-03-02"},
		{"category_id": food, "amount": "2000", "type": "expense", "date": "2025-03-03"},
		{"category_id": food, "amount": "999", "type": "expense", "date": "2025-04-01"},
	} {
		rr := api.do(http.MethodPost, "/api/transactions", token, body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	// No parameters means the current month, which the test clock puts in March 2025.
	rr := api.do(http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var stats statsResponse
	decode(t, rr, &stats)
	assert.Equal(t, "March 2025", stats.Label)
	assert.Equal(t, int64(500000), stats.TotalIncome.Cents)
	assert.Equal(t, int64(300000), stats.TotalExpense.Cents)
	assert.Equal(t, int64(200000), stats.Balance.Cents)
	assert.Equal(t, "$2.000,00", stats.Formatted.Balance)
	require.Len(t, stats.ExpensesByCategory, 1)
	assert.Equal(t, "100.0", stats.ExpensesByCategory[0].Percentage)

	var spanning statsResponse
	decode(t, api.do(http.MethodGet, "/api/dashboard?start=2025-03-01&end=2025-04-30", token, nil), &spanning)
	assert.Equal(t, int64(399900), spanning.TotalExpense.Cents)
	assert.Empty(t, spanning.Label, "ranges spanning months are not named after one")

	var april statsResponse
	decode(t, api.do(http.MethodGet, "/api/dashboard?start=2025-04-01&end=2025-04-30", token, nil), &april)
	assert.Equal(t, "April 2025", april.Label)

	var partial statsResponse
	decode(t, api.do(http.MethodGet, "/api/dashboard?start=2025-03-02&end=2025-03-31", token, nil), &partial)
	assert.Empty(t, partial.Label)

	rr = api.do(http.MethodGet, "/api/dashboard?start=2025-04-01&end=2025-03-01", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestChatEndpoints(t *testing.T) {
	calls := 0
	adv := advisor.AdvisorFunc(func(_ context.Context, fc, q string) (string, error) {
		calls++
		if strings.Contains(q, "quota") {
			return "", advisor.Classify(errors.New("Error 429: resource exhausted, quota exceeded"))
		}
		return "Spend less on food.", nil
	})
	api := newTestAPI(t, adv, 3)
	token := api.register("chat@example.com")

	rr := api.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "How am I doing?"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var reply chatReplyResponse
	decode(t, rr, &reply)
	assert.Equal(t, "Spend less on food.", reply.Answer)

	rr = api.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = api.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "quota please"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = api.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "again"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, 2, calls)

	var history []chatMessageResponse
	decode(t, api.do(http.MethodGet, "/api/chat/history", token, nil), &history)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)

	var ctxResp chatContextResponse
	decode(t, api.do(http.MethodGet, "/api/chat/context", token, nil), &ctxResp)
	assert.Contains(t, ctxResp.Context, "CURRENT PERIOD SUMMARY:")

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/chat/history", token, nil).Code)
	decode(t, api.do(http.MethodGet, "/api/chat/history", token, nil), &history)
	assert.Empty(t, history)
}

func TestChatWithoutModel(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	token := api.register("nomodel@example.com")

	rr := api.do(http.MethodPost, "/api/chat", token, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSuspiciousRequestsAreBlocked(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	rr := api.do(http.MethodGet, "/.env", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t, nil, 10)
	rr := api.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var e errorResponse
	decode(t, rr, &e)
	assert.Equal(t, "not found", e.Error)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
