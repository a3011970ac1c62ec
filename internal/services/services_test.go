package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bolsya/internal/amqp"
	"bolsya/internal/auth"
	"bolsya/internal/cache"
	"bolsya/internal/core"
	"bolsya/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, evt *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *evt)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]amqp.EventKind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	repo         *storage.SQLiteRepository
	cache        *cache.LRUCache[core.DashboardStats]
	stats        *StatsService
	categories   *CategoryService
	transactions *TransactionService
	auth         *AuthService
	publisher    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bolsya.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	lru := cache.NewLRUCache[core.DashboardStats](16, time.Minute)
	stats := NewStatsService(repo, lru)
	pub := &recordingPublisher{}
	authSvc := NewAuthService(repo, auth.NewIssuer("test-secret-0123456789", time.Hour)).WithHashCost(bcrypt.MinCost)

	return &fixture{
		repo:         repo,
		cache:        lru,
		stats:        stats,
		categories:   NewCategoryService(repo, stats),
		transactions: NewTransactionService(repo, stats, pub),
		auth:         authSvc,
		publisher:    pub,
	}
}

func (f *fixture) user(t *testing.T, email string) core.User {
	t.Helper()
	s, err := f.auth.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	return s.User
}

func (f *fixture) category(t *testing.T, userID int64, name string) core.Category {
	t.Helper()
	cats, err := f.categories.List(context.Background(), userID, nil)
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found", name)
	return core.Category{}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
