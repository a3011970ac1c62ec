package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bolsya/internal/cache"
	"bolsya/internal/core"
	"bolsya/internal/storage"
)

// StatsService serves the aggregation engine, memoizing results per user
// and range until that user's ledger changes.
type StatsService struct {
	storage *storage.SQLiteRepository
	cache   cache.Cache[core.DashboardStats]

	// generations counts invalidations per user. A result is only kept in
	// the cache when no invalidation happened while it was computed.
	mu          sync.Mutex
	generations map[int64]uint64
}

// NewStatsService wires the store and an optional cache (nil disables
// caching).
func NewStatsService(storage *storage.SQLiteRepository, c cache.Cache[core.DashboardStats]) *StatsService {
	return &StatsService{storage: storage, cache: c, generations: make(map[int64]uint64)}
}

// Dashboard aggregates the user's transactions in [start, end]. Store
// failures are returned; callers wanting a blank dashboard can fall back
// to core.EmptyStats.
func (s *StatsService) Dashboard(ctx context.Context, userID int64, start, end time.Time) (core.DashboardStats, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return core.DashboardStats{}, core.Invalid("range", core.ErrInvalidDate)
	}

	key := statsKey(userID, start, end)
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Stats cache hit", "user_id", userID)
			return stats, nil
		}
	}

	gen := s.generation(userID)
	stats, err := s.storage.DashboardStats(ctx, userID, start, end)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}

	if s.cache != nil && s.generation(userID) == gen {
		s.cache.Set(key, stats)
		// An invalidation racing the Set may have run its DeletePrefix
		// before the value landed.
		if s.generation(userID) != gen {
			s.cache.Delete(key)
		}
	}
	return stats, nil
}

func (s *StatsService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// Invalidate drops every cached aggregate of the user.
func (s *StatsService) Invalidate(ctx context.Context, userID int64) {
	if s == nil || s.cache == nil {
		return
	}
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()

	if n := s.cache.DeletePrefix(statsUserPrefix(userID)); n > 0 {
		slog.DebugContext(ctx, "Stats cache invalidated", "user_id", userID, "entries", n)
	}
}

func statsUserPrefix(userID int64) string {
	return fmt.Sprintf("stats:%d:", userID)
}

func statsKey(userID int64, start, end time.Time) string {
	return statsUserPrefix(userID) + core.FormatStoredTime(start) + "/" + core.FormatStoredTime(end)
}
