package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bolsya/internal/amqp"
	"bolsya/internal/core"
	"bolsya/internal/storage"
)

// EventPublisher receives a notice for every ledger mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error
}

// TransactionInput is what a caller supplies to book a transaction.
type TransactionInput struct {
	CategoryID  int64
	Amount      core.Money
	Type        core.EntryType
	Date        time.Time
	Description string
}

// TransactionService is the ledger: it validates transactions against
// their category, writes them, then refreshes stats and publishes an event.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	stats     *StatsService
	publisher EventPublisher
}

// NewTransactionService wires the ledger. publisher may be nil when no
// broker is configured.
func NewTransactionService(storage *storage.SQLiteRepository, stats *StatsService, publisher EventPublisher) *TransactionService {
	return &TransactionService{storage: storage, stats: stats, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, in TransactionInput) (core.TransactionView, error) {
	tx := core.Transaction{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Type:        in.Type,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.check(ctx, tx); err != nil {
		return core.TransactionView{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("save transaction: %w", err)
	}

	s.afterWrite(ctx, amqp.TransactionCreated, userID, created.ID)
	return s.storage.GetTransaction(ctx, userID, created.ID)
}

// List returns the user's transactions newest first. Zero bounds are open.
func (s *TransactionService) List(ctx context.Context, userID int64, start, end time.Time) ([]core.TransactionView, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, core.Invalid("range", core.ErrInvalidDate)
	}
	return s.storage.ListTransactions(ctx, userID, storage.TransactionFilter{Start: start, End: end})
}

// Recent returns at most limit transactions by effective date.
func (s *TransactionService) Recent(ctx context.Context, userID int64, limit int) ([]core.TransactionView, error) {
	return s.storage.RecentTransactions(ctx, userID, limit)
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.TransactionView, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

// Update rewrites category, amount, date and description. The type of a
// transaction never changes, so the new category must share it.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, in TransactionInput) (core.TransactionView, error) {
	current, err := s.storage.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("update transaction: %w", err)
	}

	tx := current.Transaction
	tx.CategoryID = in.CategoryID
	tx.Amount = in.Amount
	tx.Date = in.Date
	tx.Description = strings.TrimSpace(in.Description)
	if err := s.check(ctx, tx); err != nil {
		return core.TransactionView{}, err
	}

	if err := s.storage.UpdateTransaction(ctx, tx); err != nil {
		return core.TransactionView{}, err
	}

	s.afterWrite(ctx, amqp.TransactionUpdated, userID, id)
	return s.storage.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.TransactionDeleted, userID, id)
	return nil
}

// check validates tx on its own and against its category.
func (s *TransactionService) check(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.CategoryID <= 0 {
		return core.Invalid("category_id", core.ErrNotFound)
	}
	category, err := s.storage.GetCategory(ctx, tx.UserID, tx.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Invalid("category_id", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if err := tx.CheckCategory(category); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Invalid("category_id", err)
		}
		return err
	}
	return nil
}

func (s *TransactionService) afterWrite(ctx context.Context, kind amqp.EventKind, userID, id int64) {
	s.stats.Invalidate(ctx, userID)

	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher, skipping ledger event", "kind", kind)
		return
	}
	// The write already succeeded; a lost event only delays the export.
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(kind, userID, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "user_id", userID, "transaction_id", id, "error", err)
	}
}
