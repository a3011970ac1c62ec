package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bolsya/internal/amqp"
	"bolsya/internal/core"
	"bolsya/internal/log"
	"bolsya/internal/sheets"
	"bolsya/internal/storage"
)

// EventSource delivers ledger events. *amqp.Client satisfies it.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
	Reconnect() error
}

// ExportStats counts handled events since the worker was created.
type ExportStats struct {
	Exported int64
	Skipped  int64
	Failed   int64
}

// ExportWorker mirrors ledger changes into an external journal, one row per
// event. It reads the current transaction from SQLite because events only
// carry ids.
type ExportWorker struct {
	storage  *storage.SQLiteRepository
	exporter sheets.LedgerExporter
	source   EventSource
	logger   *log.Logger
	now      func() time.Time
	backoff  func(attempt int) time.Duration
	// retryDelay spaces redeliveries of events whose export failed for a
	// transient reason.
	retryDelay time.Duration

	exported atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter sheets.LedgerExporter, source EventSource, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &ExportWorker{
		storage:  storage,
		exporter: exporter,
		source:   source,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:        time.Now,
		backoff:    amqp.Backoff,
		retryDelay: 2 * time.Second,
	}
}

// HandleLedgerEvent exports one event. Events for transactions that no
// longer exist are skipped unless they are deletions, which are exported
// with their ids only. Errors wrapping amqp.ErrPermanent make the broker
// drop the event; any other error asks for redelivery after retryDelay.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	logger := w.logger.With(
		log.FieldEventKind, string(evt.Kind),
		log.FieldUserID, evt.UserID,
		log.FieldTransactionID, evt.TransactionID,
	)

	row, err := w.buildRow(ctx, evt)
	if errors.Is(err, core.ErrNotFound) {
		w.skipped.Add(1)
		logger.InfoContext(ctx, "Transaction no longer exists, skipping export")
		return nil
	}
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("load transaction %d: %w", evt.TransactionID, err)
	}

	ref, err := w.exporter.AppendLedgerRow(ctx, row)
	if err != nil {
		w.failed.Add(1)
		if errors.Is(err, sheets.ErrHeaderMismatch) || errors.Is(err, sheets.ErrInvalidRow) {
			logger.ErrorContext(ctx, "Ledger row cannot be exported, dropping event", log.FieldError, err.Error())
			return amqp.Permanent(fmt.Errorf("export ledger row: %w", err))
		}
		logger.ErrorContext(ctx, "Failed to export ledger row", log.FieldError, err.Error())
		w.waitRetry(ctx)
		return fmt.Errorf("export ledger row: %w", err)
	}

	w.exported.Add(1)
	logger.InfoContext(ctx, "Ledger event exported", "row_ref", ref)
	return nil
}

func (w *ExportWorker) waitRetry(ctx context.Context) {
	if w.retryDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.retryDelay):
	}
}

func (w *ExportWorker) buildRow(ctx context.Context, evt *amqp.LedgerEvent) (sheets.LedgerRow, error) {
	at := w.now().UTC()
	if evt.Kind == amqp.TransactionDeleted {
		return sheets.LedgerRow{
			Event:         string(evt.Kind),
			ExportedAt:    at,
			UserID:        evt.UserID,
			TransactionID: evt.TransactionID,
		}, nil
	}

	view, err := w.storage.GetTransaction(ctx, evt.UserID, evt.TransactionID)
	if err != nil {
		return sheets.LedgerRow{}, err
	}
	return sheets.RowFromView(string(evt.Kind), at, view), nil
}

// Stats returns the event counters.
func (w *ExportWorker) Stats() ExportStats {
	return ExportStats{
		Exported: w.exported.Load(),
		Skipped:  w.skipped.Load(),
		Failed:   w.failed.Load(),
	}
}

// Start begins consuming events. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("export worker is already running")
	}
	if w.source == nil {
		return fmt.Errorf("export worker has no event source")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	go w.runLoop(runCtx, w.doneCh)

	w.logger.InfoContext(ctx, "Export worker started")
	return nil
}

// Stop cancels consumption and waits for the loop to exit.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the worker is currently consuming.
func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Done is closed when the consume loop exits, either through Stop or
// because the parent context ended.
func (w *ExportWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// runLoop consumes until ctx ends, reconnecting with backoff whenever the
// broker link drops.
func (w *ExportWorker) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		err := w.source.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
		if ctx.Err() != nil {
			return
		}

		delay := w.backoff(attempt)
		w.logger.WarnContext(ctx, "Event consumption interrupted, reconnecting",
			log.FieldError, fmt.Sprint(err),
			"connection_error", amqp.IsConnectionError(err),
			"attempt", attempt+1,
			"delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := w.source.Reconnect(); err != nil {
			w.logger.ErrorContext(ctx, "Reconnect failed", log.FieldError, err.Error(), "attempt", attempt+1)
			attempt++
			continue
		}
		attempt = 0
	}
}
