package memory

import (
	"context"
	"fmt"
	"sync"

	ports "bolsya/internal/sheets"
)

var _ ports.LedgerExporter = (*Store)(nil)

// Store keeps exported rows in memory. It backs the worker when no
// spreadsheet is configured and in tests.
type Store struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
	fail error
}

func New() *Store {
	return &Store{}
}

// AppendLedgerRow stores the row and returns a synthetic row reference.
func (s *Store) AppendLedgerRow(_ context.Context, row ports.LedgerRow) (string, error) {
	if row.TransactionID <= 0 {
		return "", ports.ErrInvalidRow
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)+1), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []ports.LedgerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.LedgerRow(nil), s.rows...)
}

// FailWith makes subsequent appends return err; nil restores normal behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
