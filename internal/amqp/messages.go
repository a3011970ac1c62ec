package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names a ledger mutation.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		return true
	}
	return false
}

// LedgerEvent is a lightweight notice that a transaction changed. Consumers
// read the current row from the database themselves.
type LedgerEvent struct {
	Kind          EventKind `json:"kind"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind, userID, transactionID int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:          kind,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.UserID <= 0 || e.TransactionID <= 0 {
		return nil, fmt.Errorf("event missing ids")
	}
	return &e, nil
}
