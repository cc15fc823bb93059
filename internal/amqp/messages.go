package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Op is the ledger write a LedgerEvent reports.
type Op string

// LedgerEvent announces a transaction write. It carries the coordinates the
// worker needs to recompute alerts, not the full record.
type LedgerEvent struct {
	Owner         string    `json:"owner"`
	TransactionID string    `json:"transactionId"`
	Op            Op        `json:"op"`
	Kind          string    `json:"kind"`
	Category      string    `json:"category"`
	OccurredAt    time.Time `json:"occurredAt"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(owner, transactionID string, op Op, kind, category string, occurredAt time.Time) *LedgerEvent {
	return &LedgerEvent{
		Owner:         owner,
		TransactionID: transactionID,
		Op:            op,
		Kind:          kind,
		Category:      category,
		OccurredAt:    occurredAt,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity checks an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Owner == "" {
		return nil, fmt.Errorf("ledger event without owner")
	}
	switch msg.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, fmt.Errorf("unknown ledger event op %q", msg.Op)
	}
	return &msg, nil
}
