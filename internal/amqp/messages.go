package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to a transaction.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	default:
		return false
	}
}

// TransactionEvent is a lightweight notification. It carries only the
// identity of the row; consumers read the current state from storage.
type TransactionEvent struct {
	Event     EventType `json:"event"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(event EventType, userID, id int64) *TransactionEvent {
	return &TransactionEvent{
		Event:     event,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates a message body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Event.IsValid() {
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
	if msg.ID <= 0 || msg.UserID <= 0 {
		return nil, fmt.Errorf("event without transaction identity")
	}
	return &msg, nil
}
