package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger mutation.
type EventType string

const (
	EntryAdded   EventType = "entry.added"
	EntryDeleted EventType = "entry.deleted"
)

// EntryEvent announces a change to the ledger together with the budget that
// resulted from it. Amounts travel as decimal strings.
type EntryEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Category    string    `json:"category"`
	EntryID     int       `json:"entry_id"`
	Description string    `json:"description,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Budget      string    `json:"budget"`
	Percentage  *int      `json:"percentage"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryEvent creates an event with a fresh id and timestamp.
func NewEntryEvent(t EventType, category string, entryID int) *EntryEvent {
	return &EntryEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Category:  category,
		EntryID:   entryID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventFromJSON creates an event from JSON bytes
func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
