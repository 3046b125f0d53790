package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// EventType identifies the kind of mutation a causal event records.
type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Known reports whether t is one of the built-in event kinds.
// Unknown kinds are still stored and displayed verbatim.
func (t EventType) Known() bool {
	switch t {
	case EventCreate, EventUpdate, EventDelete:
		return true
	}
	return false
}

// ParentRef is an explicit optional reference to a parent event.
// A zero ParentRef attaches the event to the synthetic root.
type ParentRef struct {
	ID    int64
	Valid bool
}

// Root returns a reference meaning "no causal parent".
func Root() ParentRef {
	return ParentRef{}
}

// Parent returns a reference to the event with the given id. The id 0 is a
// regular identifier, not an absent parent.
func Parent(id int64) ParentRef {
	return ParentRef{ID: id, Valid: true}
}

// MarshalJSON encodes an absent parent as null.
func (p ParentRef) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.ID)
}

// UnmarshalJSON decodes null as an absent parent and any integer, including
// 0, as a present one.
func (p *ParentRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = ParentRef{}
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*p = Parent(id)
	return nil
}

// EventRow is one causal event as returned by the event log query:
// event_dag joined with its event record.
type EventRow struct {
	EventID  int64     `json:"event_id"`
	ParentID ParentRef `json:"parent_id"`
	ItemID   string    `json:"item_id,omitempty"` // empty when absent
	Type     EventType `json:"type"`
	Value    any       `json:"value"`
}

// NewEvent is the input for appending an event to the log.
type NewEvent struct {
	// ID is the event id to store. Zero lets the store assign one.
	ID        int64
	Parent    ParentRef
	ItemID    string
	Type      EventType
	Value     any
	CreatedAt time.Time
}
