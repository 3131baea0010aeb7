package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventEntrySubmitted EventType = "entry_submitted"
)

// Event represents an immutable domain event.
type Event struct {
	Type  EventType `json:"type"`
	Time  time.Time `json:"time"`
	Entry Entry     `json:"entry"`
}

func NewEntrySubmitted(e Entry) Event {
	return Event{Type: EventEntrySubmitted, Time: time.Now().UTC(), Entry: e}
}
