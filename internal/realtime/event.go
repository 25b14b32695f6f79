package realtime

import (
	"encoding/json"
	"time"
)

// EventType names a relay message.
type EventType string

const (
	EventJoin     EventType = "join"
	EventLeave    EventType = "leave"
	EventQuestion EventType = "question"
	EventAnswer   EventType = "answer"
	EventPoll     EventType = "poll"
	EventError    EventType = "error"
)

// Event is the wire format fanned out to every participant of a session.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SentAt    time.Time       `json:"sentAt"`
}

// Inbound is a message received from a participant.
type Inbound struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent builds an event stamped with the current time. payload is marshalled when not nil.
func NewEvent(typ EventType, sessionID, userID, userName string, payload interface{}) (Event, error) {
	evt := Event{Type: typ, SessionID: sessionID, UserID: userID, UserName: userName, SentAt: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		evt.Payload = raw
	}
	return evt, nil
}
