package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kern/internal/auth"
)

// SessionEventMessage carries a session transition between instances.
// Origin identifies the publishing process so it can skip its own echo.
type SessionEventMessage struct {
	Type       auth.EventType `json:"type"`
	SessionKey string         `json:"session_key"`
	Origin     string         `json:"origin"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewSessionEventMessage wraps event for publishing from origin.
func NewSessionEventMessage(event auth.Event, origin string) *SessionEventMessage {
	ts := event.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &SessionEventMessage{
		Type:       event.Type,
		SessionKey: event.SessionKey,
		Origin:     origin,
		Timestamp:  ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *SessionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts the message back into a local event.
func (m *SessionEventMessage) Event() auth.Event {
	return auth.Event{Type: m.Type, SessionKey: m.SessionKey, At: m.Timestamp}
}

// SessionEventMessageFromJSON decodes a message
func SessionEventMessageFromJSON(data []byte) (*SessionEventMessage, error) {
	var msg SessionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" || msg.SessionKey == "" {
		return nil, fmt.Errorf("session event without type or key")
	}
	return &msg, nil
}

// decodeForeign decodes body and reports whether it came from another
// instance. Own messages are dropped.
func decodeForeign(body []byte, origin string) (auth.Event, bool, error) {
	msg, err := SessionEventMessageFromJSON(body)
	if err != nil {
		return auth.Event{}, false, err
	}
	if msg.Origin == origin {
		return auth.Event{}, false, nil
	}
	return msg.Event(), true, nil
}
