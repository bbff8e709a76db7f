package amqp

import (
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"kern/internal/auth"
)

func TestReconnectBackOff(t *testing.T) {
	bo := newReconnectBackOff()
	jitter := bo.RandomizationFactor

	base := time.Second
	for i := 0; i < 10; i++ {
		got := bo.NextBackOff()
		lo := time.Duration(float64(base) * (1 - jitter))
		hi := time.Duration(float64(base)*(1+jitter)) + time.Nanosecond
		if got < lo || got > hi {
			t.Errorf("attempt %d: NextBackOff() = %v, want within [%v, %v]", i, got, lo, hi)
		}
		base = min(base*2, 30*time.Second)
	}

	bo.Reset()
	if got := bo.NextBackOff(); got > time.Duration(float64(time.Second)*(1+jitter))+time.Nanosecond {
		t.Errorf("after Reset NextBackOff() = %v, want about 1s", got)
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"closed sentinel", amqp091.ErrClosed, true},
		{"connection refused", errors.New("dial AMQP: connection refused"), true},
		{"channel closed", errors.New("message channel closed"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"access refused", errors.New("declare queue: access refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestSessionEventMessageRoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := NewSessionEventMessage(auth.Event{Type: auth.EventSignedOut, SessionKey: "k1", At: at}, "node-a")

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	event, foreign, err := decodeForeign(body, "node-b")
	if err != nil {
		t.Fatalf("decodeForeign() error = %v", err)
	}
	if !foreign {
		t.Fatal("message from another origin reported as own")
	}
	if event.Type != auth.EventSignedOut || event.SessionKey != "k1" || !event.At.Equal(at) {
		t.Errorf("decoded event = %+v", event)
	}
}

func TestDecodeForeignSkipsOwnMessages(t *testing.T) {
	body, _ := NewSessionEventMessage(auth.Event{Type: auth.EventSignedIn, SessionKey: "k"}, "node-a").ToJSON()

	_, foreign, err := decodeForeign(body, "node-a")
	if err != nil {
		t.Fatalf("decodeForeign() error = %v", err)
	}
	if foreign {
		t.Error("own message reported as foreign")
	}
}

func TestDecodeForeignRejectsMalformed(t *testing.T) {
	for _, body := range []string{`not json`, `{"type":"SIGNED_OUT"}`, `{"session_key":"k"}`} {
		if _, _, err := decodeForeign([]byte(body), "x"); err == nil {
			t.Errorf("decodeForeign(%s) error = nil, want error", body)
		}
	}
}

func TestNewSessionEventMessageDefaultsTimestamp(t *testing.T) {
	msg := NewSessionEventMessage(auth.Event{Type: auth.EventSignedIn, SessionKey: "k"}, "o")
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
