package kafka

import (
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	msg, err := NewEvent("ada@example.com", "user.welcome", "tourbook-api", payload{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}

	if msg.Key != "ada@example.com" {
		t.Errorf("expected key to be the email, got %q", msg.Key)
	}
	if msg.EventType() != "user.welcome" {
		t.Errorf("expected event type header, got %q", msg.EventType())
	}
	if msg.EventID() == "" {
		t.Error("expected a generated event ID")
	}
	if msg.Headers[HeaderSource] != "tourbook-api" {
		t.Errorf("expected source header, got %q", msg.Headers[HeaderSource])
	}
	if _, err := time.Parse(time.RFC3339, msg.Headers[HeaderTimestamp]); err != nil {
		t.Errorf("timestamp header is not RFC3339: %v", err)
	}

	var decoded payload
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if decoded.Email != "ada@example.com" {
		t.Errorf("round-tripped payload mismatch: %+v", decoded)
	}
}

func TestNewEvent_FreshIDPerCall(t *testing.T) {
	a, err := NewEvent("k", "t", "s", map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEvent("k", "t", "s", map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if a.EventID() == b.EventID() {
		t.Error("event IDs must be unique per call")
	}
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	if _, err := NewEvent("k", "t", "s", make(chan int)); err == nil {
		t.Error("expected an error for an unencodable payload")
	}
}
