package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEvent(t *testing.T) {
	msg := NewLedgerEvent(EventTransactionCreated, 12345)

	if msg.Kind != EventTransactionCreated {
		t.Errorf("NewLedgerEvent() Kind = %v, want %v", msg.Kind, EventTransactionCreated)
	}
	if msg.TransactionID != 12345 {
		t.Errorf("NewLedgerEvent() TransactionID = %v, want 12345", msg.TransactionID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewLedgerEvent() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewLedgerEvent() Timestamp should be recent")
	}
}

func TestLedgerEvent_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerEvent{
		Kind:          EventTransactionDeleted,
		TransactionID: 42,
		Timestamp:     timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}

	if parsed.Kind != msg.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, msg.Kind)
	}
	if parsed.TransactionID != msg.TransactionID {
		t.Errorf("Parsed TransactionID = %v, want %v", parsed.TransactionID, msg.TransactionID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"transaction_id": "not_a_number"}`)

	if _, err := LedgerEventFromJSON(invalidJSON); err == nil {
		t.Error("LedgerEventFromJSON() should fail with invalid JSON")
	}
}
