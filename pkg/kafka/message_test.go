package kafka

import (
	"testing"
	"time"
)

func TestMessageBuilder_Build(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := NewMessage().
		WithKey("shelter-1").
		WithValue(map[string]string{"booking_id": "b-1"}).
		WithEventType("booking.confirmed").
		WithSource("bookings").
		WithCorrelationID("").
		WithTimestamp(ts).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Key != "shelter-1" {
		t.Errorf("expected key shelter-1, got %s", msg.Key)
	}
	if msg.GetEventID() == "" {
		t.Error("expected generated event id")
	}
	if msg.GetEventType() != "booking.confirmed" {
		t.Errorf("unexpected event type %q", msg.GetEventType())
	}
	if _, ok := msg.GetHeader(HeaderCorrelationID); ok {
		t.Error("empty correlation id should not set a header")
	}
	if msg.Headers[HeaderTimestamp] != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected timestamp header %q", msg.Headers[HeaderTimestamp])
	}

	var decoded map[string]string
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["booking_id"] != "b-1" {
		t.Errorf("unexpected payload %v", decoded)
	}
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Fatal("expected encode error")
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	if msg.GetRetryCount() != 0 {
		t.Fatalf("expected 0 retries")
	}

	for i := 1; i <= 12; i++ {
		msg.IncrementRetryCount()
		if got := msg.GetRetryCount(); got != i {
			t.Fatalf("after %d increments got %d", i, got)
		}
	}

	msg.Headers[HeaderRetryCount] = "garbage"
	if msg.GetRetryCount() != 0 {
		t.Error("unparsable retry count should read as 0")
	}
}
