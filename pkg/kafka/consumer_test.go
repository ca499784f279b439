package kafka

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"shelterbook/pkg/logger"
)

func newTestConsumer(handler MessageHandler, maxRetries int) *Consumer {
	return &Consumer{
		topic:        "booking-events",
		groupID:      "test",
		maxRetries:   maxRetries,
		retryBackoff: time.Millisecond,
		handler:      handler,
		log:          logger.New(logger.Config{Output: &bytes.Buffer{}}),
	}
}

func TestConsumer_ProcessMessage_RetriesTransient(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, 5)

	if err := c.processMessage(context.Background(), c.buildChain(), Message{Headers: map[string]string{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestConsumer_ProcessMessage_StopsOnPermanent(t *testing.T) {
	calls := 0
	wantErr := errors.New("invalid message")
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		return wantErr
	}, 5)

	err := c.processMessage(context.Background(), c.buildChain(), Message{Headers: map[string]string{}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestConsumer_ProcessMessage_RetryLimit(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		calls++
		return errors.New("timeout")
	}, 2)

	if err := c.processMessage(context.Background(), c.buildChain(), Message{Headers: map[string]string{}}); err == nil {
		t.Fatal("expected error after retries")
	}
	if calls != 3 {
		t.Errorf("expected initial attempt plus 2 retries, got %d", calls)
	}
}

func TestConsumer_MiddlewareOrder(t *testing.T) {
	var order []string
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		order = append(order, "handler")
		return nil
	}, 0)
	for _, name := range []string{"outer", "inner"} {
		c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	if err := c.buildChain()(context.Background(), Message{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestProducer_PublishRejectsInvalid(t *testing.T) {
	p := &Producer{topic: "booking-events"}

	if err := p.Publish(context.Background(), Message{Value: []byte("{}")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	p.closed = true
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("{}")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}
