package events

import (
	"context"
	"fmt"
	"time"

	"shelterbook/pkg/kafka"
	"shelterbook/pkg/model"
)

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"

	SchemaVersion = "1"
	source        = "bookings"
)

// Publisher announces booking state changes after they are committed.
type Publisher interface {
	BookingConfirmed(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
}

// BookingEvent is the payload carried on the booking events topic.
type BookingEvent struct {
	BookingID   string     `json:"booking_id"`
	ShelterID   string     `json:"shelter_id"`
	BookerID    string     `json:"booker_id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Guests      int        `json:"guests"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func NewBookingEvent(b *model.Booking) BookingEvent {
	return BookingEvent{
		BookingID:   b.ID,
		ShelterID:   b.ShelterID,
		BookerID:    b.BookerID,
		Type:        b.Type,
		Status:      b.Status,
		Guests:      b.Guests,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		CancelledAt: b.CancelledAt,
	}
}

// MessagePublisher is the subset of *kafka.Producer used here.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer MessagePublisher
}

// NewKafkaPublisher keys every event by shelter id so events of one
// shelter stay ordered within a partition.
func NewKafkaPublisher(producer MessagePublisher) Publisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) BookingConfirmed(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingConfirmed, booking)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCancelled, booking)
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	if booking == nil {
		return fmt.Errorf("%s: booking is nil", eventType)
	}

	msg, err := kafka.NewMessage().
		WithKey(booking.ShelterID).
		WithValue(NewBookingEvent(booking)).
		WithEventID("").
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		WithCorrelationID(booking.ID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when Kafka is not configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) BookingConfirmed(context.Context, *model.Booking) error { return nil }

func (noopPublisher) BookingCancelled(context.Context, *model.Booking) error { return nil }
