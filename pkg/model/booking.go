package model

import (
	"shelterbook/pkg/config"
	"time"
)

type Booking struct {
	ID          string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ShelterID   string               `json:"shelter_id" bson:"shelter_id" validate:"required,mongodb"`
	BookerID    string               `json:"booker_id" bson:"booker_id" validate:"required,min=1,max=64"`
	StartTime   time.Time            `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     time.Time            `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Guests      int                  `json:"guests" bson:"guests" validate:"required,min=1,max=10000"`
	Type        config.BookingType   `json:"type" bson:"type" validate:"required,booking_type"`
	Status      config.BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

func (b *Booking) IsCancelled() bool {
	return b.Status == config.Cancelled
}

// BookingFilter selects bookings for listing. Exactly one of ShelterID and
// BookerID is expected; the time bounds are optional and match by overlap.
type BookingFilter struct {
	ShelterID string
	BookerID  string
	StartTime *time.Time
	EndTime   *time.Time
}
