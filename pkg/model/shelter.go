package model

import (
	"shelterbook/pkg/config"
	"time"
)

type Shelter struct {
	ID           string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID      string               `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=64"`
	Name         string               `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description  string               `json:"description,omitempty" bson:"description" validate:"omitempty,max=2000"`
	Capacity     int                  `json:"capacity" bson:"capacity" validate:"required,min=1,max=10000"`
	Policy       config.BookingPolicy `json:"policy" bson:"policy" validate:"required,booking_policy"`
	IsActive     bool                 `json:"is_active" bson:"is_active"`
	Latitude     float64              `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude    float64              `json:"longitude" bson:"longitude" validate:"longitude"`
	ContactPhone string               `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt    time.Time            `json:"updated_at" bson:"updated_at" validate:"omitempty"`

	// BookingVersion is bumped inside every admission transaction so that
	// concurrent admissions for the same shelter write-conflict.
	BookingVersion int64 `json:"-" bson:"booking_version"`
}

type ShelterUpdate struct {
	Name         string               `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description  *string              `json:"description,omitempty" validate:"omitempty,max=2000"`
	Capacity     *int                 `json:"capacity,omitempty" validate:"omitempty,min=1,max=10000"`
	Policy       config.BookingPolicy `json:"policy,omitempty" validate:"omitempty,booking_policy"`
	IsActive     *bool                `json:"is_active,omitempty"`
	Latitude     *float64             `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64             `json:"longitude,omitempty" validate:"omitempty,longitude"`
	ContactPhone *string              `json:"contact_phone,omitempty" validate:"omitempty"`
}
