package validator

import (
	"errors"
	"shelterbook/pkg/config"
	"shelterbook/pkg/logger"
	"shelterbook/pkg/model"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestValidator() *BookingValidator {
	v := NewBookingValidator(logger.New(logger.Config{Level: logger.ERROR}))
	v.now = func() time.Time { return fixedNow }
	return v
}

func validBooking() *model.Booking {
	start := fixedNow.Add(24 * time.Hour)
	return &model.Booking{
		ShelterID: "507f1f77bcf86cd799439011",
		BookerID:  "booker-1",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Guests:    2,
		Type:      config.Inclusive,
		Status:    config.Pending,
	}
}

func TestBookingValidator_Validate(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		mutate    func(b *model.Booking)
		wantField string
	}{
		{name: "valid inclusive", mutate: func(b *model.Booking) {}},
		{name: "valid exclusive", mutate: func(b *model.Booking) { b.Type = config.Exclusive; b.Guests = 1 }},
		{name: "missing shelter", mutate: func(b *model.Booking) { b.ShelterID = "" }, wantField: "ShelterID"},
		{name: "shelter not an object id", mutate: func(b *model.Booking) { b.ShelterID = "ridge-hut" }, wantField: "ShelterID"},
		{name: "missing booker", mutate: func(b *model.Booking) { b.BookerID = "" }, wantField: "BookerID"},
		{name: "zero guests", mutate: func(b *model.Booking) { b.Guests = 0 }, wantField: "Guests"},
		{name: "unknown type", mutate: func(b *model.Booking) { b.Type = "shared" }, wantField: "Type"},
		{name: "unknown status", mutate: func(b *model.Booking) { b.Status = "approved" }, wantField: "Status"},
		{name: "end equals start", mutate: func(b *model.Booking) { b.EndTime = b.StartTime }, wantField: "EndTime"},
		{name: "end before start", mutate: func(b *model.Booking) { b.EndTime = b.StartTime.Add(-time.Hour) }, wantField: "EndTime"},
		{
			name: "start in the past",
			mutate: func(b *model.Booking) {
				b.StartTime = fixedNow.Add(-time.Hour)
				b.EndTime = fixedNow.Add(time.Hour)
			},
			wantField: "StartTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(b)
			err := v.Validate(b)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestBookingValidator_MessageForWindow(t *testing.T) {
	v := newTestValidator()
	b := validBooking()
	b.EndTime = b.StartTime

	var verrs ValidationErrors
	if !errors.As(v.Validate(b), &verrs) {
		t.Fatal("expected ValidationErrors")
	}
	if verrs[0].Message != "end_time must be after start_time" {
		t.Errorf("unexpected message %q", verrs[0].Message)
	}
}
