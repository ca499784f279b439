// Package admission decides whether a proposed booking may be confirmed
// against the non-cancelled bookings already held by a shelter.
//
// Everything here is pure: callers supply a consistent snapshot of the
// shelter's bookings and are responsible for serializing admissions per
// shelter and persisting the outcome.
package admission

import (
	"fmt"
	bookingserrors "shelterbook/internal/bookings/errors"
	"shelterbook/pkg/config"
	"shelterbook/pkg/model"
	"time"
)

// Admit returns the status a proposed booking should be stored with, or the
// reason it is rejected. existing should hold the shelter's non-cancelled
// bookings; cancelled entries are ignored.
func Admit(shelter *model.Shelter, existing []*model.Booking, proposed *model.Booking) (config.BookingStatus, error) {
	window := WindowOf(proposed)
	if err := window.Validate(); err != nil {
		return "", err
	}
	if proposed.Guests < 1 {
		return "", fmt.Errorf("%w: got %d", bookingserrors.ErrInvalidGuests, proposed.Guests)
	}
	if !shelter.IsActive {
		return "", fmt.Errorf("%w: %s", bookingserrors.ErrShelterInactive, shelter.ID)
	}

	if !IsTypeAllowed(shelter.Policy, proposed.Type) {
		return "", fmt.Errorf("%w: %s booking on %s shelter",
			bookingserrors.ErrPolicyViolation, proposed.Type, shelter.Policy)
	}

	overlapping := Overlapping(existing, window, proposed.ID)

	switch proposed.Type {
	case config.Exclusive:
		if len(overlapping) > 0 {
			return "", conflictWith(overlapping[0])
		}
	case config.Inclusive:
		for _, b := range overlapping {
			if b.Type == config.Exclusive {
				return "", conflictWith(b)
			}
		}
		occupied := InclusiveGuests(overlapping)
		if occupied+proposed.Guests > shelter.Capacity {
			return "", fmt.Errorf("%w: %d occupied + %d requested > capacity %d",
				bookingserrors.ErrCapacityExceeded, occupied, proposed.Guests, shelter.Capacity)
		}
	}

	return config.Confirmed, nil
}

// Overlapping returns the non-cancelled bookings whose window overlaps w,
// skipping the booking identified by selfID.
func Overlapping(bookings []*model.Booking, w Window, selfID string) []*model.Booking {
	var out []*model.Booking
	for _, b := range bookings {
		if b.IsCancelled() {
			continue
		}
		if selfID != "" && b.ID == selfID {
			continue
		}
		if Overlaps(WindowOf(b), w) {
			out = append(out, b)
		}
	}
	return out
}

// InclusiveGuests sums the guests of the inclusive bookings in bookings.
func InclusiveGuests(bookings []*model.Booking) int {
	total := 0
	for _, b := range bookings {
		if b.Type == config.Inclusive {
			total += b.Guests
		}
	}
	return total
}

// Cancel moves b to cancelled. It is permitted at any time, including after
// the window has started.
func Cancel(b *model.Booking) error {
	if b.IsCancelled() {
		return fmt.Errorf("%w: %s", bookingserrors.ErrAlreadyCancelled, b.ID)
	}
	b.Status = config.Cancelled
	return nil
}

// CanTransition reports whether a booking may move from one status to another.
// Pending is reserved for an approval workflow and is never re-entered.
func CanTransition(from, to config.BookingStatus) bool {
	switch from {
	case config.Pending:
		return to == config.Confirmed || to == config.Cancelled
	case config.Confirmed:
		return to == config.Cancelled
	default:
		return false
	}
}

func conflictWith(b *model.Booking) error {
	return fmt.Errorf("%w: %s booking %s holds [%s, %s)",
		bookingserrors.ErrBookingConflict, b.Type, b.ID,
		b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339))
}
