package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrInvalidWindow = errors.New("end time must be after start time")

	ErrInvalidGuests = errors.New("guest count must be at least 1")

	ErrShelterInactive = errors.New("shelter is not accepting bookings")

	ErrPolicyViolation = errors.New("booking type not permitted by shelter policy")

	ErrBookingConflict = errors.New("booking time conflicts with existing booking")

	ErrCapacityExceeded = errors.New("booking capacity exceeded")

	ErrAlreadyCancelled = errors.New("booking is already cancelled")
)
