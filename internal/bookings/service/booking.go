package service

import (
	"context"
	"errors"
	"shelterbook/internal/bookings/admission"
	bookingserrors "shelterbook/internal/bookings/errors"
	"shelterbook/internal/bookings/events"
	"shelterbook/internal/bookings/repository"
	"shelterbook/internal/bookings/validator"
	shelterserrors "shelterbook/internal/shelters/errors"
	"shelterbook/pkg/config"
	apperrors "shelterbook/pkg/errors"
	"shelterbook/pkg/keylock"
	"shelterbook/pkg/model"
	"shelterbook/pkg/sanitizer"
	"sync"
	"time"
)

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	Search(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
}

// ShelterStore is the part of the shelter repository admission depends on.
type ShelterStore interface {
	// BumpBookingVersion must be the first write of every admission
	// transaction; it makes concurrent admissions on one shelter conflict.
	BumpBookingVersion(ctx context.Context, id string) (*model.Shelter, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	shelters  ShelterStore
	publisher events.Publisher
	validator *validator.BookingValidator
	locks     *keylock.KeyLock
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	shelters ShelterStore,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &bookingService{
		repo:      repo,
		shelters:  shelters,
		publisher: publisher,
		validator: validator,
		locks:     keylock.New(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create admits a booking for its shelter. Admissions for one shelter are
// queued on an in-process gate and then serialized across processes by the
// shelter's booking version inside the transaction.
func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.sanitize(booking)
	booking.ID = ""
	booking.Status = config.Pending
	booking.CancelledAt = nil
	if err := s.validate(booking); err != nil {
		return err
	}

	unlock, err := s.acquireShelterGate(ctx, booking.ShelterID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		booking.ID = ""
		booking.Status = config.Pending

		shelter, err := s.shelters.BumpBookingVersion(txCtx, booking.ShelterID)
		if err != nil {
			return mapShelterError(err, booking.ShelterID)
		}

		existing, err := s.repo.FindOverlapping(txCtx, booking.ShelterID, booking.StartTime, booking.EndTime)
		if err != nil {
			return apperrors.Internal("Failed to load overlapping bookings", err)
		}

		status, err := admission.Admit(shelter, existing, booking)
		if err != nil {
			return mapAdmissionError(err)
		}
		booking.Status = status

		if err := s.repo.Create(txCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.logRejection("Booking admission failed", booking, err)
		return err
	}

	s.cfg.Log.Info("Booking confirmed",
		"id", booking.ID,
		"shelter_id", booking.ShelterID,
		"booker_id", booking.BookerID,
		"type", booking.Type,
		"guests", booking.Guests,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)

	if err := s.publisher.BookingConfirmed(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking event", "id", booking.ID, "event", events.EventBookingConfirmed, "error", err)
	}
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapBookingError(err, id, "Failed to retrieve booking")
	}

	return booking, nil
}

// Cancel is allowed at any time, including after the window has started.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapBookingError(err, id, "Failed to check booking existence")
	}
	probe := *existing
	if err := admission.Cancel(&probe); err != nil {
		return nil, mapAdmissionError(err)
	}

	cancelled, err := s.repo.MarkCancelled(ctx, id, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		if errors.Is(err, bookingserrors.ErrAlreadyCancelled) {
			return nil, mapAdmissionError(err)
		}
		return nil, mapBookingError(err, id, "Failed to cancel booking")
	}

	s.cfg.Log.Info("Booking cancelled",
		"id", id,
		"shelter_id", cancelled.ShelterID,
		"previous_status", existing.Status,
	)

	if err := s.publisher.BookingCancelled(ctx, cancelled); err != nil {
		s.cfg.Log.Error("Failed to publish booking event", "id", id, "event", events.EventBookingCancelled, "error", err)
	}
	return cancelled, nil
}

// Search lists bookings of one shelter or of one booker, optionally
// restricted to those overlapping a time range.
func (s *bookingService) Search(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	filter.ShelterID = sanitizer.NormalizeID(filter.ShelterID)
	filter.BookerID = sanitizer.NormalizeID(filter.BookerID)
	if (filter.ShelterID == "") == (filter.BookerID == "") {
		return nil, 0, apperrors.InvalidInput("Exactly one of shelter_id and booker_id is required")
	}
	if filter.StartTime != nil && filter.EndTime != nil && !filter.StartTime.Before(*filter.EndTime) {
		return nil, 0, apperrors.Validation("Invalid time range", map[string]any{
			"error": bookingserrors.ErrInvalidWindow.Error(),
		})
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings",
				"shelter_id", filter.ShelterID,
				"booker_id", filter.BookerID,
				"error", err,
			)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.Find(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search bookings",
				"shelter_id", filter.ShelterID,
				"booker_id", filter.BookerID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Booking search completed",
		"shelter_id", filter.ShelterID,
		"booker_id", filter.BookerID,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

// --- Helpers ---

func (s *bookingService) acquireShelterGate(ctx context.Context, shelterID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.AdmissionWait)
	defer cancel()

	unlock, err := s.locks.Lock(waitCtx, shelterID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Timeout("Request cancelled while waiting for shelter")
		}
		s.cfg.Log.Warn("Timed out waiting for shelter admission gate",
			"shelter_id", shelterID,
			"wait", s.cfg.AdmissionWait,
		)
		return nil, apperrors.Unavailable("Shelter " + shelterID)
	}
	return unlock, nil
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.ShelterID = sanitizer.NormalizeID(b.ShelterID)
	b.BookerID = sanitizer.NormalizeID(b.BookerID)
	b.Type = sanitizer.NormalizeEnum(b.Type)
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) logRejection(msg string, b *model.Booking, err error) {
	args := []any{
		"shelter_id", b.ShelterID,
		"booker_id", b.BookerID,
		"type", b.Type,
		"guests", b.Guests,
		"error", err,
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus < 500 {
		s.cfg.Log.Warn(msg, args...)
		return
	}
	s.cfg.Log.Error(msg, args...)
}

func mapBookingError(err error, id, internalMsg string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(internalMsg, err)
	}
}

func mapShelterError(err error, id string) error {
	switch {
	case errors.Is(err, shelterserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Shelter", id)
	case errors.Is(err, shelterserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid shelter ID format")
	default:
		return apperrors.Internal("Failed to load shelter", err)
	}
}

// mapAdmissionError turns an admission rejection into the error returned to
// callers. Malformed requests are validation errors; rejections caused by
// the shelter's state or bookings are conflicts tagged with a reason.
func mapAdmissionError(err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrInvalidWindow),
		errors.Is(err, bookingserrors.ErrInvalidGuests),
		errors.Is(err, bookingserrors.ErrPolicyViolation):
		return apperrors.Validation("Booking rejected", map[string]any{"error": err.Error()})
	case errors.Is(err, bookingserrors.ErrShelterInactive):
		return apperrors.ConflictWithReason(err.Error(), ReasonShelterInactive)
	case errors.Is(err, bookingserrors.ErrBookingConflict):
		return apperrors.ConflictWithReason(err.Error(), ReasonBookingConflict)
	case errors.Is(err, bookingserrors.ErrCapacityExceeded):
		return apperrors.ConflictWithReason(err.Error(), ReasonCapacityExceeded)
	case errors.Is(err, bookingserrors.ErrAlreadyCancelled):
		return apperrors.ConflictWithReason(err.Error(), ReasonAlreadyCancelled)
	default:
		return apperrors.Internal("Failed to admit booking", err)
	}
}

const (
	ReasonShelterInactive  = "shelter_inactive"
	ReasonBookingConflict  = "booking_conflict"
	ReasonCapacityExceeded = "capacity_exceeded"
	ReasonAlreadyCancelled = "already_cancelled"
)
