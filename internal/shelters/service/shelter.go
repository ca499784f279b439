package service

import (
	"context"
	"errors"
	shelterserrors "shelterbook/internal/shelters/errors"
	"shelterbook/internal/shelters/repository"
	"shelterbook/internal/shelters/spatial"
	"shelterbook/internal/shelters/validator"
	"shelterbook/pkg/config"
	apperrors "shelterbook/pkg/errors"
	"shelterbook/pkg/model"
	"shelterbook/pkg/sanitizer"
)

type ShelterService interface {
	Create(ctx context.Context, shelter *model.Shelter) error
	GetByID(ctx context.Context, id string) (*model.Shelter, error)
	Update(ctx context.Context, id string, updates *model.ShelterUpdate) (*model.Shelter, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, bounds spatial.BoundsQuery, limit int) ([]*model.Shelter, error)
}

// BookingCleaner removes the bookings of a deleted shelter. The booking
// repository satisfies it.
type BookingCleaner interface {
	DeleteByShelter(ctx context.Context, shelterID string) (int64, error)
}

type shelterService struct {
	repo      repository.ShelterRepository
	bookings  BookingCleaner
	validator *validator.ShelterValidator
	cfg       *config.Config
}

func NewShelterService(
	repo repository.ShelterRepository,
	bookings BookingCleaner,
	validator *validator.ShelterValidator,
	cfg *config.Config,
) ShelterService {
	return &shelterService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *shelterService) Create(ctx context.Context, shelter *model.Shelter) error {
	shelter.ID = ""
	shelter.BookingVersion = 0
	s.sanitize(shelter)
	if err := s.validate(shelter); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, shelter); err != nil {
		s.cfg.Log.Error("Failed to create shelter", "owner_id", shelter.OwnerID, "error", err)
		return apperrors.Internal("Failed to create shelter", err)
	}

	s.cfg.Log.Info("Shelter created successfully",
		"id", shelter.ID,
		"owner_id", shelter.OwnerID,
		"capacity", shelter.Capacity,
		"policy", shelter.Policy,
	)
	return nil
}

func (s *shelterService) GetByID(ctx context.Context, id string) (*model.Shelter, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Shelter ID cannot be empty")
	}

	shelter, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapShelterError(err, id, "Failed to retrieve shelter")
	}
	return shelter, nil
}

// Update applies the non-nil fields of updates. Lowering capacity or
// deactivating a shelter leaves its existing bookings untouched; only later
// admissions see the new values.
func (s *shelterService) Update(ctx context.Context, id string, updates *model.ShelterUpdate) (*model.Shelter, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Shelter ID cannot be empty")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Shelter update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapShelterError(err, id, "Failed to check shelter existence")
	}

	merged := mergeShelterUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		s.cfg.Log.Error("Failed to update shelter", "id", id, "error", err)
		return nil, mapShelterError(err, id, "Failed to update shelter")
	}

	s.cfg.Log.Info("Shelter updated successfully",
		"id", id,
		"capacity", merged.Capacity,
		"is_active", merged.IsActive,
	)
	return merged, nil
}

// Delete removes the shelter together with all of its bookings in one
// transaction.
func (s *shelterService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Shelter ID cannot be empty")
	}

	var removed int64
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return mapShelterError(err, id, "Failed to delete shelter")
		}
		n, err := s.bookings.DeleteByShelter(txCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to delete shelter bookings", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		if appErr := apperrors.AsAppError(err); appErr.HTTPStatus >= 500 {
			s.cfg.Log.Error("Failed to delete shelter", "id", id, "error", err)
		}
		return err
	}

	s.cfg.Log.Info("Shelter deleted successfully", "id", id, "bookings_removed", removed)
	return nil
}

// Search returns the shelters inside the bounds, when all four are given,
// ordered by name. limit 0 returns every match.
func (s *shelterService) Search(ctx context.Context, bounds spatial.BoundsQuery, limit int) ([]*model.Shelter, error) {
	if err := s.cfg.CheckSearchLimit(limit); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	var box *spatial.Box
	if b, ok := bounds.Box(); ok {
		box = &b
	}

	candidates, err := s.repo.Search(ctx, box, limit)
	if err != nil {
		s.cfg.Log.Error("Failed to search shelters", "box", box, "limit", limit, "error", err)
		return nil, apperrors.Internal("Failed to search shelters", err)
	}

	result := spatial.Search(candidates, box, limit)
	s.cfg.Log.Debug("Shelter search completed",
		"filtered", box != nil,
		"count", len(result),
	)
	return result, nil
}

// --- Helpers ---

func (s *shelterService) sanitize(shelter *model.Shelter) {
	shelter.OwnerID = sanitizer.NormalizeID(shelter.OwnerID)
	shelter.Name = sanitizer.NormalizeName(shelter.Name)
	shelter.Description = sanitizer.NormalizeDescription(shelter.Description)
	shelter.Policy = sanitizer.NormalizeEnum(shelter.Policy)
	shelter.ContactPhone = sanitizer.NormalizePhone(shelter.ContactPhone)
}

func (s *shelterService) validate(shelter *model.Shelter) error {
	if err := s.validator.Validate(shelter); err != nil {
		s.cfg.Log.Warn("Shelter validation failed", "error", err)
		return apperrors.Validation("Shelter validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func mergeShelterUpdates(existing *model.Shelter, updates *model.ShelterUpdate) *model.Shelter {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	if updates.Policy != "" {
		merged.Policy = updates.Policy
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}
	if updates.Latitude != nil {
		merged.Latitude = *updates.Latitude
	}
	if updates.Longitude != nil {
		merged.Longitude = *updates.Longitude
	}
	if updates.ContactPhone != nil {
		merged.ContactPhone = *updates.ContactPhone
	}

	return &merged
}

func mapShelterError(err error, id, internalMsg string) error {
	switch {
	case errors.Is(err, shelterserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Shelter", id)
	case errors.Is(err, shelterserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid shelter ID format")
	default:
		return apperrors.Internal(internalMsg, err)
	}
}
