package validator

import (
	"errors"
	"fmt"
	"shelterbook/pkg/config"
	"shelterbook/pkg/logger"
	"shelterbook/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ShelterValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewShelterValidator(log *logger.Logger) *ShelterValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_policy", validateBookingPolicy); err != nil {
		log.Fatal("Failed to register 'booking_policy' validator", "error", err)
	}

	log.Info("Shelter validator initialized successfully")

	return &ShelterValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingPolicy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case config.ExclusiveOnly, config.InclusiveOnly, config.Both:
		return true
	default:
		return false
	}
}

func (v *ShelterValidator) Validate(shelter *model.Shelter) error {
	if err := v.validate.Struct(shelter); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ShelterValidator) ValidateUpdate(update *model.ShelterUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ShelterValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +41271234567)", err.Field())
		case "latitude":
			message = fmt.Sprintf("%s must be between -90 and 90", err.Field())
		case "longitude":
			message = fmt.Sprintf("%s must be between -180 and 180", err.Field())
		case "booking_policy":
			message = fmt.Sprintf("%s must be one of: %s, %s, %s", err.Field(), config.ExclusiveOnly, config.InclusiveOnly, config.Both)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
