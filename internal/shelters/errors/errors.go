package errors

import "errors"

var (
	ErrNotFound = errors.New("shelter not found")

	ErrInvalidID = errors.New("invalid shelter ID format")
)
