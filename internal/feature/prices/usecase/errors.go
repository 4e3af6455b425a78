// Package usecase implements the business logic for the prices feature.
package usecase

import "errors"

var (
	// ErrInvalidRequest is returned for an empty ticker selection or a start date after the end date.
	// Requests failing validation never touch storage.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDataUnavailable is returned when the price source has no rows for a requested ticker.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrStorageUnavailable is returned when the storage location cannot be opened or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
