package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product lookup yields no row.
	ErrProductNotFound = errors.New("product not found")

	// ErrDetectionFailed is returned when no detector locates an item table
	// in an import payload.
	ErrDetectionFailed = errors.New("no item table detected in source")

	// ErrUnsupportedFormat is returned for file extensions no detector handles.
	ErrUnsupportedFormat = errors.New("unsupported import format")

	// ErrSourceUnavailable is returned when every request variant against the
	// external system failed.
	ErrSourceUnavailable = errors.New("external source unavailable")

	// ErrInvalidQuery is returned for malformed listing filters.
	ErrInvalidQuery = errors.New("invalid query")
)
