package store

import "errors"

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrTooManyValues indicates an In filter exceeded MaxInValues.
	ErrTooManyValues = errors.New("in filter exceeds maximum value count")
	// ErrInvalidField indicates a filter or ordering referenced a field name
	// outside the allowed character set.
	ErrInvalidField = errors.New("invalid field name")
)
