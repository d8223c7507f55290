package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrForeignKey is returned when a presigned key does not belong to the caller.
	ErrForeignKey = errors.New("storage key does not belong to user")
)
