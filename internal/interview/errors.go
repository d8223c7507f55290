package interview

import "errors"

var (
	ErrNotFound        = errors.New("interview not found")
	ErrInvalidInput    = errors.New("invalid interview input")
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrSchemaMismatch is returned when the model output stays unusable after the repair retry.
	ErrSchemaMismatch = errors.New("llm output did not match the expected shape")
)
