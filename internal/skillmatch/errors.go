package skillmatch

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the job description or resume is blank.
var ErrInvalidInput = errors.New("jobDescription and resume are required")

// ValidationError is returned when the reconciled record fails the schema.
type ValidationError struct {
	Err        error
	Raw        string
	Normalized any
	Final      Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed after normalization and fallback: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
