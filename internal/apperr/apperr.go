package apperr

import "errors"

// Shared error taxonomy for the accounting engine. Callers classify with
// errors.Is; producers wrap with fmt.Errorf("...: %w", ...).
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence failed")
)
