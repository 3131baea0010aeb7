package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection means the store could not be reached at startup.
	ErrConnection = errors.New("connection error")
	// ErrSchema means the store schema could not be created or migrated.
	ErrSchema = errors.New("schema error")
	// ErrQuery marks a failed read or write against an initialized store.
	ErrQuery = errors.New("query error")
	// ErrValidation marks caller input that was rejected before persistence.
	ErrValidation = errors.New("validation error")
)

// ValidationError describes which submission field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
