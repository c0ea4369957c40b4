package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the auth gate, the record stores, and the HTTP layer.
var (
	ErrDuplicateUser      = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidFormat      = errors.New("invalid import format")
	ErrPersistence        = errors.New("persistence failure")

	// ErrValidation is the root of all item validation failures; handlers
	// match on it with errors.Is and render the specific message inline.
	ErrValidation = errors.New("invalid budget item")

	ErrEmptyDescription = fmt.Errorf("%w: description is required", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be a positive decimal", ErrValidation)
	ErrInvalidType      = fmt.Errorf("%w: type must be income or expense", ErrValidation)
)
