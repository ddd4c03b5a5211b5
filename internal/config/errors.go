package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for config operations
var (
	ErrAppConfigNotFound = errors.New("app config not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidKickstart  = errors.New("invalid selection file")
)

// FieldError represents a validation error for a specific field
type FieldError struct {
	File  string // File the field was read from
	Field string // Field name
	Value string // Invalid value
	Err   error  // Underlying error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: field %s: %v", e.File, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: field %s (%s): %v", e.File, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewFieldError creates a new FieldError
func NewFieldError(file, field, value string, err error) *FieldError {
	return &FieldError{
		File:  file,
		Field: field,
		Value: value,
		Err:   err,
	}
}
