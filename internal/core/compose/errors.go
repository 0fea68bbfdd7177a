package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrEmptyInput is returned when the manifest is empty.
	ErrEmptyInput = errors.New("manifest is empty")

	// ErrInvalidYAML is returned when the manifest is not valid YAML.
	ErrInvalidYAML = errors.New("invalid YAML")

	// ErrNoServices is returned when the manifest declares no services.
	ErrNoServices = errors.New("manifest declares no services")

	// ErrServiceNoImage is returned when a service has neither image nor build.
	ErrServiceNoImage = errors.New("service must have image or build")

	// ErrCircularDependency is returned when depends_on forms a cycle.
	ErrCircularDependency = errors.New("circular dependency detected")
)

// ParseError wraps a manifest parsing failure with the offending field.
type ParseError struct {
	Field   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("parse manifest: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{Field: field, Message: message, Err: err}
}
