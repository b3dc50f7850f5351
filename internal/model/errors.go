package model

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a referenced fan, component, motor, price or
// parameter row does not exist. Not retryable; the caller must correct the
// selection. Maps to 404 at the HTTP boundary.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// NotFound builds a NotFoundError for the given entity and key.
func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// ConfigurationError reports inputs that are structurally present but
// semantically invalid: non-positive thickness, waste factor or
// productivity, an unknown formula type, a component outside the fan's
// available set, out-of-range discount or markup. Maps to 422 at the HTTP
// boundary.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// ConfigErrorf builds a ConfigurationError with a formatted reason.
func ConfigErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
