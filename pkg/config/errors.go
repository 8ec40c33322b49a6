package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every configuration failure via errors.Is.
// Callers use it to tell operator-fixable problems apart from upstream failures.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports a missing or invalid configuration input.
type ConfigError struct {
	Err     error  // Underlying cause, if any
	Key     string // Environment variable, secret, or config key involved
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %s", msg)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, msg)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewMissingError reports a required input that is absent or empty.
func NewMissingError(key string) *ConfigError {
	return &ConfigError{Key: key, Message: "is not set"}
}

// NewConfigError creates a ConfigError with an optional cause.
func NewConfigError(key, message string, cause error) *ConfigError {
	return &ConfigError{Key: key, Message: message, Err: cause}
}
