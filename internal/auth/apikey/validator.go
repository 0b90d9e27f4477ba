// Package apikey implements the static API key authentication scheme.
package apikey

import (
	"crypto/subtle"
	"errors"

	"github.com/minjoonchoi/httpgate/internal/observability"
)

// Common errors for API key validation.
var (
	// ErrInvalidKey indicates that the presented key does not match.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrEmptyKey indicates that the presented key is empty.
	ErrEmptyKey = errors.New("API key is empty")
)

// Validator validates presented API keys against the configured key.
type Validator struct {
	key     string
	enabled bool
}

// NewValidator creates a validator for the configured key. When the scheme
// is requested but no key value is configured, the scheme is disabled and a
// single warning is logged; requests are then passed through rather than
// rejected wholesale.
func NewValidator(enabled bool, key string, logger observability.Logger) *Validator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if enabled && key == "" {
		logger.Warn("API key auth requested but no key configured, disabling the scheme")
		enabled = false
	}
	return &Validator{key: key, enabled: enabled}
}

// Enabled reports whether the scheme is active.
func (v *Validator) Enabled() bool {
	return v.enabled
}

// Validate checks a presented key against the configured key.
func (v *Validator) Validate(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(v.key)) != 1 {
		return ErrInvalidKey
	}
	return nil
}
