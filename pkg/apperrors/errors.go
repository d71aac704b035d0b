package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNotReady           = errors.New("scan report not ready")
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	ErrScanCancelled      = errors.New("scan cancelled")
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrInvalidTransition  = errors.New("invalid scan status transition")
)

// ConfigError reports an invalid configuration value. Fatal at scan start.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// SamplingError reports a per-column sampling failure. Recorded against the
// column's result slot; the scan continues.
type SamplingError struct {
	Schema string
	Table  string
	Column string
	Cause  error
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling %s.%s.%s: %v", e.Schema, e.Table, e.Column, e.Cause)
}

func (e *SamplingError) Unwrap() error { return e.Cause }

// StrategyError reports a per-strategy failure on a single column. The
// pipeline logs it and continues with the remaining strategies.
type StrategyError struct {
	Strategy string
	Column   string
	Cause    error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s on column %s: %v", e.Strategy, e.Column, e.Cause)
}

func (e *StrategyError) Unwrap() error { return e.Cause }
