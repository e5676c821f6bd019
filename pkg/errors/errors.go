// Package errors provides severity-aware error types.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// EngineError is a structured error with context.
type EngineError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Field       string   `json:"field,omitempty"`
	Recoverable bool     `json:"recoverable"`
	cause       error
}

func (e *EngineError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s (field: %s)", e.Severity, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.cause
}

// Error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeOracleUnavailable  = "ORACLE_UNAVAILABLE"
	ErrCodeConfigurationError = "CONFIGURATION_ERROR"
	ErrCodeUnknownCategory    = "UNKNOWN_CATEGORY"
	ErrCodePolicyViolation    = "POLICY_VIOLATION"
)

// NewInvalidInputError reports a missing or malformed request field.
// Never retried; the single request is rejected.
func NewInvalidInputError(field, message string) *EngineError {
	return &EngineError{
		Code:        ErrCodeInvalidInput,
		Message:     message,
		Severity:    SeverityError,
		Field:       field,
		Recoverable: false,
	}
}

// NewOracleUnavailableError reports a failed gas or price oracle fetch.
// The fetch may be retried by the caller; the decision itself degrades
// to a conservative default instead of failing hard.
func NewOracleUnavailableError(source string, cause error) *EngineError {
	return &EngineError{
		Code:        ErrCodeOracleUnavailable,
		Message:     fmt.Sprintf("oracle fetch failed: %s", source),
		Severity:    SeverityWarning,
		Recoverable: true,
		cause:       cause,
	}
}

// NewConfigurationError reports malformed startup configuration. Fatal.
func NewConfigurationError(field, message string) *EngineError {
	return &EngineError{
		Code:        ErrCodeConfigurationError,
		Message:     message,
		Severity:    SeverityFatal,
		Field:       field,
		Recoverable: false,
	}
}

// IsInvalidInput reports whether err carries the INVALID_INPUT code.
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrCodeInvalidInput)
}

// IsOracleUnavailable reports whether err carries the ORACLE_UNAVAILABLE code.
func IsOracleUnavailable(err error) bool {
	return hasCode(err, ErrCodeOracleUnavailable)
}

// IsConfigurationError reports whether err carries the CONFIGURATION_ERROR code.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfigurationError)
}

func hasCode(err error, code string) bool {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
