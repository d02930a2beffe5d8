// Package errors provides custom error types for the lodestar system.
// These errors enable programmatic error checking across connector,
// traversal, and aggregation boundaries without string matching.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the lodestar system
var (
	// ErrUnknownConnector indicates a connector id that is not registered
	ErrUnknownConnector = errors.New("unknown connector")

	// ErrNotAuthenticated indicates an operation that requires a valid
	// authentication state on a connector that has none. Recoverable:
	// callers should prompt for re-authentication.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthFailed indicates bad or missing credentials
	ErrAuthFailed = errors.New("authentication failed")

	// ErrTransient indicates a network-level failure that is safe to retry
	ErrTransient = errors.New("transient network error")

	// ErrMalformedResponse indicates an unexpected remote payload shape.
	// Not retried; treated as zero results and logged.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")
)

// UnknownConnectorError reports a search or auth request aimed at a
// connector id that the registry has never seen.
type UnknownConnectorError struct {
	ID string
}

// Error implements the error interface
func (e *UnknownConnectorError) Error() string {
	return fmt.Sprintf("connector %q is not registered", e.ID)
}

// Is implements errors.Is support
func (e *UnknownConnectorError) Is(target error) bool {
	return target == ErrUnknownConnector
}

// NotAuthenticatedError reports an operation against a connector that
// requires authentication but currently has no valid auth state.
type NotAuthenticatedError struct {
	Connector string
}

// Error implements the error interface
func (e *NotAuthenticatedError) Error() string {
	return fmt.Sprintf("connector %q requires authentication", e.Connector)
}

// Is implements errors.Is support
func (e *NotAuthenticatedError) Is(target error) bool {
	return target == ErrNotAuthenticated
}

// AuthenticationError represents a failed credential exchange or an
// auth-rejected remote call.
type AuthenticationError struct {
	Connector string
	Method    string // "client_credentials", "none", "api_key"
	Message   string
	Err       error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Connector != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Connector, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthFailed
}

// TransientError represents a timeout or connection failure that is
// safe to retry.
type TransientError struct {
	Connector string
	Endpoint  string
	Err       error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("transient network error from %s (%s): %v", e.Connector, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("transient network error from %s: %v", e.Connector, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// ParseError represents a malformed remote payload. Not retryable.
type ParseError struct {
	Format    string // "json", "csv", "geojson"
	Connector string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Connector != "" {
		return fmt.Sprintf("%s parse error from %s: %s", e.Format, e.Connector, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// TimeoutError represents an expired per-call or per-fan-out deadline.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration > 0 {
		return fmt.Sprintf("operation %s timed out after %s", e.Operation, e.Duration)
	}
	return fmt.Sprintf("operation %s timed out", e.Operation)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// APIError represents a non-success HTTP response from a remote catalog.
type APIError struct {
	Connector  string
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Connector, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Connector, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return target == ErrAuthFailed
	}
	if e.StatusCode >= 500 {
		return target == ErrTransient
	}
	return false
}

// ValidationError represents a caller-input mistake.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Helper functions for error checking

// IsUnknownConnector checks if an error reports an unregistered connector id
func IsUnknownConnector(err error) bool {
	return errors.Is(err, ErrUnknownConnector)
}

// IsNotAuthenticated checks if an error is recoverable via re-authentication
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsAuthFailed checks if an error is a credential failure
func IsAuthFailed(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsTransient checks if an error is safe to retry
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsMalformedResponse checks if an error came from an unparseable payload
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapTransient wraps an error as a TransientError
func WrapTransient(connector, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Connector: connector, Endpoint: endpoint, Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, connector string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Connector: connector, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError
func WrapAPI(connector string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Connector:  connector,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
