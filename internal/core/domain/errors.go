// Package domain defines the core domain models for magma.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form MG-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "MG-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two domain errors match when their
// codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrInvalidUsername indicates the username is empty, malformed or has
	// no recoverable local part.
	ErrInvalidUsername = NewDomainError("MG-AUTH-4001", "invalid username")

	// ErrPasswordTooLong indicates the password exceeds the configured maximum.
	ErrPasswordTooLong = NewDomainError("MG-AUTH-4002", "password too long")

	// ErrPasswordTooShort indicates the password is below the configured
	// minimum in bytes or characters. Like ErrSaltUnavailable it is
	// reported to callers of the authenticator as ErrAuthFailed.
	ErrPasswordTooShort = NewDomainError("MG-AUTH-4004", "password too short")

	// ErrNotComputed indicates a credential was presented before its hash was computed.
	ErrNotComputed = NewDomainError("MG-AUTH-4003", "credential not computed")

	// ErrAuthFailed indicates the username/password pair was rejected.
	ErrAuthFailed = NewDomainError("MG-AUTH-4010", "authentication failed")

	// ErrSaltUnavailable indicates no salt is stored for the user. It never
	// reaches callers of the authenticator, which report ErrAuthFailed instead.
	ErrSaltUnavailable = NewDomainError("MG-AUTH-4041", "salt unavailable")

	// ErrRateLimited indicates too many failed attempts for the user.
	ErrRateLimited = NewDomainError("MG-AUTH-4290", "too many failed attempts")
)

// ============================================================================
// Cache Errors (CACHE)
// ============================================================================

var (
	// ErrNotFound indicates the cache entry or protocol counter does not exist.
	ErrNotFound = NewDomainError("MG-CACHE-4040", "not found")

	// ErrCacheExhausted indicates the cache is at capacity.
	ErrCacheExhausted = NewDomainError("MG-CACHE-5070", "cache exhausted")

	// ErrCacheClosed indicates the cache has been shut down.
	ErrCacheClosed = NewDomainError("MG-CACHE-5030", "cache closed")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInfrastructure indicates a storage or loader failure.
	ErrInfrastructure = NewDomainError("MG-SYS-5001", "infrastructure error")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("MG-ARG-1001", "invalid argument")
)
