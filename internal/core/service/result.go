package service

import (
	"errors"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

// Outcome is the externally visible verdict of an authentication attempt.
type Outcome uint8

const (
	// OutcomeSuccess means the credentials matched and a handle was acquired.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the attempt was rejected. Unknown users, wrong
	// passwords and malformed input are indistinguishable here.
	OutcomeFailed
	// OutcomeError means an infrastructure failure prevented a decision.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// AuthResult is returned for every attempt, successful or not.
type AuthResult struct {
	Outcome Outcome
	// Username is the canonical identity, empty when the input was invalid.
	Username string
	// Handle is set on success. The caller must give it back with Release.
	Handle *Handle
	// Err is the specific failure for internal diagnostics. It is nil on
	// success.
	Err error
}

// OK reports whether the attempt succeeded.
func (r *AuthResult) OK() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}

// Handle is a caller's read-only view of a cached user, valid until the
// matching Release.
type Handle struct {
	Username   string
	Protocol   domain.Protocol
	Scope      domain.Scope
	Payload    *domain.Payload
	AcquiredAt time.Time
}

func success(username string, h *Handle) *AuthResult {
	return &AuthResult{Outcome: OutcomeSuccess, Username: username, Handle: h}
}

func rejected(username string, err error) (*AuthResult, error) {
	return &AuthResult{Outcome: OutcomeFailed, Username: username, Err: err}, err
}

func failure(username string, err error) (*AuthResult, error) {
	return &AuthResult{Outcome: OutcomeError, Username: username, Err: err}, err
}

// classify maps an error to the outcome callers see.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrInfrastructure),
		errors.Is(err, domain.ErrCacheExhausted),
		errors.Is(err, domain.ErrCacheClosed),
		errors.Is(err, domain.ErrNotComputed),
		errors.Is(err, domain.ErrInvalidArgument):
		return OutcomeError
	default:
		return OutcomeFailed
	}
}
