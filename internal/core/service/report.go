package service

import (
	"context"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// Attempt status strings written by Reporter.
const (
	StatusPassed  = "PASSED"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
)

// StatusOf maps an outcome to its report status. Infrastructure errors
// are reported as SKIPPED since no verdict was reached.
func StatusOf(o Outcome) string {
	switch o {
	case OutcomeSuccess:
		return StatusPassed
	case OutcomeFailed:
		return StatusFailed
	default:
		return StatusSkipped
	}
}

// Reporter writes one log line per authentication attempt.
type Reporter struct {
	log logger.Logger
}

// NewReporter creates a Reporter writing to l.
func NewReporter(l logger.Logger) *Reporter {
	if l == nil {
		l = logger.Default()
	}
	return &Reporter{log: l.With("component", "auth")}
}

// Report logs res.
func (r *Reporter) Report(ctx context.Context, protocol domain.Protocol, res *AuthResult, elapsed time.Duration) {
	username := res.Username
	if username == "" {
		username = "-"
	}
	args := []any{
		"status", StatusOf(res.Outcome),
		"username", username,
		"protocol", protocol.String(),
		"elapsed_ms", elapsed.Milliseconds(),
	}
	if code := domain.GetErrorCode(res.Err); code != "" {
		args = append(args, "code", code)
	}
	if id := logger.AttemptIDFromContext(ctx); id != "" {
		args = append(args, "attempt_id", id)
	}

	l := r.log.WithContext(ctx)
	switch res.Outcome {
	case OutcomeSuccess:
		l.Info("auth attempt", args...)
	case OutcomeFailed:
		l.Warn("auth attempt", args...)
	default:
		l.Error("auth attempt", append(args, "error", res.Err)...)
	}
}
