package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// AuthenticateRequest contains the inputs of one authentication attempt.
type AuthenticateRequest struct {
	Username []byte
	Password []byte
	// Salt overrides the stored salt when non-nil.
	Salt     []byte
	Protocol domain.Protocol
	Scope    domain.Scope
}

// Authenticator is the entry point used by protocol front ends. It ties
// together credential building, verification and the user cache, and
// guarantees that secret material is wiped on every path.
type Authenticator struct {
	builder  *CredentialBuilder
	gate     *Gate
	cache    *Cache
	limiter  *RateLimiterRegistry
	reporter *Reporter
	deps
}

// NewAuthenticator creates an Authenticator. limiter may be nil.
func NewAuthenticator(builder *CredentialBuilder, gate *Gate, cache *Cache, limiter *RateLimiterRegistry, opts ...Option) *Authenticator {
	d := newDeps(opts)
	return &Authenticator{
		builder:  builder,
		gate:     gate,
		cache:    cache,
		limiter:  limiter,
		reporter: NewReporter(d.log),
		deps:     d,
	}
}

// Authenticate runs one attempt. The result is never nil; result.Outcome
// is the verdict to act on and the returned error (equal to result.Err)
// carries the specific cause for diagnostics.
func (a *Authenticator) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResult, error) {
	ctx = logger.WithAttemptID(ctx, ulid.Make().String())
	ctx, span := a.tracer.Start(ctx, "auth.authenticate", trace.WithAttributes(
		attribute.String("magma.protocol", req.Protocol.String()),
		attribute.String("magma.scope", req.Scope.String()),
	))
	defer span.End()

	start := a.now()
	res, err := a.authenticate(ctx, req)
	elapsed := a.now().Sub(start)

	span.SetAttributes(attribute.String("magma.outcome", res.Outcome.String()))
	if res.Outcome == OutcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, "infrastructure error")
	}
	a.metrics.ObserveAttempt(req.Protocol.String(), res.Outcome.String(), elapsed)
	a.reporter.Report(ctx, req.Protocol, res, elapsed)
	return res, err
}

func (a *Authenticator) authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResult, error) {
	cred, err := a.builder.BuildAuth(req.Username)
	if err != nil {
		return rejected("", err)
	}
	defer cred.Wipe()

	if !a.limiter.Allowed(cred.Username) {
		a.metrics.ObserveRateLimited()
		return rejected(cred.Username, domain.ErrRateLimited)
	}

	var saltErr error
	if _, err := a.builder.ComputeAuth(ctx, cred, req.Password, req.Salt); err != nil {
		if classify(err) == OutcomeError {
			return failure(cred.Username, err)
		}
		if !errors.Is(err, domain.ErrSaltUnavailable) && !errors.Is(err, domain.ErrPasswordTooShort) {
			a.limiter.Failed(cred.Username)
			return rejected(cred.Username, err)
		}
		// Unknown user or short password: spend the same work as a real check.
		saltErr = err
		a.builder.ComputeDecoy(cred, req.Password)
	}

	res, err := a.gate.Authenticate(ctx, cred, req.Protocol, req.Scope)
	switch {
	case saltErr != nil && res.Outcome == OutcomeSuccess:
		// A decoy hash can only match a corrupt store entry.
		_ = a.cache.Remove(cred.Username, req.Protocol)
		if _, err := a.cache.Prune(ctx, cred.Username); err != nil {
			a.log.Warn("prune after rejected decoy match", "username", cred.Username, "error", err)
		}
		a.limiter.Failed(cred.Username)
		return rejected(cred.Username, domain.ErrAuthFailed.WithCause(saltErr))
	case saltErr != nil && res.Outcome == OutcomeFailed:
		a.limiter.Failed(cred.Username)
		return rejected(cred.Username, domain.ErrAuthFailed.WithCause(saltErr))
	case res.Outcome == OutcomeFailed:
		a.limiter.Failed(cred.Username)
	case res.Outcome == OutcomeSuccess:
		a.limiter.Reset(cred.Username)
	}
	return res, err
}

// Release gives back one protocol reference taken by a successful
// Authenticate. username may be given in any form Authenticate accepts.
func (a *Authenticator) Release(username string, protocol domain.Protocol) error {
	canonical, err := a.builder.Canonicalize([]byte(username))
	if err != nil {
		return err
	}
	return a.cache.Remove(canonical, protocol)
}

// EvictIfIdle evicts the cached user when no references remain.
// See Cache.Prune for the return values.
func (a *Authenticator) EvictIfIdle(ctx context.Context, username string) (int, error) {
	canonical, err := a.builder.Canonicalize([]byte(username))
	if err != nil {
		return 0, err
	}
	return a.cache.Prune(ctx, canonical)
}

// Stat returns a snapshot of the cached user.
func (a *Authenticator) Stat(username string) (EntryStat, bool, error) {
	canonical, err := a.builder.Canonicalize([]byte(username))
	if err != nil {
		return EntryStat{}, false, err
	}
	st, ok := a.cache.Stat(canonical)
	return st, ok, nil
}

// CacheLen returns the number of cached users.
func (a *Authenticator) CacheLen() int {
	return a.cache.Len()
}

// Maintain evicts users idle for longer than idle and forgets refilled
// rate limiters.
func (a *Authenticator) Maintain(ctx context.Context, idle time.Duration) (int, error) {
	n, err := a.cache.PruneIdle(ctx, idle)
	if dropped := a.limiter.Sweep(); dropped > 0 {
		a.log.Debug("rate limiters swept", "count", dropped)
	}
	return n, err
}

// Close tears down the user cache.
func (a *Authenticator) Close(ctx context.Context) error {
	return a.cache.Close(ctx)
}
