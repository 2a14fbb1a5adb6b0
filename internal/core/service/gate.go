package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// Gate checks computed credentials against stored hashes and hands out
// cache handles for the ones that match.
type Gate struct {
	store  CredentialStore
	cache  *Cache
	tracer trace.Tracer
}

// NewGate creates a Gate.
func NewGate(store CredentialStore, cache *Cache, opts ...Option) *Gate {
	d := newDeps(opts)
	return &Gate{store: store, cache: cache, tracer: d.tracer}
}

// Authenticate verifies cred and acquires the cached user for protocol
// and scope. The result is never nil; on failure the returned error is the
// same as result.Err.
func (g *Gate) Authenticate(ctx context.Context, cred *domain.Credential, protocol domain.Protocol, scope domain.Scope) (*AuthResult, error) {
	if !cred.AuthReady() {
		var username string
		if cred != nil {
			username = cred.Username
		}
		return failure(username, domain.ErrNotComputed)
	}

	ctx, span := g.tracer.Start(ctx, "gate.verify", trace.WithAttributes(
		attribute.String("magma.protocol", protocol.String()),
	))
	defer span.End()

	stored, err := g.store.LookupHash(ctx, cred.Username)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return rejected(cred.Username, domain.ErrAuthFailed.WithCause(err))
	case err != nil:
		span.RecordError(err)
		return failure(cred.Username, domain.ErrInfrastructure.WithDetails("hash lookup").WithCause(err))
	}
	match := verifier.Equal(cred.Hash(), stored)
	verifier.Wipe(stored)
	if !match {
		return rejected(cred.Username, domain.ErrAuthFailed)
	}

	h, err := g.cache.Acquire(ctx, cred.Username, protocol, scope)
	if err != nil {
		span.RecordError(err)
		return failure(cred.Username, err)
	}
	return success(cred.Username, h), nil
}
