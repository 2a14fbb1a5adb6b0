package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

func computed(t *testing.T, f *fixture, username, password string) *domain.Credential {
	t.Helper()
	cred, err := f.builder.BuildAuth([]byte(username))
	require.NoError(t, err)
	_, err = f.builder.ComputeAuth(context.Background(), cred, []byte(password), nil)
	require.NoError(t, err)
	return cred
}

func TestGate_Success(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	cred := computed(t, f, "magma", "test")

	res, err := f.gate.Authenticate(context.Background(), cred, domain.ProtocolGeneric, domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Handle)
	assert.Equal(t, "magma", res.Handle.Username)
	assert.Equal(t, domain.ScopeAll, res.Handle.Scope)

	st, ok := f.cache.Stat("magma")
	require.True(t, ok)
	assert.Equal(t, 1, st.Refs[domain.ProtocolGeneric])
}

func TestGate_WrongPassword(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	cred := computed(t, f, "magma", "password")

	res, err := f.gate.Authenticate(context.Background(), cred, domain.ProtocolIMAP, domain.ScopeMessages)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Nil(t, res.Handle)
	assert.Zero(t, f.cache.Len())
	assert.Zero(t, f.loader.loadCount())
}

func TestGate_NotComputed(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	cred, _ := f.builder.BuildAuth([]byte("magma"))

	res, err := f.gate.Authenticate(context.Background(), cred, domain.ProtocolGeneric, domain.ScopeAll)
	assert.ErrorIs(t, err, domain.ErrNotComputed)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Zero(t, f.store.hashLookups.Load())

	res, err = f.gate.Authenticate(context.Background(), nil, domain.ProtocolGeneric, domain.ScopeAll)
	assert.ErrorIs(t, err, domain.ErrNotComputed)
	assert.NotNil(t, res)
}

func TestGate_MissingHash(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	cred, _ := f.builder.BuildAuth([]byte("ghost"))
	_, err := f.builder.ComputeAuth(context.Background(), cred, []byte("test"), []byte("some-salt"))
	require.NoError(t, err)

	res, err := f.gate.Authenticate(context.Background(), cred, domain.ProtocolGeneric, domain.ScopeAll)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestGate_InfrastructureErrors(t *testing.T) {
	t.Run("hash lookup", func(t *testing.T) {
		f := newFixture(t, RateLimitConfig{})
		cred := computed(t, f, "magma", "test")
		f.store.hashErr = errBackend

		res, err := f.gate.Authenticate(context.Background(), cred, domain.ProtocolGeneric, domain.ScopeAll)
		assert.ErrorIs(t, err, domain.ErrInfrastructure)
		assert.Equal(t, OutcomeError, res.Outcome)
	})

	t.Run("cache load", func(t *testing.T) {
		f := newFixture(t, RateLimitConfig{})
		cred := computed(t, f, "magma", "test")
		f.loader.setErrors(errBackend, nil)

		res, err := f.gate.Authenticate(context.Background(), cred, domain.ProtocolGeneric, domain.ScopeAll)
		assert.ErrorIs(t, err, domain.ErrInfrastructure)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Zero(t, f.cache.Len(), "failed creation must not leave an entry")
	})
}

func TestGate_LabelVariantsShareEntry(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	ctx := context.Background()

	for _, u := range []string{"magma", "magma@lavabit.com", "magma+label@lavabit.com"} {
		res, err := f.gate.Authenticate(ctx, computed(t, f, u, "test"), domain.ProtocolIMAP, domain.ScopeMessages)
		require.NoError(t, err, u)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
	}

	assert.Equal(t, 1, f.cache.Len())
	st, _ := f.cache.Stat("magma")
	assert.Equal(t, 3, st.Refs[domain.ProtocolIMAP])
	assert.Equal(t, 1, f.loader.loadCount())
}
