package service

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

func TestAuthenticator_MetaUserLifecycle(t *testing.T) {
	ctx := context.Background()

	for _, username := range []string{"magma", "magma@lavabit.com", "magma+label@lavabit.com"} {
		t.Run(username, func(t *testing.T) {
			f := newFixture(t, RateLimitConfig{})

			res, err := f.authenticate(username, "test", domain.ProtocolGeneric, domain.ScopeAll)
			require.NoError(t, err)
			require.True(t, res.OK())
			assert.Equal(t, "magma", res.Username)
			assert.Equal(t, domain.ScopeAll, res.Handle.Scope)

			require.NoError(t, f.auth.Release(username, domain.ProtocolGeneric))
			n, err := f.auth.EvictIfIdle(ctx, username)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, 1)
			assert.Zero(t, f.cache.Len())
		})
	}
}

func TestAuthenticator_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		username []byte
		password []byte
		wantErr  error
	}{
		{"wrong password", []byte("magma"), []byte("password"), domain.ErrAuthFailed},
		{"foreign domain", []byte("magma@nerdshack.com"), []byte("test"), domain.ErrAuthFailed},
		{"unknown user", []byte("nobody"), []byte("test"), domain.ErrAuthFailed},
		{"nil username", nil, []byte("test"), domain.ErrInvalidUsername},
		{"no local part", []byte("+label@lavabit.com"), []byte("test"), domain.ErrInvalidUsername},
		{"empty password", []byte("magma"), []byte{}, domain.ErrAuthFailed},
		{"max length password", []byte("magma"), bytes.Repeat([]byte("a"), DefaultMaxPasswordLength), domain.ErrAuthFailed},
		{"password too long", []byte("magma"), bytes.Repeat([]byte("a"), DefaultMaxPasswordLength+1), domain.ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, RateLimitConfig{})
			res, err := f.auth.Authenticate(context.Background(), &AuthenticateRequest{
				Username: tt.username,
				Password: tt.password,
				Protocol: domain.ProtocolIMAP,
				Scope:    domain.ScopeAll,
			})
			require.NotNil(t, res)
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, err, res.Err)
			assert.Nil(t, res.Handle)
			assert.Zero(t, f.cache.Len())
		})
	}
}

func TestAuthenticator_InvalidUsernameSkipsStorage(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	_, err := f.authenticate("", "test", domain.ProtocolGeneric, domain.ScopeAll)
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)
	assert.Zero(t, f.store.saltLookups.Load())
	assert.Zero(t, f.store.hashLookups.Load())
}

func TestAuthenticator_UnknownUserRunsDecoy(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})

	res, err := f.authenticate("ghost", "test", domain.ProtocolGeneric, domain.ScopeAll)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.ErrorIs(t, err, domain.ErrSaltUnavailable, "cause is kept for diagnostics")
	assert.EqualValues(t, 1, f.store.hashLookups.Load(), "unknown users follow the full verification path")
}

func TestAuthenticator_ShortPasswordLooksLikeAuthFailure(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	builder := NewCredentialBuilder(f.store, f.hasher, &CredentialBuilderConfig{MinPasswordLength: 8})
	auth := NewAuthenticator(builder, f.gate, f.cache, NewRateLimiterRegistry(RateLimitConfig{}), WithLogger(logger.Discard()))

	res, err := auth.Authenticate(context.Background(), &AuthenticateRequest{
		Username: []byte("magma"),
		Password: []byte("test"),
		Protocol: domain.ProtocolPOP,
		Scope:    domain.ScopeMessages,
	})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.ErrorIs(t, err, domain.ErrPasswordTooShort, "cause is kept for diagnostics")
	assert.EqualValues(t, 1, f.store.hashLookups.Load(), "short passwords follow the full verification path")
	assert.Zero(t, f.cache.Len())
}

func TestAuthenticator_DecoyMatchLeavesNoEntry(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	// A hash without a salt, matching what the decoy path derives.
	f.store.mu.Lock()
	f.store.hashes["orphan"] = f.hasher.Derive([]byte("test"), f.hasher.DecoySalt("orphan"))
	f.store.mu.Unlock()

	res, err := f.authenticate("orphan", "test", domain.ProtocolIMAP, domain.ScopeAll)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Zero(t, f.cache.Len(), "a rejected login keeps nothing cached")
	assert.EqualValues(t, 1, f.loader.releases.Load())
}

func TestAuthenticator_InfrastructureErrors(t *testing.T) {
	t.Run("salt store", func(t *testing.T) {
		f := newFixture(t, RateLimitConfig{})
		f.store.saltErr = errBackend
		res, err := f.authenticate("magma", "test", domain.ProtocolGeneric, domain.ScopeAll)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.ErrorIs(t, err, domain.ErrInfrastructure)
	})

	t.Run("loader", func(t *testing.T) {
		f := newFixture(t, RateLimitConfig{})
		f.loader.setErrors(errBackend, nil)
		res, err := f.authenticate("magma", "test", domain.ProtocolGeneric, domain.ScopeAll)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.ErrorIs(t, err, domain.ErrInfrastructure)
		assert.Zero(t, f.cache.Len())
	})
}

func TestAuthenticator_RandomInputNeverSucceeds(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		user := make([]byte, rng.Intn(40))
		pass := make([]byte, rng.Intn(64))
		rng.Read(user)
		rng.Read(pass)

		res, _ := f.auth.Authenticate(context.Background(), &AuthenticateRequest{
			Username: user,
			Password: pass,
			Protocol: domain.ProtocolSMTP,
			Scope:    domain.ScopeAll,
		})
		require.NotNil(t, res)
		require.NotEqual(t, OutcomeSuccess, res.Outcome, "input %q", user)
	}
	assert.Zero(t, f.cache.Len())

	res, err := f.authenticate("magma", "test", domain.ProtocolSMTP, domain.ScopeAll)
	require.NoError(t, err)
	assert.True(t, res.OK(), "cache must remain usable")
}

func TestAuthenticator_ProtocolsShareEntry(t *testing.T) {
	f := newFixture(t, RateLimitConfig{})

	_, err := f.authenticate("magma", "test", domain.ProtocolIMAP, domain.ScopeMessages)
	require.NoError(t, err)
	_, err = f.authenticate("MAGMA+phone@lavabit.com", "test", domain.ProtocolPOP, domain.ScopeFolders)
	require.NoError(t, err)

	st, ok := f.cache.Stat("magma")
	require.True(t, ok)
	assert.Equal(t, map[domain.Protocol]int{domain.ProtocolIMAP: 1, domain.ProtocolPOP: 1}, st.Refs)
	assert.Equal(t, domain.ScopeMessages|domain.ScopeFolders, st.Scope)

	assert.ErrorIs(t, f.auth.Release("magma", domain.ProtocolSMTP), domain.ErrNotFound)
	assert.ErrorIs(t, f.auth.Release("", domain.ProtocolIMAP), domain.ErrInvalidUsername)

	n, err := f.auth.EvictIfIdle(context.Background(), "magma")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "still referenced")
}

func TestAuthenticator_RateLimit(t *testing.T) {
	f := newFixture(t, RateLimitConfig{FailuresPerMinute: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		res, _ := f.authenticate("magma", "wrong", domain.ProtocolGeneric, domain.ScopeAll)
		assert.Equal(t, OutcomeFailed, res.Outcome)
	}
	res, err := f.authenticate("magma", "test", domain.ProtocolGeneric, domain.ScopeAll)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	res, err = f.authenticate("other", "whatever", domain.ProtocolGeneric, domain.ScopeAll)
	assert.ErrorIs(t, err, domain.ErrAuthFailed, "limits are per user")
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestAuthenticator_SuccessResetsRateLimit(t *testing.T) {
	f := newFixture(t, RateLimitConfig{FailuresPerMinute: 1, Burst: 2})

	_, _ = f.authenticate("magma", "wrong", domain.ProtocolGeneric, domain.ScopeAll)
	res, err := f.authenticate("magma", "test", domain.ProtocolGeneric, domain.ScopeAll)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, 0, f.auth.limiter.Len())
}

func TestAuthenticator_ReportDoesNotLeakSecrets(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	f := newFixture(t, RateLimitConfig{}, WithLogger(l))

	_, _ = f.authenticate("magma", "test", domain.ProtocolIMAP, domain.ScopeAll)
	_, _ = f.authenticate("magma", "hunter2", domain.ProtocolIMAP, domain.ScopeAll)
	f.store.hashErr = errBackend
	_, _ = f.authenticate("magma", "test", domain.ProtocolIMAP, domain.ScopeAll)

	out := buf.String()
	assert.Contains(t, out, `"status":"PASSED"`)
	assert.Contains(t, out, `"status":"FAILED"`)
	assert.Contains(t, out, `"status":"SKIPPED"`)
	assert.Contains(t, out, `"attempt_id"`)
	assert.NotContains(t, out, "hunter2")
	assert.Equal(t, 3, strings.Count(out, `"msg":"auth attempt"`))
}

func TestAuthenticator_Maintain(t *testing.T) {
	clock := newFakeClock()
	f := newFixture(t, RateLimitConfig{}, WithClock(clock.Now))
	ctx := context.Background()

	_, err := f.authenticate("magma", "test", domain.ProtocolGeneric, domain.ScopeAll)
	require.NoError(t, err)
	require.NoError(t, f.auth.Release("magma", domain.ProtocolGeneric))

	clock.Advance(time.Hour)
	n, err := f.auth.Maintain(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, f.auth.Close(ctx))
}
