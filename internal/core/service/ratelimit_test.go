package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterRegistry_Disabled(t *testing.T) {
	r := NewRateLimiterRegistry(RateLimitConfig{})
	require.Nil(t, r, "zero config should disable the registry")

	r.Failed("magma")
	r.Reset("magma")
	assert.True(t, r.Allowed("magma"))
	assert.Zero(t, r.Sweep())
	assert.Zero(t, r.Len())
}

func TestRateLimiterRegistry_Throttles(t *testing.T) {
	r := NewRateLimiterRegistry(RateLimitConfig{FailuresPerMinute: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		require.True(t, r.Allowed("magma"), "attempt %d", i)
		r.Failed("magma")
	}
	assert.False(t, r.Allowed("magma"), "throttled after burst failures")
	assert.True(t, r.Allowed("other"), "other users are not affected")

	r.Reset("magma")
	assert.True(t, r.Allowed("magma"), "Reset clears the throttle")
}

func TestRateLimiterRegistry_Sweep(t *testing.T) {
	r := NewRateLimiterRegistry(RateLimitConfig{FailuresPerMinute: 60})
	r.Failed("a")
	r.Failed("b")
	require.Equal(t, 2, r.Len())

	// Both buckets are short by a token, so nothing is dropped yet.
	assert.Zero(t, r.Sweep())
}
