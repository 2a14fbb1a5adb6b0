package config

import (
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/core/service"
	"github.com/Pluto-lin/magma/internal/storage"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/internal/telemetry/tracer"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// Default configuration values.
const (
	DefaultServerAddr      = "127.0.0.1:9125"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDataDir = "/var/lib/magma/credentials"

	DefaultCacheShards        = 32
	DefaultCacheIdleTTL       = 15 * time.Minute
	DefaultCacheSweepInterval = time.Minute

	DefaultFailuresPerMinute = 10
	DefaultFailureBurst      = 5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration. The pepper is left empty and
// must be supplied.
func Default() *Config {
	return &Config{
		Server: ServerSection{
			Addr:            DefaultServerAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Auth: AuthSection{
			Argon2:            verifier.DefaultParams(),
			MaxPasswordLength: service.DefaultMaxPasswordLength,
			HomeDomains:       []string{domain.DefaultHomeDomain},
			RateLimit: RateLimitSection{
				FailuresPerMinute: DefaultFailuresPerMinute,
				Burst:             DefaultFailureBurst,
			},
		},
		Cache: CacheSection{
			Shards:        DefaultCacheShards,
			IdleTTL:       DefaultCacheIdleTTL,
			SweepInterval: DefaultCacheSweepInterval,
		},
		Storage: StorageSection{
			Backend: BackendBadger,
			KV:      storage.DefaultKVConfig(DefaultDataDir),
			SQL:     SQLConfig{Driver: "sqlite"},
		},
		Log: logger.Config{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: tracer.DefaultConfig(),
	}
}

// BuilderConfig converts the auth section for service.NewCredentialBuilder.
func (c *Config) BuilderConfig() *service.CredentialBuilderConfig {
	return &service.CredentialBuilderConfig{
		MaxPasswordLength: c.Auth.MaxPasswordLength,
		MinPasswordLength: c.Auth.MinPasswordLength,
		HomeDomains:       append([]string(nil), c.Auth.HomeDomains...),
	}
}

// CacheConfig converts the cache section for service.NewCache.
func (c *Config) CacheConfig() *service.CacheConfig {
	return &service.CacheConfig{
		Shards:     c.Cache.Shards,
		MaxEntries: c.Cache.MaxEntries,
	}
}

// RateLimitConfig converts the rate limit section.
func (c *Config) RateLimitConfig() service.RateLimitConfig {
	return service.RateLimitConfig{
		FailuresPerMinute: c.Auth.RateLimit.FailuresPerMinute,
		Burst:             c.Auth.RateLimit.Burst,
	}
}
