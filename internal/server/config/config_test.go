package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes Verify without touching the
// filesystem outside the test.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.Auth.Pepper = "test-pepper"
	cfg.Storage.KV.Dir = filepath.Join(t.TempDir(), "kv")
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, DefaultDataDir, cfg.Storage.KV.Dir)
	assert.Equal(t, []string{"lavabit.com"}, cfg.Auth.HomeDomains)
	assert.Equal(t, 1024, cfg.Auth.MaxPasswordLength)
	assert.Zero(t, cfg.Auth.MinPasswordLength)
	assert.Equal(t, DefaultCacheIdleTTL, cfg.Cache.IdleTTL)
	assert.False(t, cfg.Tracing.Enabled)

	// The pepper has no default.
	assert.Error(t, Verify(cfg))
}

func TestVerify_Valid(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, Verify(cfg))

	_, err := os.Stat(cfg.Storage.KV.Dir)
	assert.NoError(t, err, "Verify should create the KV directory")
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no pepper", func(c *Config) { c.Auth.Pepper = "" }, "auth.pepper or auth.pepper_file"},
		{"both peppers", func(c *Config) { c.Auth.PepperFile = "/p" }, "mutually exclusive"},
		{"long pepper", func(c *Config) { c.Auth.Pepper = strings.Repeat("p", 65) }, "exceeds 64"},
		{"argon2", func(c *Config) { c.Auth.Argon2.Time = 0 }, "auth.argon2"},
		{"password length", func(c *Config) { c.Auth.MaxPasswordLength = 0 }, "max_password_length"},
		{"min password length", func(c *Config) { c.Auth.MinPasswordLength = 2048 }, "min_password_length"},
		{"rate limit", func(c *Config) { c.Auth.RateLimit.Burst = -1 }, "rate_limit"},
		{"shards", func(c *Config) { c.Cache.Shards = 12 }, "power of two"},
		{"idle ttl", func(c *Config) { c.Cache.IdleTTL = 0 }, "idle_ttl"},
		{"sweep", func(c *Config) { c.Cache.SweepInterval = -time.Second }, "sweep_interval"},
		{"backend", func(c *Config) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"kv dir", func(c *Config) { c.Storage.KV.Dir = "" }, "storage.kv.dir"},
		{"sql driver", func(c *Config) { c.Storage.Backend = BackendSQL; c.Storage.SQL.Driver = "mysql" }, "storage.sql.driver"},
		{"sql dsn", func(c *Config) { c.Storage.Backend = BackendSQL }, "storage.sql.dsn"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"addr", func(c *Config) { c.Server.Addr = "nonsense" }, "server.addr"},
		{"acl", func(c *Config) { c.Server.AdminAllowList = []string{"10.0.0.0/33"} }, "admin_allow_list"},
		{"shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"tracing", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Endpoint = "" }, "tracing.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVerify_InMemoryBackends(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Backend = BackendMemory
	cfg.Storage.KV.Dir = ""
	assert.NoError(t, Verify(cfg))

	cfg.Storage.Backend = BackendBadger
	cfg.Storage.KV.InMemory = true
	assert.NoError(t, Verify(cfg))
}

func TestSanitize(t *testing.T) {
	cfg := validConfig(t)
	cfg.Auth.Pepper = "super-secret-pepper"
	cfg.Storage.SQL.DSN = "postgres://magma:hunter2@db:5432/magma"

	s := Sanitize(cfg)

	assert.Equal(t, "super-secret-pepper", cfg.Auth.Pepper, "original must be unchanged")
	assert.NotEqual(t, cfg.Auth.Pepper, s.Auth.Pepper)
	assert.Len(t, s.Auth.Pepper, len(cfg.Auth.Pepper))
	assert.Equal(t, "postgres://magma:***@db:5432/magma", s.Storage.SQL.DSN)

	s.Auth.HomeDomains[0] = "changed"
	assert.Equal(t, "lavabit.com", cfg.Auth.HomeDomains[0])
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "ab**ef", maskSecret("abcdef"))
}

func TestLoadPepper(t *testing.T) {
	a := AuthSection{Pepper: "inline"}
	p, err := a.LoadPepper()
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), p)

	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	a = AuthSection{PepperFile: path}
	p, err = a.LoadPepper()
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), p)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = a.LoadPepper()
	assert.Error(t, err)

	_, err = (&AuthSection{}).LoadPepper()
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "magma.yaml")
	content := `
auth:
  pepper: file-pepper
  home_domains: [lavabit.com, example.org]
cache:
  idle_ttl: 2m
storage:
  backend: memory
log:
  level: info
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("MAGMA_CACHE__MAX_ENTRIES", "500")

	cfg, l, err := Load(path, map[string]any{"log.level": "debug"})
	require.NoError(t, err)
	require.NotNil(t, l)

	assert.Equal(t, "file-pepper", cfg.Auth.Pepper)
	assert.Equal(t, []string{"lavabit.com", "example.org"}, cfg.Auth.HomeDomains)
	assert.Equal(t, 2*time.Minute, cfg.Cache.IdleTTL)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultCacheSweepInterval, cfg.Cache.SweepInterval, "unset values keep defaults")

	bc := cfg.BuilderConfig()
	assert.Equal(t, cfg.Auth.HomeDomains, bc.HomeDomains)
	assert.Equal(t, 500, cfg.CacheConfig().MaxEntries)
	assert.Equal(t, DefaultFailureBurst, cfg.RateLimitConfig().Burst)

	require.NoError(t, os.WriteFile(path, []byte("auth:\n  pepper: rotated\nstorage:\n  backend: memory\n"), 0o600))
	cfg, err = Reload(l)
	require.NoError(t, err)
	assert.Equal(t, "rotated", cfg.Auth.Pepper)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magma.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o600))

	_, _, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pepper")
}
