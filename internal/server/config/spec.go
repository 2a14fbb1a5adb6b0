package config

import (
	"time"

	"github.com/Pluto-lin/magma/internal/storage"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/internal/telemetry/tracer"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// Config is the root configuration of magmad and magma-auth.
type Config struct {
	Server  ServerSection  `koanf:"server" json:"server" yaml:"server"`
	Auth    AuthSection    `koanf:"auth" json:"auth" yaml:"auth"`
	Cache   CacheSection   `koanf:"cache" json:"cache" yaml:"cache"`
	Storage StorageSection `koanf:"storage" json:"storage" yaml:"storage"`
	Maildir MaildirSection `koanf:"maildir" json:"maildir" yaml:"maildir"`
	Log     logger.Config  `koanf:"log" json:"log" yaml:"log"`
	Tracing tracer.Config  `koanf:"tracing" json:"tracing" yaml:"tracing"`
}

// ServerSection configures the operations HTTP listener.
type ServerSection struct {
	// Addr serves /healthz, /readyz, /metrics and the admin API.
	// Empty disables the listener.
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`

	// AdminAllowList restricts /admin/ to these IPs or CIDRs. Empty
	// means loopback only.
	AdminAllowList []string `koanf:"admin_allow_list" json:"admin_allow_list" yaml:"admin_allow_list"`

	// AdminSocket also serves the operations API on a Unix socket, with
	// no allowlist. Empty disables it.
	AdminSocket string `koanf:"admin_socket" json:"admin_socket" yaml:"admin_socket"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AuthSection configures credential derivation and verification.
type AuthSection struct {
	// Pepper keys the verification hash. Exactly one of Pepper and
	// PepperFile must be set.
	Pepper     string `koanf:"pepper" json:"pepper" yaml:"pepper"`
	PepperFile string `koanf:"pepper_file" json:"pepper_file" yaml:"pepper_file"`

	Argon2            verifier.Params  `koanf:"argon2" json:"argon2" yaml:"argon2"`
	MaxPasswordLength int              `koanf:"max_password_length" json:"max_password_length" yaml:"max_password_length"`
	MinPasswordLength int              `koanf:"min_password_length" json:"min_password_length" yaml:"min_password_length"`
	HomeDomains       []string         `koanf:"home_domains" json:"home_domains" yaml:"home_domains"`
	RateLimit         RateLimitSection `koanf:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
}

// RateLimitSection throttles repeated failures per user.
type RateLimitSection struct {
	FailuresPerMinute int `koanf:"failures_per_minute" json:"failures_per_minute" yaml:"failures_per_minute"`
	Burst             int `koanf:"burst" json:"burst" yaml:"burst"`
}

// CacheSection configures the user object cache.
type CacheSection struct {
	Shards     int `koanf:"shards" json:"shards" yaml:"shards"`
	MaxEntries int `koanf:"max_entries" json:"max_entries" yaml:"max_entries"`

	// IdleTTL is how long an unreferenced user stays cached.
	IdleTTL time.Duration `koanf:"idle_ttl" json:"idle_ttl" yaml:"idle_ttl"`

	// SweepInterval is the period of the idle sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval" yaml:"sweep_interval"`
}

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// StorageSection selects and configures the credential backend.
type StorageSection struct {
	Backend string           `koanf:"backend" json:"backend" yaml:"backend"`
	KV      storage.KVConfig `koanf:"kv" json:"kv" yaml:"kv"`
	SQL     SQLConfig        `koanf:"sql" json:"sql" yaml:"sql"`
}

// SQLConfig configures the SQL backend. The contacts table of the same
// database feeds the contacts scope of the cache.
type SQLConfig struct {
	Driver string `koanf:"driver" json:"driver" yaml:"driver"` // postgres | sqlite
	DSN    string `koanf:"dsn" json:"dsn" yaml:"dsn"`
}

// MaildirSection configures the message and folder loader.
type MaildirSection struct {
	// Root holds one Maildir++ tree per user. Empty disables the loader.
	Root string `koanf:"root" json:"root" yaml:"root"`
}
