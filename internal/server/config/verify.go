package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/Pluto-lin/magma/internal/storage/sqlstore"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// maxSocketPath fits sun_path on Linux and the BSDs.
const maxSocketPath = 103

// Verify validates the configuration and returns every problem found.
func Verify(cfg *Config) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyAuth(&cfg.Auth),
		verifyCache(&cfg.Cache),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
		cfg.Tracing.Validate(),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if cfg.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.addr: %w", err))
		}
	}
	for _, entry := range cfg.AdminAllowList {
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err != nil {
			errs = append(errs, fmt.Errorf("server.admin_allow_list: %q is neither an IP nor a CIDR", entry))
		}
	}
	if cfg.AdminSocket != "" && len(cfg.AdminSocket) > maxSocketPath {
		errs = append(errs, fmt.Errorf("server.admin_socket exceeds %d bytes", maxSocketPath))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifyAuth(cfg *AuthSection) error {
	var errs []error
	switch {
	case cfg.Pepper == "" && cfg.PepperFile == "":
		errs = append(errs, errors.New("auth.pepper or auth.pepper_file is required"))
	case cfg.Pepper != "" && cfg.PepperFile != "":
		errs = append(errs, errors.New("auth.pepper and auth.pepper_file are mutually exclusive"))
	case len(cfg.Pepper) > verifier.MaxPepperLen:
		errs = append(errs, fmt.Errorf("auth.pepper exceeds %d bytes", verifier.MaxPepperLen))
	}
	if err := cfg.Argon2.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth.argon2: %w", err))
	}
	if cfg.MaxPasswordLength <= 0 {
		errs = append(errs, errors.New("auth.max_password_length must be positive"))
	}
	if cfg.MinPasswordLength < 0 || cfg.MinPasswordLength > cfg.MaxPasswordLength {
		errs = append(errs, errors.New("auth.min_password_length must be between 0 and auth.max_password_length"))
	}
	if cfg.RateLimit.FailuresPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("auth.rate_limit values must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyCache(cfg *CacheSection) error {
	var errs []error
	if cfg.Shards <= 0 || cfg.Shards&(cfg.Shards-1) != 0 {
		errs = append(errs, fmt.Errorf("cache.shards must be a power of two, got %d", cfg.Shards))
	}
	if cfg.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}
	if cfg.IdleTTL <= 0 {
		errs = append(errs, errors.New("cache.idle_ttl must be positive"))
	}
	if cfg.SweepInterval <= 0 {
		errs = append(errs, errors.New("cache.sweep_interval must be positive"))
	}
	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendMemory:
		return nil
	case BackendBadger:
		if cfg.KV.InMemory {
			return nil
		}
		if cfg.KV.Dir == "" {
			return errors.New("storage.kv.dir is required")
		}
		if err := os.MkdirAll(cfg.KV.Dir, 0o750); err != nil {
			return fmt.Errorf("cannot create storage.kv.dir: %w", err)
		}
		return nil
	case BackendSQL:
		if _, err := sqlstore.ParseDialect(cfg.SQL.Driver); err != nil {
			return fmt.Errorf("storage.sql.driver: %w", err)
		}
		if strings.TrimSpace(cfg.SQL.DSN) == "" {
			return errors.New("storage.sql.dsn is required")
		}
		return nil
	}
	return fmt.Errorf("storage.backend must be one of %s, %s, %s; got %q",
		BackendBadger, BackendSQL, BackendMemory, cfg.Backend)
}

func verifyLog(cfg *logger.Config) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
}

// LoadPepper returns the configured pepper, reading PepperFile when set.
// Surrounding whitespace of a file pepper is trimmed.
func (a *AuthSection) LoadPepper() ([]byte, error) {
	if a.PepperFile == "" {
		if a.Pepper == "" {
			return nil, errors.New("auth.pepper is empty")
		}
		return []byte(a.Pepper), nil
	}
	raw, err := os.ReadFile(a.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("read auth.pepper_file: %w", err)
	}
	pepper := []byte(strings.TrimSpace(string(raw)))
	if len(pepper) == 0 {
		return nil, fmt.Errorf("auth.pepper_file %s is empty", a.PepperFile)
	}
	if len(pepper) > verifier.MaxPepperLen {
		return nil, fmt.Errorf("auth.pepper_file exceeds %d bytes", verifier.MaxPepperLen)
	}
	return pepper, nil
}
