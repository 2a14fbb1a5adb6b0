package config

import (
	"github.com/Pluto-lin/magma/internal/infra/confloader"
)

// Load reads path (optional) and MAGMA_ environment variables over the
// defaults, applies overrides, and verifies the result.
func Load(path string, overrides map[string]any) (*Config, *confloader.Loader, error) {
	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

// Reload re-reads all sources through l into a fresh default config.
func Reload(l *confloader.Loader) (*Config, error) {
	cfg := Default()
	if err := l.Reload(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
