package config

import (
	"strings"

	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with the pepper and database
// password masked.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	sanitized.Auth.HomeDomains = append([]string(nil), cfg.Auth.HomeDomains...)
	sanitized.Server.AdminAllowList = append([]string(nil), cfg.Server.AdminAllowList...)

	if sanitized.Auth.Pepper != "" {
		sanitized.Auth.Pepper = maskSecret(sanitized.Auth.Pepper)
	}
	if sanitized.Storage.SQL.DSN != "" {
		sanitized.Storage.SQL.DSN = logger.MaskDSN(sanitized.Storage.SQL.DSN)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
