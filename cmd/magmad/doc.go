// Package main provides the entry point for magmad.
//
// magmad hosts the authentication stack and the user object cache and
// serves the operations endpoints:
//
//   - /healthz and /readyz health checks
//   - /metrics for Prometheus
//   - /admin/v1/cache for inspecting and evicting cached users
//
// Usage:
//
//	magmad [flags]
//	magmad --config /etc/magma/magmad.yaml
//
// Configuration is read from the file and from MAGMA_ environment
// variables (MAGMA_AUTH__PEPPER_FILE=...). The file is watched; a change
// of log.level is applied without a restart.
package main
