// Package config defines the magmad configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: copy with secrets masked, for logging and display
//   - load.go: reading a file plus MAGMA_ environment overrides
//
// Configuration is loaded via internal/infra/confloader.
package config
