// Package logger provides structured logging for magma.
//
// It wraps log/slog behind a small Logger interface:
//
//   - logger.go: handler construction, global level, default logger
//   - context.go: context propagation of the logger, attempt and trace IDs
//   - redact.go: masking of secret-bearing attributes
//
// Attributes whose key looks secret (password, salt, hash, pepper, ...)
// are replaced before they reach the handler, whatever their value type.
package logger
