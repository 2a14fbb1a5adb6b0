// Package command provides the magma-auth commands.
//
// magma-auth works offline against the configured credential backend
// (check, hash, users, config) or online against the operations API of a
// running magmad (cache).
package command
