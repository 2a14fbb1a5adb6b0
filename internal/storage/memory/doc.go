// Package memory provides an in-memory credential store.
//
// It is used by the "memory" storage backend and as a fixture in tests.
// Records do not survive a restart.
package memory
