// Package handler provides the HTTP handlers of the magmad operations
// server.
package handler
