// Package connection is the magma-auth client of the magmad operations
// API. Responses use the envelope of package handler.
package connection
