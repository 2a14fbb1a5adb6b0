// Package storage provides the persistent credential backends of magma.
//
// The embedded backend stores one record per user in a KV engine
// (BadgerEngine by default). Other backends live in subpackages:
//
//   - memory: map-backed store for tests and fixtures
//   - sqlstore: PostgreSQL or SQLite via database/sql, with migrations
//   - maildir: message and folder loader for the user cache
package storage
