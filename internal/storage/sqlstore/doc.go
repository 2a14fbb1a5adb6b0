// Package sqlstore keeps credentials and contacts in a SQL database.
//
// Two drivers are supported: PostgreSQL through pgx and SQLite through
// modernc.org/sqlite. Queries are written with "?" placeholders and
// rebound for PostgreSQL. The schema is applied with goose on Open.
//
// Salts and hashes are stored base64-encoded so the schema is identical
// on both databases.
package sqlstore
