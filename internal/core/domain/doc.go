// Package domain defines the core domain models for magma.
//
// Domain models are plain values without IO dependencies. This package
// contains:
//
//   - Credential: per-attempt identity and secret material
//   - UsernamePolicy: canonicalization of raw usernames
//   - Protocol and Scope: reference-count keys and load scopes of the user cache
//   - Payload: cached per-user message, folder and contact metadata
//   - Errors: coded domain errors
package domain
