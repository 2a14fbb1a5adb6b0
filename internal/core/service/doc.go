// Package service provides the authentication services of magma.
//
// Services contain the business logic and define the storage interfaces
// they depend on (CredentialStore, Loader), so backends can be swapped and
// faked in tests.
//
// This package contains:
//
//   - CredentialBuilder: username canonicalization and hash computation
//   - Gate: constant-time verification and cache acquisition
//   - Cache: reference-counted per-user object cache
//   - Authenticator: the facade used by protocol front ends
//   - CompositeLoader: parallel per-scope payload loading
//   - RateLimiterRegistry: per-user failed-attempt throttling
//
// All services are safe for concurrent use.
package service
