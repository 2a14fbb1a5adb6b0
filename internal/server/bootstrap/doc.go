// Package bootstrap assembles the authentication stack from a verified
// configuration: credential backend, payload loaders, hasher, user cache
// and authenticator. magmad and magma-auth share it so that an offline
// check exercises exactly what the daemon runs.
package bootstrap
