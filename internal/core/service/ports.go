package service

import (
	"context"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

// CredentialStore provides per-user salts and verification hashes.
//
// Implementations report a missing user as domain.ErrNotFound (matched with
// errors.Is). Any other error is treated as an infrastructure failure.
// Returned slices are owned by the caller.
type CredentialStore interface {
	// LookupSalt returns the salt stored for username.
	LookupSalt(ctx context.Context, username string) ([]byte, error)

	// LookupHash returns the verification hash stored for username.
	LookupHash(ctx context.Context, username string) ([]byte, error)
}

// Loader materializes and releases per-user payloads for the user cache.
type Loader interface {
	// Load returns the parts of the user's payload selected by scope.
	Load(ctx context.Context, username string, scope domain.Scope) (*domain.Payload, error)

	// Release frees backend resources held for username once the cache
	// has dropped it.
	Release(ctx context.Context, username string) error
}
