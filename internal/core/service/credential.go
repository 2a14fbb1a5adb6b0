package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// DefaultMaxPasswordLength bounds the password size in bytes.
const DefaultMaxPasswordLength = 1024

// CredentialBuilderConfig holds configuration for CredentialBuilder.
type CredentialBuilderConfig struct {
	// MaxPasswordLength is the longest accepted password in bytes.
	MaxPasswordLength int

	// MinPasswordLength is the shortest accepted password, counted both in
	// bytes and in UTF-8 characters. Zero disables the check.
	MinPasswordLength int

	// HomeDomains are dropped from usernames during canonicalization.
	HomeDomains []string
}

// DefaultCredentialBuilderConfig returns default configuration.
func DefaultCredentialBuilderConfig() *CredentialBuilderConfig {
	return &CredentialBuilderConfig{
		MaxPasswordLength: DefaultMaxPasswordLength,
		HomeDomains:       []string{domain.DefaultHomeDomain},
	}
}

// CredentialBuilder turns raw usernames into credentials and computes
// their verification hashes. It never decides whether a password is
// correct.
type CredentialBuilder struct {
	store       CredentialStore
	hasher      *verifier.Hasher
	policy      *domain.UsernamePolicy
	maxPassword int
	minPassword int
}

// NewCredentialBuilder creates a CredentialBuilder.
func NewCredentialBuilder(store CredentialStore, hasher *verifier.Hasher, cfg *CredentialBuilderConfig) *CredentialBuilder {
	if cfg == nil {
		cfg = DefaultCredentialBuilderConfig()
	}
	maxPassword := cfg.MaxPasswordLength
	if maxPassword <= 0 {
		maxPassword = DefaultMaxPasswordLength
	}
	return &CredentialBuilder{
		store:       store,
		hasher:      hasher,
		policy:      domain.NewUsernamePolicy(cfg.HomeDomains...),
		maxPassword: maxPassword,
		minPassword: max(cfg.MinPasswordLength, 0),
	}
}

// Canonicalize returns the canonical identity for raw.
func (b *CredentialBuilder) Canonicalize(raw []byte) (string, error) {
	return b.policy.Canonicalize(raw)
}

// BuildAuth creates a credential for raw. It performs no storage access.
func (b *CredentialBuilder) BuildAuth(raw []byte) (*domain.Credential, error) {
	username, err := b.policy.Canonicalize(raw)
	if err != nil {
		return nil, err
	}
	return domain.NewCredential(username), nil
}

// ComputeAuth attaches password and salt to cred and computes its
// verification hash. A nil salt is looked up in the credential store.
//
// Errors: ErrPasswordTooLong and ErrPasswordTooShort before any storage
// access, ErrSaltUnavailable when the store has no salt for the user,
// ErrInfrastructure when the store fails.
func (b *CredentialBuilder) ComputeAuth(ctx context.Context, cred *domain.Credential, password, salt []byte) (bool, error) {
	if cred == nil {
		return false, domain.ErrInvalidArgument.WithDetails("nil credential")
	}
	if len(password) > b.maxPassword {
		return false, domain.ErrPasswordTooLong.WithDetailsf("%d bytes, max %d", len(password), b.maxPassword)
	}
	if err := b.checkMinLength(password); err != nil {
		return false, err
	}

	if salt == nil {
		stored, err := b.store.LookupSalt(ctx, cred.Username)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return false, domain.ErrSaltUnavailable.WithCause(err)
		case err != nil:
			return false, domain.ErrInfrastructure.WithDetails("salt lookup").WithCause(err)
		case len(stored) == 0:
			return false, domain.ErrSaltUnavailable.WithDetails("empty salt")
		}
		defer verifier.Wipe(stored)
		salt = stored
	}

	cred.SetSecret(password, salt)
	cred.SetHash(b.hasher.Derive(cred.Password(), cred.Salt()))
	return true, nil
}

func (b *CredentialBuilder) checkMinLength(password []byte) error {
	if b.minPassword == 0 {
		return nil
	}
	if len(password) < b.minPassword || utf8.RuneCount(password) < b.minPassword {
		return domain.ErrPasswordTooShort.WithDetailsf("min %d", b.minPassword)
	}
	return nil
}

// ComputeDecoy hashes password against a salt derived from the username,
// so attempts for users without a stored salt cost the same as real ones.
// The resulting credential never verifies.
func (b *CredentialBuilder) ComputeDecoy(cred *domain.Credential, password []byte) {
	if len(password) > b.maxPassword {
		password = password[:b.maxPassword]
	}
	cred.SetSecret(password, b.hasher.DecoySalt(cred.Username))
	cred.SetHash(b.hasher.Derive(cred.Password(), cred.Salt()))
}

// HashRecord computes the verification record of a password. The username
// is canonicalized and a fresh salt generated.
func (b *CredentialBuilder) HashRecord(raw, password []byte) (*domain.StoredCredential, error) {
	username, err := b.policy.Canonicalize(raw)
	if err != nil {
		return nil, err
	}
	if len(password) > b.maxPassword {
		return nil, domain.ErrPasswordTooLong.WithDetailsf("%d bytes, max %d", len(password), b.maxPassword)
	}
	if err := b.checkMinLength(password); err != nil {
		return nil, err
	}
	salt, err := verifier.NewSalt()
	if err != nil {
		return nil, domain.ErrInfrastructure.WithDetails("salt").WithCause(err)
	}
	return &domain.StoredCredential{
		Username:  username,
		Salt:      salt,
		Hash:      b.hasher.Derive(password, salt),
		CreatedAt: time.Now().UTC(),
	}, nil
}
