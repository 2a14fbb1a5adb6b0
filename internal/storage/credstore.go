package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

const credentialPrefix = "cred/"

// KVCredentialStore keeps one JSON record per user in a KVEngine.
type KVCredentialStore struct {
	kv KVEngine
}

// NewKVCredentialStore wraps kv. The engine is not owned: closing the
// store does not close it.
func NewKVCredentialStore(kv KVEngine) *KVCredentialStore {
	return &KVCredentialStore{kv: kv}
}

func credentialKey(username string) []byte {
	return []byte(credentialPrefix + username)
}

// Get returns the stored record for username or domain.ErrNotFound.
func (s *KVCredentialStore) Get(ctx context.Context, username string) (*domain.StoredCredential, error) {
	raw, err := s.kv.Get(ctx, credentialKey(username))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrNotFound.WithDetailsf("user %q", username)
		}
		return nil, fmt.Errorf("storage: get credential: %w", err)
	}
	var rec domain.StoredCredential
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("storage: decode credential %q: %w", username, err)
	}
	return &rec, nil
}

// LookupSalt implements service.CredentialStore.
func (s *KVCredentialStore) LookupSalt(ctx context.Context, username string) ([]byte, error) {
	rec, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return rec.Salt, nil
}

// LookupHash implements service.CredentialStore.
func (s *KVCredentialStore) LookupHash(ctx context.Context, username string) ([]byte, error) {
	rec, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return rec.Hash, nil
}

// PutCredential creates or replaces the record of rec.Username.
func (s *KVCredentialStore) PutCredential(ctx context.Context, rec *domain.StoredCredential) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode credential: %w", err)
	}
	if err := s.kv.Set(ctx, credentialKey(rec.Username), raw); err != nil {
		return fmt.Errorf("storage: put credential: %w", err)
	}
	return nil
}

// DeleteCredential removes the record of username. Returns
// domain.ErrNotFound if there is none.
func (s *KVCredentialStore) DeleteCredential(ctx context.Context, username string) error {
	if _, err := s.Get(ctx, username); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, credentialKey(username)); err != nil {
		return fmt.Errorf("storage: delete credential: %w", err)
	}
	return nil
}

// List returns the usernames of all stored records in key order.
func (s *KVCredentialStore) List(ctx context.Context) ([]string, error) {
	var users []string
	err := s.kv.Scan(ctx, []byte(credentialPrefix), func(key, _ []byte) bool {
		users = append(users, string(key[len(credentialPrefix):]))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list credentials: %w", err)
	}
	return users, nil
}
