package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

// CredentialStore keeps verification records in a map.
type CredentialStore struct {
	mu      sync.RWMutex
	records map[string]*domain.StoredCredential
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		records: make(map[string]*domain.StoredCredential),
	}
}

func (s *CredentialStore) get(username string) (*domain.StoredCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[username]
	if !ok {
		return nil, domain.ErrNotFound.WithDetailsf("user %q", username)
	}
	return rec.Clone(), nil
}

// LookupSalt returns a copy of the user's salt.
func (s *CredentialStore) LookupSalt(_ context.Context, username string) ([]byte, error) {
	rec, err := s.get(username)
	if err != nil {
		return nil, err
	}
	return rec.Salt, nil
}

// LookupHash returns a copy of the user's verification hash.
func (s *CredentialStore) LookupHash(_ context.Context, username string) ([]byte, error) {
	rec, err := s.get(username)
	if err != nil {
		return nil, err
	}
	return rec.Hash, nil
}

// PutCredential creates or replaces a record.
func (s *CredentialStore) PutCredential(_ context.Context, rec *domain.StoredCredential) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Username] = rec.Clone()
	return nil
}

// DeleteCredential removes a record.
func (s *CredentialStore) DeleteCredential(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[username]; !ok {
		return domain.ErrNotFound.WithDetailsf("user %q", username)
	}
	delete(s.records, username)
	return nil
}

// List returns all usernames, sorted.
func (s *CredentialStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.records))
	for u := range s.records {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}
