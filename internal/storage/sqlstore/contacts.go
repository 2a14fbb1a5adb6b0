package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

// Contacts returns the address book of username ordered by email.
func (s *Store) Contacts(ctx context.Context, username string) ([]domain.Contact, error) {
	query := s.rebind(`SELECT name, email, updated_at FROM contacts WHERE username = ? ORDER BY email`)
	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var updated int64
		if err := rows.Scan(&c.Name, &c.Email, &updated); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		c.Updated = time.UnixMilli(updated).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// ContactLoader serves the contacts part of the user cache payload.
type ContactLoader struct {
	store *Store
}

// NewContactLoader returns a loader reading from s.
func NewContactLoader(s *Store) *ContactLoader {
	return &ContactLoader{store: s}
}

// Load implements service.Loader. Only ScopeContacts is served.
func (l *ContactLoader) Load(ctx context.Context, username string, scope domain.Scope) (*domain.Payload, error) {
	p := &domain.Payload{Scope: scope & domain.ScopeContacts}
	if p.Scope == domain.ScopeNone {
		return p, nil
	}
	contacts, err := l.store.Contacts(ctx, username)
	if err != nil {
		return nil, err
	}
	p.Contacts = contacts
	return p, nil
}

// Release implements service.Loader. Nothing is held per user.
func (l *ContactLoader) Release(context.Context, string) error {
	return nil
}
