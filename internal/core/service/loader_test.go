package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

func TestCompositeLoader_Load(t *testing.T) {
	mail := &fakeLoader{}
	contacts := &fakeLoader{}
	c := NewCompositeLoader().
		Register(domain.ScopeMessages|domain.ScopeFolders, mail).
		Register(domain.ScopeContacts, contacts)

	p, err := c.Load(context.Background(), "magma", domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeAll, p.Scope)
	assert.Len(t, p.Messages, 1)
	assert.Len(t, p.Folders, 1)
	assert.Len(t, p.Contacts, 1)
	assert.Equal(t, []domain.Scope{domain.ScopeMessages | domain.ScopeFolders}, mail.loadedScopes())
	assert.Equal(t, []domain.Scope{domain.ScopeContacts}, contacts.loadedScopes())

	_, err = c.Load(context.Background(), "magma", domain.ScopeContacts)
	require.NoError(t, err)
	assert.Equal(t, 1, mail.loadCount(), "parts outside the scope are not called")
}

func TestCompositeLoader_UnregisteredScopeLoadsEmpty(t *testing.T) {
	c := NewCompositeLoader().Register(domain.ScopeMessages, &fakeLoader{})

	p, err := c.Load(context.Background(), "magma", domain.ScopeMessages|domain.ScopeContacts)
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeMessages|domain.ScopeContacts, p.Scope)
	assert.Empty(t, p.Contacts)
}

func TestCompositeLoader_Override(t *testing.T) {
	first := &fakeLoader{}
	second := &fakeLoader{}
	c := NewCompositeLoader().Register(domain.ScopeAll, first).Register(domain.ScopeContacts, second)

	_, err := c.Load(context.Background(), "magma", domain.ScopeContacts)
	require.NoError(t, err)
	assert.Zero(t, first.loadCount())
	assert.Equal(t, 1, second.loadCount())
}

func TestCompositeLoader_Errors(t *testing.T) {
	ok := &fakeLoader{}
	bad := &fakeLoader{}
	bad.setErrors(errBackend, errors.New("release failed"))
	c := NewCompositeLoader().Register(domain.ScopeMessages, ok).Register(domain.ScopeContacts, bad)

	_, err := c.Load(context.Background(), "magma", domain.ScopeAll)
	assert.ErrorIs(t, err, errBackend)

	err = c.Release(context.Background(), "magma")
	assert.Error(t, err)
	assert.EqualValues(t, 1, ok.releases.Load())
	assert.EqualValues(t, 1, bad.releases.Load())
}
