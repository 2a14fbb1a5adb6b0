package domain

import (
	"log/slog"
	"time"
)

// Credential is the per-attempt identity and secret material of an
// authentication attempt.
//
// A Credential is created by the credential builder with only a canonical
// Username. It becomes auth-ready once a verification hash has been
// computed for it. Secret fields are never exported, printed or logged and
// are zeroed by Wipe.
type Credential struct {
	// Username is the canonical identity.
	Username string

	password []byte
	salt     []byte
	hash     []byte
}

// NewCredential returns a credential for an already canonical username.
func NewCredential(username string) *Credential {
	return &Credential{Username: username}
}

// SetSecret copies password and salt into the credential, replacing and
// wiping any previous values. A nil salt is kept as nil.
func (c *Credential) SetSecret(password, salt []byte) {
	wipe(c.password)
	wipe(c.salt)
	c.password = append(make([]byte, 0, len(password)), password...)
	c.salt = nil
	if salt != nil {
		c.salt = append(make([]byte, 0, len(salt)), salt...)
	}
}

// SetHash stores the computed verification hash. The credential takes
// ownership of h.
func (c *Credential) SetHash(h []byte) {
	wipe(c.hash)
	c.hash = h
}

// Password returns the stored password. The slice aliases internal state.
func (c *Credential) Password() []byte { return c.password }

// Salt returns the stored salt. The slice aliases internal state.
func (c *Credential) Salt() []byte { return c.salt }

// Hash returns the computed hash, or nil before computation.
func (c *Credential) Hash() []byte { return c.hash }

// AuthReady reports whether a verification hash is present.
func (c *Credential) AuthReady() bool {
	return c != nil && len(c.hash) > 0
}

// Wipe zeroes all secret material. It is safe to call more than once and
// on a nil credential.
func (c *Credential) Wipe() {
	if c == nil {
		return
	}
	wipe(c.password)
	wipe(c.salt)
	wipe(c.hash)
	c.password, c.salt, c.hash = nil, nil, nil
}

// String implements fmt.Stringer without exposing secrets.
func (c *Credential) String() string {
	if c == nil {
		return "Credential(<nil>)"
	}
	return "Credential(" + c.Username + ")"
}

// LogValue implements slog.LogValuer so credentials log as their username.
func (c *Credential) LogValue() slog.Value {
	if c == nil {
		return slog.StringValue("")
	}
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.Bool("auth_ready", c.AuthReady()),
	)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// StoredCredential is the persisted verification record of a user.
type StoredCredential struct {
	Username  string    `json:"username"`
	Salt      []byte    `json:"salt"`
	Hash      []byte    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of s.
func (s *StoredCredential) Clone() *StoredCredential {
	if s == nil {
		return nil
	}
	return &StoredCredential{
		Username:  s.Username,
		Salt:      append([]byte(nil), s.Salt...),
		Hash:      append([]byte(nil), s.Hash...),
		CreatedAt: s.CreatedAt,
	}
}

// Validate checks that the record can be stored.
func (s *StoredCredential) Validate() error {
	switch {
	case s == nil:
		return ErrInvalidArgument.WithDetails("nil credential record")
	case s.Username == "":
		return ErrInvalidArgument.WithDetails("empty username")
	case len(s.Salt) == 0:
		return ErrInvalidArgument.WithDetails("empty salt")
	case len(s.Hash) == 0:
		return ErrInvalidArgument.WithDetails("empty hash")
	}
	return nil
}
