package verifier

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
)

// Default Argon2id parameters.
const (
	// DefaultMemory is the memory parameter in KiB (16 MiB).
	DefaultMemory uint32 = 16384

	// DefaultTime is the iteration count.
	DefaultTime uint32 = 2

	// DefaultThreads is the parallelism factor.
	DefaultThreads uint8 = 2

	// DefaultKeyLen is the Argon2id output length in bytes.
	DefaultKeyLen uint32 = 32

	// SaltLen is the length of generated salts in bytes.
	SaltLen = 16

	// HashLen is the length of a verification hash in bytes.
	HashLen = blake2b.Size

	// MaxPepperLen is the longest pepper BLAKE2b accepts as a key.
	MaxPepperLen = 64
)

// ErrPepperTooLong is returned by New when the pepper exceeds MaxPepperLen.
var ErrPepperTooLong = errors.New("verifier: pepper longer than 64 bytes")

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32 `koanf:"time" json:"time" yaml:"time"`
	Memory  uint32 `koanf:"memory" json:"memory" yaml:"memory"`
	Threads uint8  `koanf:"threads" json:"threads" yaml:"threads"`
	KeyLen  uint32 `koanf:"key_len" json:"key_len" yaml:"key_len"`
}

// DefaultParams returns the production cost parameters.
func DefaultParams() Params {
	return Params{
		Time:    DefaultTime,
		Memory:  DefaultMemory,
		Threads: DefaultThreads,
		KeyLen:  DefaultKeyLen,
	}
}

// Validate reports parameters argon2 would reject or that produce a weak key.
func (p Params) Validate() error {
	switch {
	case p.Time == 0:
		return fmt.Errorf("argon2 time must be positive")
	case p.Threads == 0:
		return fmt.Errorf("argon2 threads must be positive")
	case p.Memory < 8*uint32(p.Threads):
		return fmt.Errorf("argon2 memory must be at least 8*threads KiB")
	case p.KeyLen < 16:
		return fmt.Errorf("argon2 key length must be at least 16 bytes")
	}
	return nil
}

// Hasher derives verification hashes with a fixed pepper and parameters.
// A Hasher is safe for concurrent use.
type Hasher struct {
	pepper []byte
	params Params
}

// New creates a Hasher. The pepper is copied.
func New(pepper []byte, params Params) (*Hasher, error) {
	if len(pepper) > MaxPepperLen {
		return nil, ErrPepperTooLong
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := make([]byte, len(pepper))
	copy(p, pepper)
	return &Hasher{pepper: p, params: params}, nil
}

// Params returns the Argon2id parameters of h.
func (h *Hasher) Params() Params {
	return h.params
}

// Derive computes the verification hash for password and salt.
func (h *Hasher) Derive(password, salt []byte) []byte {
	key := argon2.IDKey(password, salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	defer Wipe(key)

	mac, err := blake2b.New512(h.pepper)
	if err != nil {
		// Unreachable: New bounds the pepper length.
		panic(err)
	}
	mac.Write(key)
	return mac.Sum(nil)
}

// DecoySalt returns a salt derived from username and the pepper. It lets
// callers run a full derivation for usernames that have no stored salt.
func (h *Hasher) DecoySalt(username string) []byte {
	mac, err := blake2b.New256(h.pepper)
	if err != nil {
		panic(err)
	}
	mac.Write([]byte("decoy-salt\x00"))
	mac.Write([]byte(username))
	return mac.Sum(nil)[:SaltLen]
}

// Equal reports whether two hashes are identical in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// NewSalt returns SaltLen random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}
