package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
	"github.com/Pluto-lin/magma/pkg/verifier"
)

// testParams keeps Argon2id cheap in tests.
var testParams = verifier.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32}

func newTestHasher(t testing.TB) *verifier.Hasher {
	t.Helper()
	h, err := verifier.New([]byte("test-pepper"), testParams)
	if err != nil {
		t.Fatalf("verifier.New() error = %v", err)
	}
	return h
}

// fakeStore is an in-memory CredentialStore with failure injection.
type fakeStore struct {
	mu          sync.Mutex
	salts       map[string][]byte
	hashes      map[string][]byte
	saltErr     error
	hashErr     error
	saltLookups atomic.Int32
	hashLookups atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{salts: map[string][]byte{}, hashes: map[string][]byte{}}
}

func (s *fakeStore) put(h *verifier.Hasher, username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	salt := []byte(fmt.Sprintf("%-16s", username+"-salt"))[:16]
	s.salts[username] = salt
	s.hashes[username] = h.Derive([]byte(password), salt)
}

func (s *fakeStore) LookupSalt(_ context.Context, username string) ([]byte, error) {
	s.saltLookups.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saltErr != nil {
		return nil, s.saltErr
	}
	v, ok := s.salts[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *fakeStore) LookupHash(_ context.Context, username string) ([]byte, error) {
	s.hashLookups.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashErr != nil {
		return nil, s.hashErr
	}
	v, ok := s.hashes[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// fakeLoader counts loads and releases. gate, when set, blocks every load
// until it is closed.
type fakeLoader struct {
	mu         sync.Mutex
	loads      []domain.Scope
	releases   atomic.Int32
	loadErr    error
	releaseErr error
	gate       chan struct{}
	started    chan struct{}
}

func (l *fakeLoader) Load(_ context.Context, username string, scope domain.Scope) (*domain.Payload, error) {
	if l.started != nil {
		select {
		case l.started <- struct{}{}:
		default:
		}
	}
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, scope)
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	p := &domain.Payload{Scope: scope}
	if scope.Has(domain.ScopeMessages) {
		p.Messages = []domain.Message{{Key: username + "-1", Folder: "Inbox", Size: 42}}
	}
	if scope.Has(domain.ScopeFolders) {
		p.Folders = []domain.Folder{{Name: "Inbox", Messages: 1, Unseen: 1}}
	}
	if scope.Has(domain.ScopeContacts) {
		p.Contacts = []domain.Contact{{Name: "Ladar", Email: "ladar@lavabit.com"}}
	}
	return p, nil
}

func (l *fakeLoader) Release(context.Context, string) error {
	l.releases.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releaseErr
}

func (l *fakeLoader) setErrors(load, release error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadErr, l.releaseErr = load, release
}

func (l *fakeLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loads)
}

func (l *fakeLoader) loadedScopes() []domain.Scope {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Scope(nil), l.loads...)
}

// trackingLoader records which users are loaded and not yet released,
// like the maildir loader does.
type trackingLoader struct {
	mu     sync.Mutex
	active map[string]bool
}

func (l *trackingLoader) Load(_ context.Context, username string, scope domain.Scope) (*domain.Payload, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active == nil {
		l.active = make(map[string]bool)
	}
	l.active[username] = true
	return &domain.Payload{Scope: scope}, nil
}

func (l *trackingLoader) Release(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, username)
	return nil
}

func (l *trackingLoader) activeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fixture wires a full authenticator around fakes. The store knows
// "magma"/"test".
type fixture struct {
	hasher  *verifier.Hasher
	store   *fakeStore
	loader  *fakeLoader
	cache   *Cache
	builder *CredentialBuilder
	gate    *Gate
	auth    *Authenticator
}

func newFixture(t testing.TB, rl RateLimitConfig, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		hasher: newTestHasher(t),
		store:  newFakeStore(),
		loader: &fakeLoader{},
	}
	f.store.put(f.hasher, "magma", "test")

	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	f.cache = NewCache(f.loader, nil, opts...)
	f.builder = NewCredentialBuilder(f.store, f.hasher, nil)
	f.gate = NewGate(f.store, f.cache, opts...)
	f.auth = NewAuthenticator(f.builder, f.gate, f.cache, NewRateLimiterRegistry(rl), opts...)
	return f
}

func (f *fixture) authenticate(username, password string, p domain.Protocol, s domain.Scope) (*AuthResult, error) {
	return f.auth.Authenticate(context.Background(), &AuthenticateRequest{
		Username: []byte(username),
		Password: []byte(password),
		Protocol: p,
		Scope:    s,
	})
}

var errBackend = errors.New("backend down")
