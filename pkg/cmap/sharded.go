package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the shard count used by New.
const DefaultShardCount = 32

// Map is a concurrent-safe sharded map keyed by string.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint32
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Option configures a Map.
type Option func(*options)

type options struct {
	shardCount int
}

// WithShardCount sets the number of shards. Values that are not a power of
// two fall back to DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) { o.shardCount = n }
}

// New creates a sharded map.
func New[V any](opts ...Option) *Map[V] {
	o := options{shardCount: DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	if o.shardCount <= 0 || o.shardCount&(o.shardCount-1) != 0 {
		o.shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*shard[V], o.shardCount),
		shardMask: uint32(o.shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	h := murmur3.Sum32([]byte(key))
	return m.shards[h&m.shardMask]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// GetOrCreate returns the value stored under key. When the key is absent,
// create is called with the shard write lock held and its result stored.
// The second return value reports whether create ran.
//
// create must not call back into the map.
func (m *Map[V]) GetOrCreate(key string, create func() V) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v, false
	}
	v := create()
	s.items[key] = v
	return v, true
}

// DeleteIf removes key when pred reports true for its current value.
func (m *Map[V]) DeleteIf(key string, pred func(V) bool) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok || !pred(v) {
		return false
	}
	delete(s.items, key)
	return true
}

// Len returns the total number of items.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
