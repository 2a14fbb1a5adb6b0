// Package cmap provides a string-keyed sharded map.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash, each shard guarded by its own RWMutex. The map only ever holds a
// shard lock for the duration of a single call, so values that need their
// own synchronization (for example per-user cache entries) can be locked
// by the caller after lookup without blocking unrelated keys.
//
// Usage:
//
//	m := cmap.New[*entry]()
//	e, created := m.GetOrCreate("magma", newEntry)
//	m.DeleteIf("magma", func(v *entry) bool { return v == e })
package cmap
