package cmap

// Keys returns all keys.
//
// Shards are visited one at a time under their read lock, so the result
// is not a consistent snapshot: keys added or removed concurrently may or
// may not appear.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, m.Len())
	for _, s := range m.shards {
		s.mu.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.mu.RUnlock()
	}
	return keys
}
