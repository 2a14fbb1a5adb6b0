package storage

import "context"

// KVEngine is the embedded key-value engine used by KVCredentialStore.
//
// Implementations must be safe for concurrent use and durable across
// restarts unless configured in-memory.
type KVEngine interface {
	// Get retrieves a value by key. Returns ErrKeyNotFound if absent.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key []byte) error

	// Scan calls fn for every key with prefix until fn returns false.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// GC reclaims space. It returns the number of GC passes that rewrote data.
	GC(ctx context.Context) (int, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close releases the engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size.
	LSMSize uint64

	// ValueLogSize is the value log size.
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCRuns is the number of GC passes that rewrote a value log file.
	GCRuns uint64
}

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string `koanf:"dir" json:"dir" yaml:"dir"`

	// InMemory keeps all data in memory.
	InMemory bool `koanf:"in_memory" json:"in_memory" yaml:"in_memory"`

	// Badger-specific configuration.
	Badger BadgerConfig `koanf:"badger" json:"badger" yaml:"badger"`
}

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs. Default: 10m.
	GCInterval string `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`

	// GCThreshold is the discard ratio that triggers a value log rewrite.
	// Default: 0.5.
	GCThreshold float64 `koanf:"gc_threshold" json:"gc_threshold" yaml:"gc_threshold"`

	// CacheSize is the block cache size in bytes. Default: 16MB.
	CacheSize int64 `koanf:"cache_size" json:"cache_size" yaml:"cache_size"`

	// ValueLogFileSize is the max value log file size in bytes. Default: 64MB.
	ValueLogFileSize int64 `koanf:"value_log_file_size" json:"value_log_file_size" yaml:"value_log_file_size"`

	// SyncWrites fsyncs after each write. Default: true, credentials are
	// written rarely.
	SyncWrites bool `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        16 << 20,
		ValueLogFileSize: 64 << 20,
		SyncWrites:       true,
	}
}
