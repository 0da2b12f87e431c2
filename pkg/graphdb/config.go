package graphdb

import "time"

// Backend selects which storage.Engine a Database opens (spec §4.1).
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendBolt   Backend = "bolt"
)

// CacheConfig sizes and ages one of the four spec §4.5 keyspaces.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// Config assembles everything NewDatabase needs to open a Database. Zero
// values fall back to the defaults DefaultConfig returns.
type Config struct {
	Backend Backend
	DataDir string // only consulted when Backend == BackendBolt

	NodeCache      CacheConfig
	AdjacencyCache CacheConfig
	QueryCache     CacheConfig
	IndexCache     CacheConfig

	DefaultTxnTimeout time.Duration
	MaxSnapshots      int
}

// DefaultConfig returns the configuration a bare `open` uses: in-memory
// backend, generously sized caches with no TTL eviction, a 30s advisory
// transaction timeout, and the last 16 snapshots retained.
func DefaultConfig() Config {
	return Config{
		Backend:           BackendMemory,
		NodeCache:         CacheConfig{MaxEntries: 10000},
		AdjacencyCache:    CacheConfig{MaxEntries: 10000},
		QueryCache:        CacheConfig{MaxEntries: 1000, TTL: 5 * time.Minute},
		IndexCache:        CacheConfig{MaxEntries: 5000},
		DefaultTxnTimeout: 30 * time.Second,
		MaxSnapshots:      16,
	}
}
