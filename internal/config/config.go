// Package config loads graphdb's on-disk configuration: a YAML file
// describing the storage backend, cache sizing, and logging, with flag
// overrides layered on top by cmd/graphdb.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/graphdb/internal/gdlog"
	"github.com/cuemby/graphdb/pkg/graphdb"
)

// CacheConfig mirrors graphdb.CacheConfig with yaml tags for on-disk
// configuration files.
type CacheConfig struct {
	MaxEntries int           `yaml:"maxEntries,omitempty"`
	TTL        time.Duration `yaml:"ttl,omitempty"`
}

func (c CacheConfig) toEngine() graphdb.CacheConfig {
	return graphdb.CacheConfig{MaxEntries: c.MaxEntries, TTL: c.TTL}
}

// Config is the root of a graphdb.yaml file.
type Config struct {
	Backend string `yaml:"backend"` // "memory" or "bolt"
	DataDir string `yaml:"dataDir"`

	NodeCache      CacheConfig `yaml:"nodeCache"`
	AdjacencyCache CacheConfig `yaml:"adjacencyCache"`
	QueryCache     CacheConfig `yaml:"queryCache"`
	IndexCache     CacheConfig `yaml:"indexCache"`

	TxnTimeout   time.Duration `yaml:"txnTimeout"`
	MaxSnapshots int           `yaml:"maxSnapshots"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures internal/gdlog.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration a bare `graphdb open` uses, mirroring
// graphdb.DefaultConfig but expressed as the YAML-facing shape.
func Default() Config {
	d := graphdb.DefaultConfig()
	return Config{
		Backend:        string(d.Backend),
		NodeCache:      CacheConfig{MaxEntries: d.NodeCache.MaxEntries},
		AdjacencyCache: CacheConfig{MaxEntries: d.AdjacencyCache.MaxEntries},
		QueryCache:     CacheConfig{MaxEntries: d.QueryCache.MaxEntries, TTL: d.QueryCache.TTL},
		IndexCache:     CacheConfig{MaxEntries: d.IndexCache.MaxEntries},
		TxnTimeout:     d.DefaultTxnTimeout,
		MaxSnapshots:   d.MaxSnapshots,
		Log:            LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file. A missing file is not an error;
// Load returns Default() in that case so `graphdb open` works with zero
// setup.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Engine converts a Config into the graphdb.Config NewDatabase expects.
func (c Config) Engine() graphdb.Config {
	backend := graphdb.BackendMemory
	if c.Backend == string(graphdb.BackendBolt) {
		backend = graphdb.BackendBolt
	}
	eng := graphdb.Config{
		Backend:           backend,
		DataDir:           c.DataDir,
		NodeCache:         c.NodeCache.toEngine(),
		AdjacencyCache:    c.AdjacencyCache.toEngine(),
		QueryCache:        c.QueryCache.toEngine(),
		IndexCache:        c.IndexCache.toEngine(),
		DefaultTxnTimeout: c.TxnTimeout,
		MaxSnapshots:      c.MaxSnapshots,
	}
	if eng.DefaultTxnTimeout == 0 {
		eng.DefaultTxnTimeout = graphdb.DefaultConfig().DefaultTxnTimeout
	}
	if eng.MaxSnapshots == 0 {
		eng.MaxSnapshots = graphdb.DefaultConfig().MaxSnapshots
	}
	return eng
}

// InitLogging wires this Config's Log section into internal/gdlog.
func (c Config) InitLogging() {
	gdlog.Init(gdlog.Config{Level: gdlog.Level(c.Log.Level), JSONOutput: c.Log.JSON})
}
