package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphdb/pkg/graphdb"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphdb.yaml")
	body := `
backend: bolt
dataDir: /var/lib/graphdb
txnTimeout: 45s
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Backend)
	assert.Equal(t, "/var/lib/graphdb", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestEngineFillsZeroValueDefaults(t *testing.T) {
	cfg := Config{Backend: "memory"}
	eng := cfg.Engine()
	assert.Equal(t, graphdb.BackendMemory, eng.Backend)
	assert.Equal(t, graphdb.DefaultConfig().DefaultTxnTimeout, eng.DefaultTxnTimeout)
	assert.Equal(t, graphdb.DefaultConfig().MaxSnapshots, eng.MaxSnapshots)
}
