package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNodeConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yml")
	content := `
config:
  listen_addr: /ip4/127.0.0.1/tcp/4001
  bootstrap_peers:
    - /ip4/10.0.0.2/tcp/4001/p2p/12D3KooWQYhTNQdmr3ArTeUHRYzFg94BKyTkoWBDWez9kSCVe2Xo
  mdns: true
  metrics_addr: ":9700"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/ip4/127.0.0.1/tcp/4001", cfg.ListenAddr)
	assert.Len(t, cfg.BootstrapPeers, 1)
	assert.True(t, cfg.EnableMdns)
	assert.Equal(t, ":9700", cfg.MetricsAddr)
}

func TestLoadNodeConfigDefaults(t *testing.T) {
	cfg, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.True(t, cfg.EnableMdns)
	assert.Empty(t, cfg.BootstrapPeers)
}

func TestLoadNodeConfigFillsEmptyFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yml")
	require.NoError(t, os.WriteFile(path, []byte("config:\n  mdns: false\n"), 0644))

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.False(t, cfg.EnableMdns)
}

func TestLoadPowConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pow.ini")
	content := "[pow]\nmax_attempts = 500000\nprogress_every = 10000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadPowConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(500000), cfg.MaxAttempts)
	assert.Equal(t, uint64(10000), cfg.ProgressEvery)
}

func TestLoadPowConfigMissingFile(t *testing.T) {
	cfg, err := LoadPowConfig(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.MaxAttempts)
	assert.Equal(t, uint64(0), cfg.ProgressEvery)
}
