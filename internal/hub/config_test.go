package hub_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xaphub/internal/hub"
	"xaphub/internal/network"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := hub.NewDefaultConfig()

	assert.Equal(t, 3639, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, network.TopologyAuto, cfg.TopologyValue())
	assert.False(t, cfg.Status.Enabled)
	assert.Zero(t, cfg.ShutdownTimeout, "the stop sequence has no hub-level limit by default")
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := hub.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, hub.NewDefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "xaphub.yaml")
		content := `
heartbeat_interval: 30s
topology: single
default_ip: 192.168.1.20
status:
  enabled: true
  listen: 127.0.0.1:9000
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := hub.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 3639, cfg.Port)
		assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
		assert.Equal(t, network.TopologySingle, cfg.TopologyValue())
		assert.Equal(t, "192.168.1.20", cfg.DefaultIP)
		assert.True(t, cfg.Status.Enabled)
		assert.Equal(t, "127.0.0.1:9000", cfg.Status.Listen)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := hub.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: ["), 0644))

		_, err := hub.LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("topology: mesh\n"), 0644))

		_, err := hub.LoadConfig(path)
		assert.ErrorContains(t, err, "config validation failed")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*hub.Config)
		errMsg string
	}{
		{"port too large", func(c *hub.Config) { c.Port = 70000 }, "port must be between"},
		{"interval too short", func(c *hub.Config) { c.HeartbeatInterval = 500 * time.Millisecond }, "at least 1s"},
		{"fractional interval", func(c *hub.Config) { c.HeartbeatInterval = 1500 * time.Millisecond }, "whole number of seconds"},
		{"unknown topology", func(c *hub.Config) { c.Topology = "ring" }, "unknown topology"},
		{"ipv6 default address", func(c *hub.Config) { c.DefaultIP = "fe80::1" }, "default_ip"},
		{"bad broadcast address", func(c *hub.Config) { c.BroadcastIP = "nope" }, "broadcast_ip"},
		{"bad status listen", func(c *hub.Config) { c.Status.Enabled = true; c.Status.Listen = "localhost" }, "status.listen"},
		{"negative cache size", func(c *hub.Config) { c.Peers.CacheSize = -1 }, "cache_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := hub.NewDefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := hub.NewDefaultConfig()
	cfg.Topology = "multi"
	cfg.HeartbeatInterval = 15 * time.Second

	require.NoError(t, cfg.Save(path))

	loaded, err := hub.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
