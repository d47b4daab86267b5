package cli_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xaphub/internal/cli"
	"xaphub/internal/hub"
)

func setupTestConfigManager(t *testing.T) *cli.ConfigManager {
	t.Helper()
	return cli.NewConfigManager(filepath.Join(t.TempDir(), "xaphub.yaml"))
}

func TestConfigManagerLoad(t *testing.T) {
	cm := setupTestConfigManager(t)

	assert.False(t, cm.Exists())
	config, err := cm.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, hub.NewDefaultConfig(), config)
	assert.False(t, cm.Exists(), "loading must not create the file")
}

func TestConfigManagerSet(t *testing.T) {
	t.Run("sets and persists values", func(t *testing.T) {
		cm := setupTestConfigManager(t)

		require.NoError(t, cm.Set("topology", "single"))
		require.NoError(t, cm.Set("heartbeat_interval", "30s"))
		require.NoError(t, cm.Set("status.enabled", "true"))
		require.NoError(t, cm.Set("peers.cache_size", "64"))

		config, err := hub.LoadConfig(cm.GetConfigPath())
		require.NoError(t, err)
		assert.Equal(t, "single", config.Topology)
		assert.Equal(t, 30*time.Second, config.HeartbeatInterval)
		assert.True(t, config.Status.Enabled)
		assert.Equal(t, 64, config.Peers.CacheSize)
	})

	t.Run("unknown key", func(t *testing.T) {
		cm := setupTestConfigManager(t)
		err := cm.Set("gateway", "tcp://x")
		assert.ErrorIs(t, err, cli.ErrUnknownKey)
		assert.False(t, cm.Exists())
	})

	t.Run("unparseable value", func(t *testing.T) {
		cm := setupTestConfigManager(t)
		assert.ErrorContains(t, cm.Set("port", "abc"), "invalid value for port")
	})

	t.Run("value that fails validation is not saved", func(t *testing.T) {
		cm := setupTestConfigManager(t)
		require.NoError(t, cm.Set("port", "3700"))

		assert.Error(t, cm.Set("topology", "ring"))

		config, err := cm.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 3700, config.Port)
		assert.Equal(t, "auto", config.Topology)
	})
}

func TestConfigManagerValidate(t *testing.T) {
	cm := setupTestConfigManager(t)
	assert.ErrorContains(t, cm.ValidateConfig(), "does not exist")

	require.NoError(t, cm.SaveConfig(hub.NewDefaultConfig()))
	assert.NoError(t, cm.ValidateConfig())

	require.NoError(t, os.WriteFile(cm.GetConfigPath(), []byte("port: -5\n"), 0644))
	assert.Error(t, cm.ValidateConfig())
}

func TestConfigManagerBackup(t *testing.T) {
	cm := setupTestConfigManager(t)
	require.NoError(t, cm.Set("port", "3700"))
	require.NoError(t, cm.BackupConfig())

	require.NoError(t, cm.Set("port", "3800"))
	require.NoError(t, cm.RestoreFromBackup())

	config, err := cm.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3700, config.Port)
	assert.Contains(t, cli.SettableKeys(), "status.listen")
}
