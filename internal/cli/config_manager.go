// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"xaphub/internal/hub"
)

// ErrUnknownKey is returned by Set for a key that is not a config setting
var ErrUnknownKey = errors.New("unknown config key")

// ConfigManager handles hub configuration file operations
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Exists reports whether the configuration file is present
func (cm *ConfigManager) Exists() bool {
	_, err := os.Stat(cm.configPath)
	return err == nil
}

// LoadConfig loads the hub configuration. A missing file yields the defaults.
func (cm *ConfigManager) LoadConfig() (*hub.Config, error) {
	if !cm.Exists() {
		return hub.NewDefaultConfig(), nil
	}

	config, err := hub.LoadConfig(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

// SaveConfig validates and saves the hub configuration
func (cm *ConfigManager) SaveConfig(config *hub.Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}
	if err := hub.SaveConfig(config, cm.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ValidateConfig validates the configuration file
func (cm *ConfigManager) ValidateConfig() error {
	if !cm.Exists() {
		return fmt.Errorf("config file does not exist: %s", cm.configPath)
	}
	_, err := cm.LoadConfig()
	return err
}

// Set changes a single setting by its YAML key and saves the file
func (cm *ConfigManager) Set(key, value string) error {
	config, err := cm.LoadConfig()
	if err != nil {
		return err
	}

	setter, ok := configSetters[key]
	if !ok {
		return fmt.Errorf("%w %q (known keys: %s)", ErrUnknownKey, key, strings.Join(SettableKeys(), ", "))
	}
	if err := setter(config, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	return cm.SaveConfig(config)
}

// SettableKeys lists the keys accepted by Set
func SettableKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for key := range configSetters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var configSetters = map[string]func(*hub.Config, string) error{
	"port": func(c *hub.Config, v string) error {
		port, err := strconv.Atoi(v)
		c.Port = port
		return err
	},
	"heartbeat_interval": func(c *hub.Config, v string) error {
		d, err := time.ParseDuration(v)
		c.HeartbeatInterval = d
		return err
	},
	"topology": func(c *hub.Config, v string) error {
		c.Topology = v
		return nil
	},
	"default_ip": func(c *hub.Config, v string) error {
		c.DefaultIP = v
		return nil
	},
	"broadcast_ip": func(c *hub.Config, v string) error {
		c.BroadcastIP = v
		return nil
	},
	"shutdown_timeout": func(c *hub.Config, v string) error {
		d, err := time.ParseDuration(v)
		c.ShutdownTimeout = d
		return err
	},
	"status.enabled": func(c *hub.Config, v string) error {
		enabled, err := strconv.ParseBool(v)
		c.Status.Enabled = enabled
		return err
	},
	"status.listen": func(c *hub.Config, v string) error {
		c.Status.Listen = v
		return nil
	},
	"peers.cache_size": func(c *hub.Config, v string) error {
		size, err := strconv.Atoi(v)
		c.Peers.CacheSize = size
		return err
	},
}

// GetConfigPath returns the configuration file path
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// BackupConfig creates a backup of the current configuration
func (cm *ConfigManager) BackupConfig() error {
	config, err := cm.LoadConfig()
	if err != nil {
		return err
	}

	backupPath := cm.configPath + ".backup"
	return hub.SaveConfig(config, backupPath)
}

// RestoreFromBackup restores configuration from backup
func (cm *ConfigManager) RestoreFromBackup() error {
	backupPath := cm.configPath + ".backup"

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}

	config, err := hub.LoadConfig(backupPath)
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}

	return cm.SaveConfig(config)
}
