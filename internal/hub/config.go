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

package hub

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"xaphub/internal/network"
	"xaphub/internal/xap"
)

// Config represents the hub configuration structure.
// Every field is optional; a missing file means the defaults.
type Config struct {
	Port              int           `yaml:"port"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	Topology          string        `yaml:"topology"`
	DefaultIP         string        `yaml:"default_ip,omitempty"`   // overrides interface discovery
	BroadcastIP       string        `yaml:"broadcast_ip,omitempty"` // overrides interface discovery
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	Status            StatusConfig  `yaml:"status"`
	Peers             PeersConfig   `yaml:"peers"`
}

// StatusConfig controls the local status API
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// PeersConfig controls the remote peer table
type PeersConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// NewDefaultConfig creates the configuration used when no file is given
func NewDefaultConfig() *Config {
	return &Config{
		Port:              xap.Port,
		HeartbeatInterval: HUB_INTERVAL_SECONDS * time.Second,
		Topology:          network.TopologyAuto.String(),
		ShutdownTimeout:   0,
		Status: StatusConfig{
			Enabled: false,
			Listen:  "127.0.0.1:3638",
		},
		Peers: PeersConfig{
			CacheSize: defaultPeerCacheSize,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := NewDefaultConfig()
	if filepath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.HeartbeatInterval < time.Second {
		return fmt.Errorf("heartbeat_interval must be at least 1s, got %s", c.HeartbeatInterval)
	}
	if c.HeartbeatInterval%time.Second != 0 {
		return fmt.Errorf("heartbeat_interval must be a whole number of seconds, got %s", c.HeartbeatInterval)
	}
	if _, err := network.ParseTopology(c.Topology); err != nil {
		return err
	}
	if c.DefaultIP != "" && net.ParseIP(c.DefaultIP).To4() == nil {
		return fmt.Errorf("default_ip is not an IPv4 address: %q", c.DefaultIP)
	}
	if c.BroadcastIP != "" && net.ParseIP(c.BroadcastIP).To4() == nil {
		return fmt.Errorf("broadcast_ip is not an IPv4 address: %q", c.BroadcastIP)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative")
	}
	if c.Status.Enabled {
		if _, _, err := net.SplitHostPort(c.Status.Listen); err != nil {
			return fmt.Errorf("status.listen is invalid: %w", err)
		}
	}
	if c.Peers.CacheSize < 0 {
		return fmt.Errorf("peers.cache_size must not be negative")
	}
	return nil
}

// TopologyValue returns the parsed topology setting
func (c *Config) TopologyValue() network.Topology {
	topology, _ := network.ParseTopology(c.Topology)
	return topology
}

// Save saves the configuration to a YAML file
func (c *Config) Save(filepath string) error {
	return SaveConfig(c, filepath)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filepath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
