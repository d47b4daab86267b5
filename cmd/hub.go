package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"xaphub/internal/cli"
	"xaphub/internal/hub"
)

const defaultConfigFile = "xaphub.yaml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hub configuration",
	Long:  `Generate, validate or edit hub configuration files.`,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a configuration file holding the default settings.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm := cli.NewConfigManager(configFileArg(args))
		if cm.Exists() {
			if err := cm.BackupConfig(); err != nil {
				return fmt.Errorf("failed to back up existing config: %w", err)
			}
			cmd.Printf("Existing configuration backed up to: %s.backup\n", cm.GetConfigPath())
		}

		if err := cm.SaveConfig(hub.NewDefaultConfig()); err != nil {
			return fmt.Errorf("failed to save default config: %w", err)
		}

		cmd.Printf("Default configuration saved to: %s\n", cm.GetConfigPath())
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate a hub configuration file for syntax and allowed values.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm := cli.NewConfigManager(configFileArg(args))
		if err := cm.ValidateConfig(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		config, err := cm.LoadConfig()
		if err != nil {
			return err
		}

		cmd.Printf("Configuration file is valid: %s\n", cm.GetConfigPath())
		cmd.Printf("Port: %d\n", config.Port)
		cmd.Printf("Heartbeat interval: %s\n", config.HeartbeatInterval)
		cmd.Printf("Topology: %s (resolves to %s)\n", config.Topology, config.TopologyValue().Resolve())
		if config.Status.Enabled {
			cmd.Printf("Status API: %s\n", config.Status.Listen)
		} else {
			cmd.Println("Status API: disabled")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration setting",
	Long: fmt.Sprintf(`Change one setting in the configuration file, creating the file if needed.

Keys: %v`, cli.SettableKeys()),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm := cli.NewConfigManager(configFileArg(nil))
		if err := cm.Set(args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("Set %s = %s in %s\n", args[0], args[1], cm.GetConfigPath())
		return nil
	},
}

// configFileArg picks the positional path, then --config, then the default file name
func configFileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if configPath != "" {
		return configPath
	}
	return defaultConfigFile
}

func init() {
	configCmd.AddCommand(configGenerateCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetCmd)
}
