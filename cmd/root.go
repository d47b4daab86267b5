package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"xaphub/internal/hub"
	"xaphub/internal/logger"
)

var (
	verbosity  int
	configPath string
	statusAddr string
)

var rootCmd = &cobra.Command{
	Use:   "xaphub",
	Short: "xAP hub - relays xAP broadcast traffic to local clients",
	Long: `xaphub is an xAP protocol hub. It owns UDP port 3639 on this host,
relays messages from local xAP applications onto the network and delivers
network traffic to every local application that has announced itself with
a heartbeat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetSilentMode(false)
		logger.SetVerbosity(verbosity)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("status-addr") {
			config.Status.Enabled = true
			config.Status.Listen = statusAddr
		}

		return runHub(cmd.Context(), config)
	},
}

// Execute runs the root command, printing any error to stderr before
// returning it
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log level: 0 errors only, 1 info, 2 debug, 3 trace")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&statusAddr, "status-addr", "127.0.0.1:3638", "status API address (enables the API when set)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monitorCmd)
}

func loadConfig() (*hub.Config, error) {
	config, err := hub.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, nil
}

// runHub starts the hub and serves until ctx is done or SIGINT or SIGTERM
// arrives, then runs the stop sequence
func runHub(ctx context.Context, config *hub.Config, options ...hub.Option) error {
	log := logger.New()

	h, err := hub.NewHub(config, options...)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := h.Start(ctx); err != nil {
		return err
	}

	log.Info().
		Str("hub_id", h.ID()).
		Int("port", config.Port).
		Msg("xAP hub running")

	if err := h.Run(ctx); err != nil {
		return err
	}
	return nil
}

// printError writes fatal hub errors verbatim and prefixes everything else
func printError(w io.Writer, err error) {
	if hub.IsFatal(err) {
		fmt.Fprintln(w, err)
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
