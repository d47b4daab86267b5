package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"xaphub/cmd/cli"
)

var monitorInterval time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running hub",
	Long: `Query the status API of a running hub and print its state, the registered
local clients and the remote heartbeat senders it has heard. The hub must be
running with the status API enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := cli.NewStatusClient(statusAddr)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		snapshot, err := client.Fetch(ctx)
		if err != nil {
			return err
		}

		cmd.Print(cli.RenderSnapshot(snapshot))
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live view of a running hub",
	Long:  `Launch a terminal UI that polls the status API of a running hub.`,
	Args:  cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// the TUI owns the terminal; logs would corrupt it
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.StartMonitor(cli.NewStatusClient(statusAddr), monitorInterval)
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 2*time.Second, "refresh interval")
}
