package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Long: `Stop the eapsniffer daemon gracefully.

This command sends SIGTERM to the process recorded in the PID file and waits
for it to exit. The daemon drains queued frames and events before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, err := newController()
		if err != nil {
			return err
		}
		return runStop(cmd.Context(), ctl, cmd.OutOrStdout())
	},
}

func runStop(ctx context.Context, ctl Controller, out io.Writer) error {
	if err := ctl.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	fmt.Fprintln(out, "✓ Daemon stopped")
	return nil
}
