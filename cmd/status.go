package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/eapsniffer/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, err := newController()
		if err != nil {
			return err
		}
		return runStatus(cmd.Context(), ctl, cmd.OutOrStdout())
	},
}

func runStatus(ctx context.Context, ctl Controller, out io.Writer) error {
	pid, err := ctl.Status(ctx)
	if errors.Is(err, daemon.ErrNotRunning) {
		fmt.Fprintln(out, "not running")
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to query status: %w", err)
	}
	fmt.Fprintf(out, "running (pid %d)\n", pid)
	return nil
}
