package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload configuration",
	Long: `Ask the running daemon to re-read its configuration file (SIGHUP).

Log settings and app.some_property are applied immediately; other changes
are reported by the daemon and take effect on restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, err := newController()
		if err != nil {
			return err
		}
		return runReload(cmd.Context(), ctl, cmd.OutOrStdout())
	},
}

func runReload(ctx context.Context, ctl Controller, out io.Writer) error {
	if err := ctl.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	fmt.Fprintln(out, "✓ Configuration reload requested")
	return nil
}
