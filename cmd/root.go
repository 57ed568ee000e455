// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	// Built-in capture, inject and reporter plugins.
	_ "firestige.xyz/eapsniffer/plugins"
)

var (
	// Global flags
	configFile string
	pidFile    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eapsniffer",
	Short: "EAP sniffer - RADIUS authentication observer",
	Long: `eapsniffer observes RADIUS authentication traffic between an 802.1X
authenticator and its authentication server.

It captures Access-Request frames, remembers who asked (User-Name and
Calling-Station-Id), matches the server's Access-Accept or Access-Reject and
reports the outcome. Every RADIUS frame is forwarded, unmodified, towards its
destination connect point.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/eapsniffer/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path (default: control.pid_file from config)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(replayCmd)
}
