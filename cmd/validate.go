package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/eapsniffer/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate the configuration file without starting the sniffer.

With --print the effective configuration, defaults included, is written as YAML.

Examples:
  eapsniffer validate -c /etc/eapsniffer/config.yml
  eapsniffer validate -c config.yml --print`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, validatePrint, cmd.OutOrStdout())
	},
}

var validatePrint bool

func init() {
	validateCmd.Flags().BoolVar(&validatePrint, "print", false,
		"print the effective configuration as YAML")
}

func runValidate(path string, printYAML bool, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return err
	}

	fmt.Fprintf(out, "VALID: auth port %d, server %s, authenticator %s, %d port(s), %d reporter(s)\n",
		cfg.Radius.AuthPort,
		cfg.Radius.ServerConnectPoint,
		cfg.Radius.AuthenticatorConnectPoint,
		len(cfg.Dataplane.Ports),
		len(cfg.Events.Reporters),
	)

	if printYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]*config.GlobalConfig{"eapsniffer": cfg}); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return enc.Close()
	}
	return nil
}
