package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/eapsniffer/internal/app"
	"firestige.xyz/eapsniffer/internal/config"
	"firestige.xyz/eapsniffer/internal/core"
	logpkg "firestige.xyz/eapsniffer/internal/log"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a capture file through the sniffer",
	Long: `Replay a pcap or pcapng file through the full pipeline and print a summary.

Frames are read as if captured on the server connect point. Nothing is sent
on the wire unless --inject is given; forwarding decisions are only counted.

Examples:
  eapsniffer replay -c config.yml -r auth.pcap
  eapsniffer replay -c config.yml -r auth.pcapng --inject`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := logpkg.Init(cfg.Log); err != nil {
			return err
		}
		defer logpkg.Flush()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runReplay(ctx, cfg, replayFile, replayInject, cmd.OutOrStdout())
	},
}

var (
	replayFile   string
	replayInject bool
)

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "read", "r", "", "capture file to replay (required)")
	replayCmd.Flags().BoolVar(&replayInject, "inject", false, "use the configured injectors instead of dry-run")
	replayCmd.MarkFlagRequired("read")
}

// replayPorts rebinds cfg so that only the server port captures, from path.
func replayPorts(cfg *config.GlobalConfig, path string, inject bool) {
	server := cfg.Radius.ServerPoint()
	for i := range cfg.Dataplane.Ports {
		p := &cfg.Dataplane.Ports[i]
		if !inject {
			p.Inject = config.InjectConfig{Name: "dryrun", Options: map[string]any{"label": p.ConnectPoint}}
		}
		cp, err := core.ParseConnectPoint(p.ConnectPoint)
		if err == nil && cp == server {
			p.NoCapture = false
			p.Capture = config.CaptureConfig{Name: "pcapfile", Options: map[string]any{"path": path}}
			continue
		}
		p.NoCapture = true
	}
	cfg.Metrics.Enabled = false
}

func runReplay(ctx context.Context, cfg *config.GlobalConfig, path string, inject bool, out io.Writer) error {
	replayPorts(cfg, path, inject)

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	if err := a.Run(ctx); err != nil {
		return err
	}

	s := a.Summary()
	fmt.Fprintf(out, "frames captured:      %d\n", s.Captured)
	fmt.Fprintf(out, "frames dispatched:    %d\n", s.Dispatched)
	fmt.Fprintf(out, "frames forwarded:     %d\n", s.Emitted)
	fmt.Fprintf(out, "forwarding dropped:   %d\n", s.EmitDropped)
	fmt.Fprintf(out, "authorized:           %d\n", s.Authorized)
	fmt.Fprintf(out, "rejected:             %d\n", s.Rejected)
	fmt.Fprintf(out, "unknown authorized:   %d\n", s.UnknownAuthorized)
	fmt.Fprintf(out, "unknown rejected:     %d\n", s.UnknownRejected)
	fmt.Fprintf(out, "unanswered requests:  %d\n", s.Pending)
	return nil
}
