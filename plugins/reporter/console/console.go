// Package console implements the console event reporter.
// Prints authentication events to stdout, one per line.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/report"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const pluginName = "console"

func init() {
	plugin.RegisterReporter(pluginName, NewConsoleReporter)
}

// ConsoleReporter writes events to an output stream.
type ConsoleReporter struct {
	name   string
	config Config

	mu            sync.Mutex
	out           io.Writer
	reportedCount atomic.Uint64
}

// Config represents console reporter configuration.
type Config struct {
	Format string `mapstructure:"format"` // "json" or "text", default "text"
}

// NewConsoleReporter creates a new console reporter.
func NewConsoleReporter() plugin.Reporter {
	return &ConsoleReporter{
		name:   pluginName,
		config: Config{Format: "text"},
		out:    os.Stdout,
	}
}

// Name returns the plugin name.
func (r *ConsoleReporter) Name() string {
	return r.name
}

// Init initializes the reporter with configuration.
func (r *ConsoleReporter) Init(config map[string]any) error {
	if config == nil {
		return nil
	}
	if err := mapstructure.Decode(config, &r.config); err != nil {
		return fmt.Errorf("console reporter: %w", err)
	}
	if r.config.Format == "" {
		r.config.Format = "text"
	}
	if r.config.Format != "json" && r.config.Format != "text" {
		return fmt.Errorf("invalid format %q, must be json or text", r.config.Format)
	}
	return nil
}

// Start starts the reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	slog.Info("console reporter started", "format", r.config.Format)
	return nil
}

// Stop stops the reporter.
func (r *ConsoleReporter) Stop(ctx context.Context) error {
	slog.Info("console reporter stopped", "total_reported", r.reportedCount.Load())
	return nil
}

// Report writes one event.
func (r *ConsoleReporter) Report(ctx context.Context, ev core.AuthEvent) error {
	rec := report.NewRecord(ev)

	var line []byte
	if r.config.Format == "json" {
		data, err := rec.JSON()
		if err != nil {
			return fmt.Errorf("json marshal failed: %w", err)
		}
		line = append(data, '\n')
	} else {
		line = []byte(formatText(rec))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.out.Write(line); err != nil {
		return err
	}
	r.reportedCount.Add(1)
	return nil
}

func formatText(rec report.Record) string {
	who := "unknown user"
	if rec.Known {
		who = fmt.Sprintf("user '%s' (%s)", rec.User, rec.MAC)
	}
	verdict := "rejected"
	if rec.Accepted {
		verdict = "authorized"
	}
	return fmt.Sprintf("[%s] %s has been %s id=%d client=%s server=%s\n",
		rec.Time().Format("15:04:05.000"), who, verdict, rec.Identifier, rec.Client, rec.Server)
}

// Flush is a no-op for console reporter (stdout is unbuffered).
func (r *ConsoleReporter) Flush(ctx context.Context) error {
	return nil
}
