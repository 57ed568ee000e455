// Package daemon implements the daemon lifecycle manager.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/eapsniffer/internal/app"
	"firestige.xyz/eapsniffer/internal/config"
	logpkg "firestige.xyz/eapsniffer/internal/log"
	"firestige.xyz/eapsniffer/internal/metrics"
)

const stopTimeout = 10 * time.Second

// Daemon manages the eapsniffer process lifecycle.
type Daemon struct {
	config     *config.GlobalConfig
	configPath string
	pidFile    string

	app           *app.App
	metricsServer *metrics.Server // nil if metrics disabled

	ctx          context.Context
	cancel       context.CancelFunc
	appDone      chan error
	appErr       error
	shutdownChan chan struct{}
	sigChan      chan os.Signal
	stopOnce     sync.Once
}

// New creates a new Daemon instance. pidFile overrides control.pid_file when set.
func New(configPath, pidFile string) (*Daemon, error) {
	globalConfig, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if pidFile == "" {
		pidFile = globalConfig.Control.PIDFile
	}

	d := &Daemon{
		config:       globalConfig,
		configPath:   configPath,
		pidFile:      pidFile,
		appDone:      make(chan error, 1),
		shutdownChan: make(chan struct{}, 1),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start() error {
	if err := d.initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	slog.Info("starting eapsniffer daemon",
		"app", d.config.App.Name,
		"config", d.configPath,
		"auth_port", d.config.Radius.AuthPort,
		"server", d.config.Radius.ServerConnectPoint,
		"authenticator", d.config.Radius.AuthenticatorConnectPoint,
	)

	if err := writePIDFile(d.pidFile); err != nil {
		return err
	}

	if err := d.startMetrics(); err != nil {
		removePIDFile(d.pidFile)
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	a, err := app.New(d.config)
	if err != nil {
		d.stopMetrics()
		removePIDFile(d.pidFile)
		return fmt.Errorf("failed to build sniffer: %w", err)
	}
	d.app = a

	go func() {
		d.appDone <- d.app.Run(d.ctx)
	}()

	slog.Info("daemon started successfully")
	return nil
}

// Stop performs graceful shutdown of all daemon components. It is safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		slog.Info("initiating graceful shutdown")

		// 1. Stop capture; the app drains queued frames and events before returning.
		d.cancel()
		if d.app != nil {
			select {
			case err := <-d.appDone:
				d.appErr = err
			case <-time.After(stopTimeout):
				slog.Error("sniffer did not stop in time", "timeout", stopTimeout)
			}
		}

		// 2. Stop metrics server
		d.stopMetrics()

		// 3. Unregister signal handler to prevent goroutine leak
		if d.sigChan != nil {
			signal.Stop(d.sigChan)
		}

		// 4. Remove PID file
		if err := removePIDFile(d.pidFile); err != nil {
			slog.Error("error removing PID file", "error", err)
		}

		slog.Info("daemon stopped gracefully")
		logpkg.Flush()
	})
}

// Run blocks until shutdown is triggered by SIGTERM/SIGINT, TriggerShutdown,
// or the capture sources being exhausted. SIGHUP reloads the configuration.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	slog.Info("daemon running, waiting for signals")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("received shutdown signal", "signal", sig)
				d.Stop()
				return d.appErr

			case syscall.SIGHUP:
				slog.Info("received reload signal")
				if err := d.Reload(); err != nil {
					slog.Error("failed to reload config", "error", err)
				}
			}

		case <-d.shutdownChan:
			slog.Info("shutdown triggered")
			d.Stop()
			return d.appErr

		case err := <-d.appDone:
			// Capture ended on its own (file exhausted or fatal capture error).
			d.appErr = err
			d.app = nil
			if err != nil {
				slog.Error("sniffer stopped", "error", err)
			} else {
				slog.Info("capture sources exhausted")
			}
			d.Stop()
			return err
		}
	}
}

// Reload re-reads the configuration file.
// Hot-reloadable: log level/format/file, app.some_property.
// Everything else requires a restart and is only reported.
func (d *Daemon) Reload() error {
	slog.Info("reloading configuration", "path", d.configPath)

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	old := d.config
	d.config = newConfig

	hotReloaded := []string{}
	if err := d.initLogging(); err != nil {
		slog.Error("failed to reinitialize logging", "error", err)
	} else if newConfig.Log != old.Log {
		hotReloaded = append(hotReloaded, "log")
	}

	if d.app != nil {
		d.app.Reconfigure(newConfig)
		if newConfig.App.SomeProperty != old.App.SomeProperty {
			hotReloaded = append(hotReloaded, "app.some_property")
		}
	}

	slog.Info("configuration reloaded",
		"hot_reloaded", hotReloaded,
		"requires_restart", requiresRestart(old, newConfig),
	)
	return nil
}

// requiresRestart lists the changed sections that only take effect on restart.
func requiresRestart(old, cur *config.GlobalConfig) []string {
	changed := []string{}
	if old.App.Name != cur.App.Name {
		changed = append(changed, "app.name")
	}
	if old.Radius != cur.Radius {
		changed = append(changed, "radius")
	}
	if old.Correlation != cur.Correlation {
		changed = append(changed, "correlation")
	}
	if !samePorts(old.Dataplane.Ports, cur.Dataplane.Ports) ||
		old.Dataplane.ProcessorPriority != cur.Dataplane.ProcessorPriority ||
		old.Dataplane.InterceptPriority != cur.Dataplane.InterceptPriority {
		changed = append(changed, "dataplane")
	}
	if len(old.Events.Reporters) != len(cur.Events.Reporters) {
		changed = append(changed, "events.reporters")
	}
	if old.Metrics != cur.Metrics {
		changed = append(changed, "metrics")
	}
	return changed
}

func samePorts(a, b []config.PortConfig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ConnectPoint != b[i].ConnectPoint || a[i].Interface != b[i].Interface ||
			a[i].NoCapture != b[i].NoCapture || a[i].Inject.Name != b[i].Inject.Name {
			return false
		}
	}
	return true
}

// TriggerShutdown triggers graceful shutdown from an external caller.
func (d *Daemon) TriggerShutdown() {
	select {
	case d.shutdownChan <- struct{}{}:
	default:
	}
}

// App returns the running sniffer, nil before Start.
func (d *Daemon) App() *app.App { return d.app }

// initLogging initializes the logging system from config.
func (d *Daemon) initLogging() error {
	if err := logpkg.Init(d.config.Log); err != nil {
		return err
	}
	slog.Debug("logging initialized",
		"level", d.config.Log.Level,
		"format", d.config.Log.Format,
	)
	return nil
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		d.metricsServer = nil
		return err
	}

	slog.Info("metrics server started",
		"addr", d.metricsServer.Addr(),
		"path", d.config.Metrics.Path,
	)
	return nil
}

func (d *Daemon) stopMetrics() {
	if d.metricsServer == nil {
		return
	}
	slog.Info("stopping metrics server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.metricsServer.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("error stopping metrics server", "error", err)
	}
	d.metricsServer = nil
}
