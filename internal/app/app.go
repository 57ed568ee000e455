// Package app assembles the sniffer from configuration.
//
// The object graph is built once by New:
//
//	capturers → dataplane.Service → sniffer.Processor → outcome.Resolver → report.Dispatcher → reporters
//	                    ↑                   ↓
//	               injectors  ←───────  forward.Router
//
// Run activates the sniffer and blocks until the capture sources stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"firestige.xyz/eapsniffer/internal/config"
	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/correlate"
	"firestige.xyz/eapsniffer/internal/dataplane"
	"firestige.xyz/eapsniffer/internal/forward"
	"firestige.xyz/eapsniffer/internal/outcome"
	"firestige.xyz/eapsniffer/internal/packet"
	"firestige.xyz/eapsniffer/internal/radius"
	"firestige.xyz/eapsniffer/internal/report"
	"firestige.xyz/eapsniffer/internal/sniffer"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const shutdownTimeout = 5 * time.Second

// App is a fully wired sniffer instance.
type App struct {
	cfg *config.GlobalConfig

	store     *correlate.Store
	resolver  *outcome.Resolver
	events    *report.Dispatcher
	dataplane *dataplane.Service
	manager   *sniffer.Manager

	counts        outcomeCounts
	pendingAtStop atomic.Int64
}

// Summary is a snapshot of what an App has processed.
type Summary struct {
	Captured          uint64
	Dispatched        uint64
	Emitted           uint64
	EmitDropped       uint64
	Authorized        uint64
	Rejected          uint64
	UnknownAuthorized uint64
	UnknownRejected   uint64
	Pending           int
}

type outcomeCounts struct {
	authorized        atomic.Uint64
	rejected          atomic.Uint64
	unknownAuthorized atomic.Uint64
	unknownRejected   atomic.Uint64
}

func (c *outcomeCounts) add(r core.AuthResult) {
	switch r {
	case core.ResultAuthorized:
		c.authorized.Add(1)
	case core.ResultRejected:
		c.rejected.Add(1)
	case core.ResultUnknownAuthorized:
		c.unknownAuthorized.Add(1)
	case core.ResultUnknownRejected:
		c.unknownRejected.Add(1)
	}
}

// New builds every component described by cfg. cfg must have been validated.
// Plugins are resolved through the registries in pkg/plugin.
func New(cfg *config.GlobalConfig) (*App, error) {
	reporters, err := buildReporters(cfg.Events.Reporters)
	if err != nil {
		return nil, err
	}

	ports, err := buildPorts(cfg)
	if err != nil {
		return nil, err
	}

	dp, err := dataplane.New(ports, dataplane.Options{
		EmitQueueSize: cfg.Dataplane.EmitQueueSize,
		BufferSize:    cfg.Dataplane.QueueSize,
		EchoWindow:    cfg.Dataplane.EchoWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("build dataplane: %w", err)
	}

	router, err := forward.NewRouter(uint16(cfg.Radius.AuthPort),
		cfg.Radius.ServerPoint(), cfg.Radius.AuthenticatorPoint())
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	intercept, err := packet.ParseInterceptPriority(cfg.Dataplane.InterceptPriority)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, dataplane: dp}
	a.events = report.NewDispatcher(report.Config{
		Reporters:    reporters,
		QueueSize:    cfg.Events.QueueSize,
		BatchSize:    cfg.Events.BatchSize,
		BatchTimeout: cfg.Events.BatchTimeout,
	})
	a.store = correlate.NewStore(cfg.Correlation.TTL, cfg.Correlation.CleanupInterval)
	a.resolver = outcome.NewResolver(a.store, outcome.WithPublisher(outcome.PublisherFunc(func(ev core.AuthEvent) {
		a.counts.add(ev.Result)
		a.events.Publish(ev)
	})))

	proc := sniffer.NewProcessor(radius.NewClassifier(uint16(cfg.Radius.AuthPort)), a.resolver, router, dp)
	a.manager = sniffer.NewManager(dp, proc, a.store.Flush, sniffer.Options{
		AppID:        cfg.App.Name,
		Priority:     packet.Director(cfg.Dataplane.ProcessorPriority),
		Intercept:    intercept,
		SomeProperty: cfg.App.SomeProperty,
	})
	return a, nil
}

// Run starts the reporters, activates the sniffer and runs the dataplane
// until ctx is cancelled or every capture source is exhausted. Pending
// events are flushed to the reporters before Run returns.
func (a *App) Run(ctx context.Context) error {
	// Reporters outlive ctx so that the final batch is still delivered.
	if err := a.events.Start(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("some reporters failed to start", "error", err)
	}

	if err := a.manager.Activate(); err != nil {
		a.closeEvents()
		return fmt.Errorf("activate sniffer: %w", err)
	}

	runErr := a.dataplane.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	a.pendingAtStop.Store(int64(a.store.Len()))
	if err := a.manager.Deactivate(); err != nil {
		slog.Warn("deactivate sniffer", "error", err)
	}
	a.closeEvents()
	return runErr
}

func (a *App) closeEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.events.Close(ctx); err != nil {
		slog.Warn("closing reporters", "error", err)
	}
}

// Reconfigure applies the hot-reloadable properties of cfg.
func (a *App) Reconfigure(cfg *config.GlobalConfig) {
	a.manager.Modified(map[string]string{
		sniffer.PropSomeProperty: cfg.App.SomeProperty,
	})
}

// Summary returns current counters. Pending reports the entries that were
// still unanswered when the sniffer was last deactivated.
func (a *App) Summary() Summary {
	s := Summary{
		Dispatched:        a.dataplane.Stats().Dispatched.Load(),
		Emitted:           a.dataplane.Stats().Emitted.Load(),
		EmitDropped:       a.dataplane.Stats().EmitDropped.Load(),
		Authorized:        a.counts.authorized.Load(),
		Rejected:          a.counts.rejected.Load(),
		UnknownAuthorized: a.counts.unknownAuthorized.Load(),
		UnknownRejected:   a.counts.unknownRejected.Load(),
		Pending:           int(a.pendingAtStop.Load()),
	}
	if a.manager.Active() {
		s.Pending = a.store.Len()
	}
	for _, p := range a.dataplane.Pipelines() {
		s.Captured += p.Stats().Received
	}
	return s
}

// Manager exposes the component lifecycle.
func (a *App) Manager() *sniffer.Manager { return a.manager }

func buildReporters(cfgs []config.ReporterConfig) ([]plugin.Reporter, error) {
	reporters := make([]plugin.Reporter, 0, len(cfgs))
	for i, rc := range cfgs {
		factory, err := plugin.GetReporterFactory(rc.Type)
		if err != nil {
			return nil, fmt.Errorf("events.reporters[%d]: %w: %w", i, core.ErrUnknownReporter, err)
		}
		r := factory()
		if err := r.Init(rc.Options); err != nil {
			return nil, fmt.Errorf("events.reporters[%d] (%s): %w", i, rc.Type, err)
		}
		reporters = append(reporters, r)
	}
	return reporters, nil
}

func buildPorts(cfg *config.GlobalConfig) ([]dataplane.Port, error) {
	ports := make([]dataplane.Port, 0, len(cfg.Dataplane.Ports))
	for i, pc := range cfg.Dataplane.Ports {
		cp, err := core.ParseConnectPoint(pc.ConnectPoint)
		if err != nil {
			return nil, fmt.Errorf("dataplane.ports[%d]: %w", i, err)
		}
		port := dataplane.Port{ConnectPoint: cp, Interface: pc.Interface}

		if !pc.NoCapture {
			name, opts := cfg.PortCapture(pc)
			factory, err := plugin.GetCapturerFactory(name)
			if err != nil {
				return nil, fmt.Errorf("dataplane.ports[%d]: %w: %w", i, core.ErrUnknownCapturer, err)
			}
			port.Capturer = factory()
			if err := port.Capturer.Init(opts); err != nil {
				return nil, fmt.Errorf("dataplane.ports[%d] capture: %w", i, err)
			}
		}

		name, opts := cfg.PortInject(pc)
		factory, err := plugin.GetInjectorFactory(name)
		if err != nil {
			return nil, fmt.Errorf("dataplane.ports[%d]: %w: %w", i, core.ErrUnknownInjector, err)
		}
		port.Injector = factory()
		if err := port.Injector.Init(opts); err != nil {
			return nil, fmt.Errorf("dataplane.ports[%d] inject: %w", i, err)
		}

		ports = append(ports, port)
	}
	return ports, nil
}
