// Package pipeline implements the per-port capture, decode and dispatch loop.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/core/decoder"
	"firestige.xyz/eapsniffer/internal/metrics"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

// Dispatcher receives every successfully decoded frame.
// Dispatch runs on the pipeline goroutine; pkt and raw.Data are only
// valid for the duration of the call.
type Dispatcher interface {
	Dispatch(port core.ConnectPoint, raw core.RawPacket, pkt *core.DecodedPacket)
}

// Pipeline reads one capture source and feeds its frames to a Dispatcher.
type Pipeline struct {
	port       core.ConnectPoint
	iface      string
	capturer   plugin.Capturer
	decoder    decoder.Decoder
	dispatcher Dispatcher
	bufferSize int
	metrics    *Metrics
}

// Config contains pipeline configuration.
type Config struct {
	Port       core.ConnectPoint
	Interface  string
	Capturer   plugin.Capturer
	Decoder    decoder.Decoder // defaults to a fresh StandardDecoder
	Dispatcher Dispatcher
	BufferSize int // raw packet channel buffer size
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decoder.NewStandardDecoder()
	}
	return &Pipeline{
		port:       cfg.Port,
		iface:      cfg.Interface,
		capturer:   cfg.Capturer,
		decoder:    cfg.Decoder,
		dispatcher: cfg.Dispatcher,
		bufferSize: cfg.BufferSize,
		metrics:    NewMetrics(cfg.Port.String()),
	}
}

// Port returns the attachment point this pipeline captures on.
func (p *Pipeline) Port() core.ConnectPoint { return p.port }

// Run captures until ctx is cancelled or the capture source ends, then
// drains buffered frames. A capture failure is returned; cancellation is not.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("pipeline starting", "port", p.port.String(), "interface", p.iface)

	if err := p.capturer.Start(ctx); err != nil {
		return fmt.Errorf("start capturer on %s: %w", p.iface, err)
	}

	rawCh := make(chan core.RawPacket, p.bufferSize)
	var captureErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		captureErr = p.captureLoop(ctx, rawCh)
	}()

	p.processLoop(rawCh)
	wg.Wait()

	if err := p.capturer.Stop(context.Background()); err != nil {
		slog.Warn("capturer stop failed", "interface", p.iface, "error", err)
	}

	stats := p.Stats()
	slog.Info("pipeline stopped",
		"port", p.port.String(),
		"received", stats.Received,
		"decoded", stats.Decoded,
		"decode_errors", stats.DecodeErrors)
	return captureErr
}

// captureLoop reads packets from the capturer and closes out when done.
func (p *Pipeline) captureLoop(ctx context.Context, out chan core.RawPacket) error {
	defer close(out)

	if err := p.capturer.Capture(ctx, out); err != nil && ctx.Err() == nil {
		slog.Error("capture failed", "error", err, "interface", p.iface)
		return fmt.Errorf("capture on %s: %w", p.iface, err)
	}
	return nil
}

// processLoop is the main processing loop.
func (p *Pipeline) processLoop(in <-chan core.RawPacket) {
	counter := metrics.CapturePacketsTotal.WithLabelValues(p.iface)
	for raw := range in {
		p.metrics.Received.Add(1)
		counter.Inc()

		if err := p.processPacket(raw); err != nil {
			slog.Debug("packet processing failed", "error", err, "interface", p.iface)
		}
	}
}

// processPacket decodes one frame and hands it to the dispatcher.
func (p *Pipeline) processPacket(raw core.RawPacket) error {
	decoded, err := p.decoder.Decode(raw)
	if err != nil {
		p.metrics.DecodeErrors.Add(1)
		metrics.CaptureDropsTotal.WithLabelValues(p.iface, "decode").Inc()
		return fmt.Errorf("decode failed: %w", err)
	}
	p.metrics.Decoded.Add(1)

	p.dispatcher.Dispatch(p.port, raw, &decoded)
	p.metrics.Dispatched.Add(1)
	return nil
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:     p.metrics.Received.Load(),
		Decoded:      p.metrics.Decoded.Load(),
		DecodeErrors: p.metrics.DecodeErrors.Load(),
		Dispatched:   p.metrics.Dispatched.Load(),
		Capture:      p.capturer.Stats(),
	}
}

// Stats represents pipeline statistics.
type Stats struct {
	Received     uint64
	Decoded      uint64
	DecodeErrors uint64
	Dispatched   uint64
	Capture      plugin.CaptureStats
}
