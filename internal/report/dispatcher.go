// Package report delivers authentication events to reporters off the
// frame-processing path.
package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/metrics"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 50 * time.Millisecond
	defaultQueueSize    = 10000
)

// Config contains configuration for creating a Dispatcher.
type Config struct {
	Reporters    []plugin.Reporter
	QueueSize    int
	BatchSize    int
	BatchTimeout time.Duration
}

// Dispatcher queues events and fans them out to every reporter in batches:
//
//	Resolver → Publish() → batchLoop → Reporter.ReportBatch()/Report()
//
// Publish never blocks; events are dropped when the queue is full.
type Dispatcher struct {
	reporters    []plugin.Reporter
	batchSize    int
	batchTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan core.AuthEvent
	doneCh chan struct{}
}

// NewDispatcher creates a dispatcher. Call Start before publishing.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	return &Dispatcher{
		reporters:    cfg.Reporters,
		batchSize:    cfg.BatchSize,
		batchTimeout: cfg.BatchTimeout,
		ch:           make(chan core.AuthEvent, cfg.QueueSize),
		doneCh:       make(chan struct{}),
	}
}

// Start starts the reporters and the batch loop. Reporters that fail to
// start are logged and skipped.
func (d *Dispatcher) Start(ctx context.Context) error {
	started := d.reporters[:0:0]
	var errs []error
	for _, r := range d.reporters {
		if err := r.Start(ctx); err != nil {
			slog.Error("reporter start failed", "reporter", r.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		started = append(started, r)
	}
	d.reporters = started

	go d.batchLoop(ctx)
	return errors.Join(errs...)
}

// Publish implements outcome.Publisher.
func (d *Dispatcher) Publish(ev core.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- ev:
	default:
		metrics.EventsDroppedTotal.Inc()
		slog.Warn("event queue full, dropping auth event", "result", string(ev.Result), "identifier", ev.Identifier)
	}
}

// Close drains pending events, flushes and stops every reporter.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	<-d.doneCh

	var errs []error
	for _, r := range d.reporters {
		if err := r.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := r.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// batchLoop collects events into batches and flushes on size or timeout.
func (d *Dispatcher) batchLoop(ctx context.Context) {
	defer close(d.doneCh)

	batch := make([]core.AuthEvent, 0, d.batchSize)
	ticker := time.NewTicker(d.batchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, r := range d.reporters {
			if err := send(ctx, r, batch); err != nil {
				slog.Warn("reporter batch failed", "reporter", r.Name(), "batch_size", len(batch), "error", err)
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// send prefers BatchReporter and falls back to one Report per event.
func send(ctx context.Context, r plugin.Reporter, batch []core.AuthEvent) error {
	if br, ok := r.(plugin.BatchReporter); ok {
		if err := br.ReportBatch(ctx, batch); err != nil {
			metrics.ReporterErrorsTotal.WithLabelValues(r.Name()).Inc()
			return err
		}
		return nil
	}

	var lastErr error
	for _, ev := range batch {
		if err := r.Report(ctx, ev); err != nil {
			metrics.ReporterErrorsTotal.WithLabelValues(r.Name()).Inc()
			lastErr = err
		}
	}
	return lastErr
}
