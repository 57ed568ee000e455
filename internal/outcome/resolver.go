// Package outcome resolves RADIUS answers against pending requests.
package outcome

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/correlate"
	"firestige.xyz/eapsniffer/internal/metrics"
	"firestige.xyz/eapsniffer/internal/radius"
)

// Publisher receives resolved authentication events. It must not block.
type Publisher interface {
	Publish(ev core.AuthEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev core.AuthEvent)

func (f PublisherFunc) Publish(ev core.AuthEvent) { f(ev) }

// Resolver drives the per-transaction state machine
// None -> Pending (Request) -> Resolved (Accept/Reject).
type Resolver struct {
	store     *correlate.Store
	publisher Publisher
	now       func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPublisher forwards every event to p.
func WithPublisher(p Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a resolver owning store.
func NewResolver(store *correlate.Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	store.OnExpire(func(key string, p core.Party) {
		metrics.CorrelationExpiredTotal.Inc()
		metrics.CorrelationPending.Set(float64(r.store.Len()))
		slog.Debug("correlation entry expired", "key", key, "user", p.Name(), "mac", p.MAC())
	})
	return r
}

// Store returns the underlying correlation store.
func (r *Resolver) Store() *correlate.Store { return r.store }

// Request records party as pending for key.
func (r *Resolver) Request(key correlate.Key, party core.Party) {
	r.store.Put(key, party)
	metrics.CorrelationPending.Set(float64(r.store.Len()))
	slog.Debug("auth request", "user", party.Name(), "mac", party.MAC(), "identifier", key.ID)
}

// Respond applies a response outcome for key. It returns the published event
// and true for Accept and Reject; Request and Other change nothing.
func (r *Resolver) Respond(key correlate.Key, out radius.Outcome) (core.AuthEvent, bool) {
	var result core.AuthResult
	party, found := core.Party{}, false

	switch out {
	case radius.Accept, radius.Reject:
		party, found = r.store.Take(key)
		metrics.CorrelationPending.Set(float64(r.store.Len()))
		result = resultOf(out, found)
	case radius.Request, radius.Other:
		metrics.OutcomesTotal.WithLabelValues("passthrough").Inc()
		return core.AuthEvent{}, false
	default:
		return core.AuthEvent{}, false
	}

	ev := core.AuthEvent{
		ID:         uuid.NewString(),
		Timestamp:  r.now(),
		Result:     result,
		Party:      party,
		Identifier: key.ID,
		Client:     key.Client,
		Server:     key.Server,
	}

	metrics.OutcomesTotal.WithLabelValues(string(result)).Inc()
	logEvent(ev)
	if r.publisher != nil {
		r.publisher.Publish(ev)
	}
	return ev, true
}

func resultOf(out radius.Outcome, found bool) core.AuthResult {
	switch {
	case out == radius.Accept && found:
		return core.ResultAuthorized
	case out == radius.Accept:
		return core.ResultUnknownAuthorized
	case found:
		return core.ResultRejected
	default:
		return core.ResultUnknownRejected
	}
}

func logEvent(ev core.AuthEvent) {
	attrs := []any{"identifier", ev.Identifier, "client", ev.Client.String()}
	switch ev.Result {
	case core.ResultAuthorized:
		slog.Info("user has been authorized", append(attrs, "user", ev.Party.Name(), "mac", ev.Party.MAC())...)
	case core.ResultRejected:
		slog.Info("user has been rejected", append(attrs, "user", ev.Party.Name(), "mac", ev.Party.MAC())...)
	case core.ResultUnknownAuthorized:
		slog.Info("unknown user has been authorized", attrs...)
	case core.ResultUnknownRejected:
		slog.Info("unknown user has been rejected", attrs...)
	}
}
