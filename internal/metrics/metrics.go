// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames seen by the sniffer processor by classifier verdict.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_frames_total",
			Help: "Total number of frames classified",
		},
		[]string{"class"},
	)

	// OutcomesTotal counts resolved outcomes, including pass-through responses.
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_outcomes_total",
			Help: "Total number of RADIUS responses by resolved outcome",
		},
		[]string{"result"},
	)

	// CorrelationPending tracks requests awaiting a final answer.
	CorrelationPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eapsniffer_correlation_pending",
			Help: "Number of pending correlation entries",
		},
	)

	// CorrelationExpiredTotal counts requests that never saw an answer within the TTL.
	CorrelationExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eapsniffer_correlation_expired_total",
			Help: "Total number of correlation entries expired without a response",
		},
	)

	// ForwardedTotal counts frames re-emitted per direction.
	ForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_forwarded_total",
			Help: "Total number of frames re-emitted",
		},
		[]string{"direction"},
	)

	// EmitErrorsTotal counts frames that could not be re-emitted.
	EmitErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_emit_errors_total",
			Help: "Total number of emission failures",
		},
		[]string{"reason"},
	)

	// CapturePacketsTotal counts packets captured by interface.
	CapturePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_capture_packets_total",
			Help: "Total number of packets captured",
		},
		[]string{"interface"},
	)

	// CaptureDropsTotal counts packets dropped before dispatch.
	CaptureDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_capture_drops_total",
			Help: "Total number of packets dropped during capture",
		},
		[]string{"interface", "stage"},
	)

	// ProcessorPanicsTotal counts processor panics recovered by the dispatcher.
	ProcessorPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eapsniffer_processor_panics_total",
			Help: "Total number of recovered processor panics",
		},
	)

	// DispatchLatencySeconds measures time spent running processors for one frame.
	DispatchLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eapsniffer_dispatch_latency_seconds",
			Help:    "Latency of processor dispatch per frame in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
	)

	// ReporterErrorsTotal counts event reporter failures.
	ReporterErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eapsniffer_reporter_errors_total",
			Help: "Total number of reporter errors",
		},
		[]string{"reporter"},
	)

	// EventsDroppedTotal counts auth events dropped because the event queue was full.
	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eapsniffer_events_dropped_total",
			Help: "Total number of auth events dropped by the dispatcher",
		},
	)

	// EchoesDroppedTotal counts captured copies of frames the sniffer wrote itself.
	EchoesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eapsniffer_echoes_dropped_total",
			Help: "Total number of self-emitted frames seen again by a capturer and dropped",
		},
	)
)
