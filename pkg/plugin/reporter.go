// Package plugin defines plugin interfaces.
package plugin

import (
	"context"

	"firestige.xyz/eapsniffer/internal/core"
)

// Reporter sends authentication events to external systems.
type Reporter interface {
	Plugin
	Report(ctx context.Context, ev core.AuthEvent) error
	Flush(ctx context.Context) error
}

// BatchReporter is an optional interface for reporters that can write
// several events at once (e.g. Kafka batch writes). Reporters that do not
// implement it receive events one by one through Report.
type BatchReporter interface {
	Reporter
	ReportBatch(ctx context.Context, evs []core.AuthEvent) error
}
