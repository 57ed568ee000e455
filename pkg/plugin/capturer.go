// Package plugin defines plugin interfaces.
package plugin

import (
	"context"

	"firestige.xyz/eapsniffer/internal/core"
)

// Capturer captures raw frames from one attachment point.
// Capture blocks until ctx is cancelled or the source is exhausted.
type Capturer interface {
	Plugin
	Capture(ctx context.Context, output chan<- core.RawPacket) error
	Stats() CaptureStats
}

// CaptureStats represents capture statistics.
type CaptureStats struct {
	PacketsReceived  uint64
	PacketsDropped   uint64
	PacketsIfDropped uint64
}
