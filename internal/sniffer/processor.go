// Package sniffer correlates RADIUS authentication exchanges seen on the
// dataplane and relays every RADIUS frame toward its destination.
package sniffer

import (
	"log/slog"

	"firestige.xyz/eapsniffer/internal/correlate"
	"firestige.xyz/eapsniffer/internal/forward"
	"firestige.xyz/eapsniffer/internal/metrics"
	"firestige.xyz/eapsniffer/internal/outcome"
	"firestige.xyz/eapsniffer/internal/packet"
	"firestige.xyz/eapsniffer/internal/radius"
)

// Emitter re-emits frames. packet.Service satisfies it.
type Emitter interface {
	Emit(pkt packet.OutboundPacket) error
}

// Processor is the packet.Processor doing the actual work for every frame.
type Processor struct {
	classifier radius.Classifier
	resolver   *outcome.Resolver
	router     *forward.Router
	emitter    Emitter
}

// NewProcessor wires a processor. The classifier must use the router's auth port.
func NewProcessor(classifier radius.Classifier, resolver *outcome.Resolver, router *forward.Router, emitter Emitter) *Processor {
	return &Processor{
		classifier: classifier,
		resolver:   resolver,
		router:     router,
		emitter:    emitter,
	}
}

// Process classifies ctx's frame, updates correlation state and re-emits it.
// Frames already handled by an earlier processor are left alone.
func (p *Processor) Process(ctx packet.Context) {
	if ctx.IsHandled() {
		return
	}

	in := ctx.InPacket()
	msg := p.classifier.Classify(in.Parsed)
	metrics.FramesTotal.WithLabelValues(msg.Class.String()).Inc()

	switch msg.Class {
	case radius.Ignore:
		return
	case radius.AuthRequest:
		p.resolver.Request(correlate.KeyOf(msg), radius.ExtractParty(msg))
	case radius.AuthResponse:
		p.resolver.Respond(correlate.KeyOf(msg), msg.Outcome)
	}

	decision, ok := p.router.Route(msg.SrcPort, msg.DstPort)
	if !ok {
		return
	}

	err := p.emitter.Emit(packet.OutboundPacket{Target: decision.Target, Data: in.Data})
	if err != nil {
		slog.Warn("failed to forward radius frame",
			"target", decision.Target.String(),
			"direction", decision.Direction.String(),
			"error", err)
	} else {
		metrics.ForwardedTotal.WithLabelValues(decision.Direction.String()).Inc()
	}
	ctx.Block()
}
