// Package packet defines the contracts between packet processors and the
// packet service that captures, dispatches and re-emits frames.
package packet

import (
	"fmt"
	"sync/atomic"
	"time"

	"firestige.xyz/eapsniffer/internal/core"
)

// InboundPacket is a frame received on an attachment point.
// Parsed and Data are owned by the dispatcher and only valid during Process.
type InboundPacket struct {
	Receive core.ConnectPoint
	Parsed  *core.DecodedPacket
	Data    []byte
}

// OutboundPacket is a frame to send, unmodified, out of Target.
type OutboundPacket struct {
	Target core.ConnectPoint
	Data   []byte
}

// Context wraps one inbound frame while it travels through the processors.
type Context interface {
	Time() time.Time
	InPacket() InboundPacket
	// IsHandled reports whether a processor has already taken the frame.
	IsHandled() bool
	// Block marks the frame handled. It returns false if it already was.
	Block() bool
}

// Processor is invoked for every frame matching a requested selector.
// Processors must be comparable (pointer receivers) so they can be removed.
type Processor interface {
	Process(ctx Context)
}

// Service is implemented by the dataplane.
type Service interface {
	AddProcessor(p Processor, priority Priority) error
	RemoveProcessor(p Processor)
	RequestPackets(sel Selector, prio InterceptPriority, appID string)
	CancelPackets(sel Selector, prio InterceptPriority, appID string)
	// Emit queues pkt for transmission and returns without waiting for it.
	Emit(pkt OutboundPacket) error
}

// Priority orders processors; lower values run first.
type Priority int

const advisorMax = 1 << 20

// Advisor priorities run before any director and should only observe.
func Advisor(n int) Priority { return Priority(n) }

// Director priorities may handle and re-emit frames.
func Director(n int) Priority { return Priority(advisorMax + n) }

// IsDirector reports whether p is in the director range.
func (p Priority) IsDirector() bool { return p >= advisorMax }

func (p Priority) String() string {
	if p.IsDirector() {
		return fmt.Sprintf("director(%d)", int(p)-advisorMax)
	}
	return fmt.Sprintf("advisor(%d)", int(p))
}

// InterceptPriority is the precedence of a packet request.
type InterceptPriority uint8

const (
	Low InterceptPriority = iota + 1
	Reactive
	Control
)

func (p InterceptPriority) String() string {
	switch p {
	case Control:
		return "control"
	case Reactive:
		return "reactive"
	case Low:
		return "low"
	default:
		return "unset"
	}
}

// ParseInterceptPriority accepts "control", "reactive" and "low".
func ParseInterceptPriority(s string) (InterceptPriority, error) {
	switch s {
	case "control":
		return Control, nil
	case "reactive", "":
		return Reactive, nil
	case "low":
		return Low, nil
	default:
		return 0, fmt.Errorf("%w: unknown intercept priority %q", core.ErrConfigInvalid, s)
	}
}

// Selector is a coarse frame filter. A zero field matches anything.
type Selector struct {
	EtherType uint16
	IPProto   uint8
}

// IPv4Selector matches every IPv4 frame.
var IPv4Selector = Selector{EtherType: core.EtherTypeIPv4}

// Matches reports whether pkt satisfies every non-zero field of s.
func (s Selector) Matches(pkt *core.DecodedPacket) bool {
	if pkt == nil {
		return false
	}
	if s.EtherType != 0 && pkt.Ethernet.EtherType != s.EtherType {
		return false
	}
	if s.IPProto != 0 && pkt.IP.Protocol != s.IPProto {
		return false
	}
	return true
}

// DefaultContext is the Context handed out by the dataplane.
type DefaultContext struct {
	at      time.Time
	in      InboundPacket
	handled atomic.Bool
}

// NewContext wraps in.
func NewContext(at time.Time, in InboundPacket) *DefaultContext {
	return &DefaultContext{at: at, in: in}
}

func (c *DefaultContext) Time() time.Time         { return c.at }
func (c *DefaultContext) InPacket() InboundPacket { return c.in }
func (c *DefaultContext) IsHandled() bool         { return c.handled.Load() }
func (c *DefaultContext) Block() bool             { return c.handled.CompareAndSwap(false, true) }
