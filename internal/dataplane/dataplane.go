// Package dataplane is the packet service: it captures frames on bound
// attachment points, dispatches them to processors in priority order and
// re-emits frames handed to Emit.
package dataplane

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/metrics"
	"firestige.xyz/eapsniffer/internal/packet"
	"firestige.xyz/eapsniffer/internal/pipeline"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const defaultEmitQueueSize = 4096

// Port binds an attachment point to a local capture source and/or injector.
type Port struct {
	ConnectPoint core.ConnectPoint
	Interface    string
	Capturer     plugin.Capturer // nil: frames are not captured on this port
	Injector     plugin.Injector // nil: frames cannot be emitted on this port
}

// Options configures a Service.
type Options struct {
	EmitQueueSize int
	BufferSize    int           // per-pipeline raw frame buffer
	EchoWindow    time.Duration // how long an emitted frame is expected back on its own port
}

type registration struct {
	proc     packet.Processor
	priority packet.Priority
}

type request struct {
	sel   packet.Selector
	prio  packet.InterceptPriority
	appID string
}

// Service implements packet.Service over a set of bound ports.
type Service struct {
	ports     map[core.ConnectPoint]*Port
	echoes    map[string]*echoGuard // by link, see linkOf
	pipelines []*pipeline.Pipeline
	bufSize   int

	mu         sync.Mutex
	processors atomic.Pointer[[]registration]
	requests   atomic.Pointer[[]request]

	emitQ     chan packet.OutboundPacket
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	stats Stats
}

// Stats counts dataplane activity.
type Stats struct {
	Dispatched   atomic.Uint64
	Unrequested  atomic.Uint64
	Echoes       atomic.Uint64
	Panics       atomic.Uint64
	Emitted      atomic.Uint64
	EmitDropped  atomic.Uint64
	InjectErrors atomic.Uint64
}

// New creates a service over ports. Duplicate connect points are rejected.
func New(ports []Port, opts Options) (*Service, error) {
	if opts.EmitQueueSize <= 0 {
		opts.EmitQueueSize = defaultEmitQueueSize
	}
	if opts.EchoWindow <= 0 {
		opts.EchoWindow = defaultEchoWindow
	}

	s := &Service{
		ports:   make(map[core.ConnectPoint]*Port, len(ports)),
		echoes:  make(map[string]*echoGuard),
		bufSize: opts.BufferSize,
		emitQ:   make(chan packet.OutboundPacket, opts.EmitQueueSize),
		done:    make(chan struct{}),
	}
	s.processors.Store(&[]registration{})
	s.requests.Store(&[]request{})

	for i := range ports {
		p := ports[i]
		if p.ConnectPoint.IsZero() {
			return nil, fmt.Errorf("%w: port %d has no connect point", core.ErrInvalidConnectPoint, i)
		}
		if _, dup := s.ports[p.ConnectPoint]; dup {
			return nil, fmt.Errorf("%w: %s bound twice", core.ErrConfigInvalid, p.ConnectPoint)
		}
		s.ports[p.ConnectPoint] = &p
		if p.Capturer != nil {
			s.pipelines = append(s.pipelines, pipeline.New(pipeline.Config{
				Port:       p.ConnectPoint,
				Interface:  p.Interface,
				Capturer:   p.Capturer,
				Dispatcher: s,
				BufferSize: opts.BufferSize,
			}))
		}
	}

	// A link both written and captured sees its own output come back.
	for _, p := range s.ports {
		if p.Injector == nil {
			continue
		}
		link := linkOf(p)
		for _, q := range s.ports {
			if q.Capturer != nil && linkOf(q) == link {
				s.echoes[link] = newEchoGuard(opts.EchoWindow)
				break
			}
		}
	}
	return s, nil
}

// linkOf names the wire a port sits on: its interface, or the connect point
// itself when no interface is configured.
func linkOf(p *Port) string {
	if p.Interface != "" {
		return p.Interface
	}
	return p.ConnectPoint.String()
}

// AddProcessor registers p at priority. Equal priorities keep insertion order.
func (s *Service) AddProcessor(p packet.Processor, priority packet.Priority) error {
	if p == nil {
		return fmt.Errorf("%w: nil processor", core.ErrConfigInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.processors.Load()
	for _, r := range cur {
		if r.proc == p {
			return fmt.Errorf("%w: processor already registered", core.ErrAlreadyActive)
		}
	}
	next := append(append(make([]registration, 0, len(cur)+1), cur...), registration{proc: p, priority: priority})
	sort.SliceStable(next, func(i, j int) bool { return next[i].priority < next[j].priority })
	s.processors.Store(&next)

	slog.Debug("processor added", "priority", priority.String())
	return nil
}

// RemoveProcessor unregisters p. Unknown processors are ignored.
func (s *Service) RemoveProcessor(p packet.Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.processors.Load()
	next := make([]registration, 0, len(cur))
	for _, r := range cur {
		if r.proc != p {
			next = append(next, r)
		}
	}
	s.processors.Store(&next)
}

// RequestPackets enables dispatch of frames matching sel on behalf of appID.
func (s *Service) RequestPackets(sel packet.Selector, prio packet.InterceptPriority, appID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.requests.Load()
	want := request{sel: sel, prio: prio, appID: appID}
	for _, r := range cur {
		if r == want {
			return
		}
	}
	next := append(append(make([]request, 0, len(cur)+1), cur...), want)
	s.requests.Store(&next)
	slog.Info("packets requested", "app", appID, "ether_type", fmt.Sprintf("0x%04x", sel.EtherType), "priority", prio.String())
}

// CancelPackets withdraws a request made with the same arguments.
func (s *Service) CancelPackets(sel packet.Selector, prio packet.InterceptPriority, appID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.requests.Load()
	want := request{sel: sel, prio: prio, appID: appID}
	next := make([]request, 0, len(cur))
	for _, r := range cur {
		if r != want {
			next = append(next, r)
		}
	}
	s.requests.Store(&next)
	slog.Info("packets cancelled", "app", appID)
}

// Dispatch implements pipeline.Dispatcher. Frames the service itself wrote
// to port are dropped when its capturer sees them leave.
func (s *Service) Dispatch(port core.ConnectPoint, raw core.RawPacket, pkt *core.DecodedPacket) {
	if p, ok := s.ports[port]; ok && s.echo(p, raw.Data) {
		s.stats.Echoes.Add(1)
		metrics.EchoesDroppedTotal.Inc()
		return
	}
	if !s.requested(pkt) {
		s.stats.Unrequested.Add(1)
		return
	}

	start := time.Now()
	ctx := packet.NewContext(raw.Timestamp, packet.InboundPacket{
		Receive: port,
		Parsed:  pkt,
		Data:    raw.Data,
	})
	for _, r := range *s.processors.Load() {
		s.invoke(r, ctx)
	}
	s.stats.Dispatched.Add(1)
	metrics.DispatchLatencySeconds.Observe(time.Since(start).Seconds())
}

func (s *Service) echo(p *Port, frame []byte) bool {
	g := s.echoes[linkOf(p)]
	return g != nil && g.consume(frame)
}

func (s *Service) requested(pkt *core.DecodedPacket) bool {
	for _, r := range *s.requests.Load() {
		if r.sel.Matches(pkt) {
			return true
		}
	}
	return false
}

func (s *Service) invoke(r registration, ctx packet.Context) {
	defer func() {
		if v := recover(); v != nil {
			s.stats.Panics.Add(1)
			metrics.ProcessorPanicsTotal.Inc()
			slog.Error("processor panicked", "priority", r.priority.String(), "panic", v)
		}
	}()
	r.proc.Process(ctx)
}

// Emit copies pkt.Data and queues it for the injector goroutine.
// It never blocks: a full queue drops the frame.
func (s *Service) Emit(pkt packet.OutboundPacket) error {
	if s.closed.Load() {
		return core.ErrClosed
	}
	port, ok := s.ports[pkt.Target]
	if !ok || port.Injector == nil {
		metrics.EmitErrorsTotal.WithLabelValues("no_binding").Inc()
		return fmt.Errorf("%w: %s", core.ErrNoBinding, pkt.Target)
	}

	out := packet.OutboundPacket{Target: pkt.Target, Data: append([]byte(nil), pkt.Data...)}
	select {
	case s.emitQ <- out:
		return nil
	default:
		s.stats.EmitDropped.Add(1)
		metrics.EmitErrorsTotal.WithLabelValues("queue_full").Inc()
		return core.ErrEmitQueueFull
	}
}

// Run starts the injectors, runs every capture pipeline and blocks until ctx
// is cancelled or all capture sources are exhausted. Queued emissions are
// flushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if err := s.startInjectors(ctx); err != nil {
		s.stopInjectors()
		return err
	}

	injDone := make(chan struct{})
	go func() {
		defer close(injDone)
		s.injectLoop()
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range s.pipelines {
		p := p
		g.Go(func() error { return p.Run(gctx) })
	}
	err := g.Wait()

	s.Close()
	<-injDone
	s.stopInjectors()
	return err
}

// Close stops accepting emissions. Queued frames are still written by Run.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

func (s *Service) injectLoop() {
	for {
		select {
		case out := <-s.emitQ:
			s.inject(out)
		case <-s.done:
			for {
				select {
				case out := <-s.emitQ:
					s.inject(out)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) inject(out packet.OutboundPacket) {
	port := s.ports[out.Target]
	g := s.echoes[linkOf(port)]
	if g != nil {
		g.sent(out.Data)
	}
	if err := port.Injector.Inject(out.Data); err != nil {
		if g != nil {
			g.unsent(out.Data)
		}
		s.stats.InjectErrors.Add(1)
		metrics.EmitErrorsTotal.WithLabelValues("inject").Inc()
		slog.Warn("inject failed", "target", out.Target.String(), "interface", port.Interface, "error", err)
		return
	}
	s.stats.Emitted.Add(1)
}

func (s *Service) startInjectors(ctx context.Context) error {
	for cp, p := range s.ports {
		if p.Injector == nil {
			continue
		}
		if err := p.Injector.Start(ctx); err != nil {
			return fmt.Errorf("start injector for %s: %w", cp, err)
		}
	}
	return nil
}

func (s *Service) stopInjectors() {
	for cp, p := range s.ports {
		if p.Injector == nil {
			continue
		}
		if err := p.Injector.Stop(context.Background()); err != nil {
			slog.Warn("injector stop failed", "connect_point", cp.String(), "error", err)
		}
	}
}

// Pipelines returns the capture pipelines, one per capturing port.
func (s *Service) Pipelines() []*pipeline.Pipeline { return s.pipelines }

// Stats returns the live counters.
func (s *Service) Stats() *Stats { return &s.stats }
