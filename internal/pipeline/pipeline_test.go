package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/testutil/frames"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

// sliceCapturer replays a fixed list of frames, then returns captureErr.
type sliceCapturer struct {
	frames     [][]byte
	captureErr error
	block      bool
	started    bool
	stopped    bool
}

func (c *sliceCapturer) Name() string                    { return "slice" }
func (c *sliceCapturer) Init(map[string]any) error       { return nil }
func (c *sliceCapturer) Start(ctx context.Context) error { c.started = true; return nil }
func (c *sliceCapturer) Stop(ctx context.Context) error  { c.stopped = true; return nil }
func (c *sliceCapturer) Stats() plugin.CaptureStats      { return plugin.CaptureStats{PacketsReceived: uint64(len(c.frames))} }

func (c *sliceCapturer) Capture(ctx context.Context, out chan<- core.RawPacket) error {
	for _, f := range c.frames {
		select {
		case out <- core.RawPacket{Data: f, Timestamp: time.Now(), CaptureLen: uint32(len(f)), OrigLen: uint32(len(f))}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.captureErr
}

type recordingDispatcher struct {
	mu    sync.Mutex
	ports []core.ConnectPoint
	pkts  []core.DecodedPacket
}

func (d *recordingDispatcher) Dispatch(port core.ConnectPoint, raw core.RawPacket, pkt *core.DecodedPacket) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ports = append(d.ports, port)
	d.pkts = append(d.pkts, *pkt)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pkts)
}

var testPort = core.MustParseConnectPoint("of:000078321bdf7000/1")

func TestPipeline_BasicFlow(t *testing.T) {
	capturer := &sliceCapturer{frames: [][]byte{
		frames.Request(1, frames.UserName("alice")),
		frames.Response(frames.CodeAccessAccept, 1),
	}}
	disp := &recordingDispatcher{}

	p := New(Config{Port: testPort, Interface: "test0", Capturer: capturer, Dispatcher: disp})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if disp.count() != 2 {
		t.Errorf("Expected 2 dispatched packets, got %d", disp.count())
	}
	if disp.ports[0] != testPort {
		t.Errorf("Expected port %s, got %s", testPort, disp.ports[0])
	}
	if disp.pkts[1].Transport.SrcPort != 1812 {
		t.Errorf("Expected second packet from 1812, got %d", disp.pkts[1].Transport.SrcPort)
	}
	if !capturer.started || !capturer.stopped {
		t.Error("capturer lifecycle not driven")
	}

	stats := p.Stats()
	if stats.Received != 2 || stats.Decoded != 2 || stats.Dispatched != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Capture.PacketsReceived != 2 {
		t.Errorf("capture stats not propagated: %+v", stats.Capture)
	}
}

func TestPipeline_DecodeErrors(t *testing.T) {
	capturer := &sliceCapturer{frames: [][]byte{
		{0x01, 0x02},
		frames.Request(2),
	}}
	disp := &recordingDispatcher{}

	p := New(Config{Port: testPort, Interface: "test0", Capturer: capturer, Dispatcher: disp})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := p.Stats()
	if stats.DecodeErrors != 1 {
		t.Errorf("Expected 1 decode error, got %d", stats.DecodeErrors)
	}
	if disp.count() != 1 {
		t.Errorf("Expected 1 dispatched packet, got %d", disp.count())
	}
}

func TestPipeline_CaptureError(t *testing.T) {
	boom := errors.New("interface vanished")
	p := New(Config{Port: testPort, Interface: "test0", Capturer: &sliceCapturer{captureErr: boom}, Dispatcher: &recordingDispatcher{}})

	err := p.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Expected capture error, got %v", err)
	}
}

func TestPipeline_Cancel(t *testing.T) {
	capturer := &sliceCapturer{frames: [][]byte{frames.Request(3)}, block: true}
	disp := &recordingDispatcher{}
	p := New(Config{Port: testPort, Interface: "test0", Capturer: capturer, Dispatcher: disp})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancellation must not be an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	if disp.count() != 1 {
		t.Errorf("Expected 1 dispatched packet, got %d", disp.count())
	}
}
