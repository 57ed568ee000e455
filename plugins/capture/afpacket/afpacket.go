// Package afpacket implements AF_PACKET_V3 capture plugin.
package afpacket

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/net/bpf"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const (
	pluginName = "afpacket"

	defaultSnapLen   = 65535
	defaultBlockSize = 4 * 1024 * 1024 // 4MB
	defaultNumBlocks = 64
)

func init() {
	plugin.RegisterCapturer(pluginName, NewAFPacketCapturer)
}

// Config represents afpacket-specific configuration.
type Config struct {
	Interface   string `mapstructure:"interface"`   // required
	BPFFilter   string `mapstructure:"bpf_filter"`  // optional
	SnapLen     int    `mapstructure:"snap_len"`    // optional, default 65535
	BlockSize   int    `mapstructure:"block_size"`  // optional, default 4MB
	NumBlocks   int    `mapstructure:"num_blocks"`  // optional, default 64
	FanoutID    int    `mapstructure:"fanout_id"`   // optional, 0 disables fanout
	FanoutType  string `mapstructure:"fanout_type"` // optional: hash
	Promiscuous bool   `mapstructure:"promiscuous"` // optional, default true
}

// AFPacketCapturer implements the Capturer interface using AF_PACKET_V3.
type AFPacketCapturer struct {
	name   string
	config Config

	handle *afpacket.TPacket
	cancel context.CancelFunc

	packetsReceived  atomic.Uint64
	packetsDropped   atomic.Uint64
	packetsIfDropped atomic.Uint64
}

// NewAFPacketCapturer creates a new AF_PACKET capturer instance.
func NewAFPacketCapturer() plugin.Capturer {
	return &AFPacketCapturer{
		name: pluginName,
	}
}

// Name returns the plugin name.
func (c *AFPacketCapturer) Name() string {
	return c.name
}

// Init initializes the capturer with configuration.
func (c *AFPacketCapturer) Init(cfg map[string]any) error {
	c.config = Config{
		SnapLen:     defaultSnapLen,
		BlockSize:   defaultBlockSize,
		NumBlocks:   defaultNumBlocks,
		Promiscuous: true,
	}
	if err := mapstructure.WeakDecode(cfg, &c.config); err != nil {
		return fmt.Errorf("afpacket: %w", err)
	}
	if c.config.Interface == "" {
		return fmt.Errorf("afpacket: interface is required")
	}
	if c.config.FanoutID > 0 {
		if _, err := parseFanoutType(c.config.FanoutType); err != nil {
			return fmt.Errorf("afpacket: %w", err)
		}
	}

	slog.Debug("afpacket initialized",
		"interface", c.config.Interface,
		"bpf_filter", c.config.BPFFilter,
		"snap_len", c.config.SnapLen,
		"fanout_id", c.config.FanoutID)
	return nil
}

// Start is a no-op; the socket is opened by Capture.
func (c *AFPacketCapturer) Start(ctx context.Context) error {
	return nil
}

// Stop stops the capture loop.
//
// The TPacket handle is owned by Capture and closed there once the read loop
// observes cancellation. Closing it here would race with the read loop.
func (c *AFPacketCapturer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Capture reads frames until ctx is cancelled.
// Frames are copied out of the ring because they are queued and re-emitted
// after the next read.
func (c *AFPacketCapturer) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	ctx, c.cancel = context.WithCancel(ctx)

	opts := []interface{}{
		afpacket.OptInterface(c.config.Interface),
		afpacket.OptFrameSize(c.config.SnapLen),
		afpacket.OptBlockSize(c.config.BlockSize),
		afpacket.OptNumBlocks(c.config.NumBlocks),
		afpacket.OptPollTimeout(100 * time.Millisecond),
		afpacket.OptTPacketVersion(afpacket.TPacketVersion3),
	}

	handle, err := afpacket.NewTPacket(opts...)
	if err != nil {
		return fmt.Errorf("failed to create TPacket handle: %w", err)
	}
	c.handle = handle
	defer func() {
		c.handle.Close()
		c.handle = nil
	}()

	if c.config.FanoutID > 0 {
		fanoutType, _ := parseFanoutType(c.config.FanoutType)
		if err := c.handle.SetFanout(fanoutType, uint16(c.config.FanoutID)); err != nil {
			return fmt.Errorf("failed to set fanout: %w", err)
		}
	}

	if c.config.BPFFilter != "" {
		if err := c.applyBPFFilter(); err != nil {
			return fmt.Errorf("failed to apply BPF filter: %w", err)
		}
		slog.Debug("BPF filter applied", "filter", c.config.BPFFilter)
	}

	if err := c.handle.InitSocketStats(); err != nil {
		slog.Warn("failed to init socket stats", "error", err)
	}

	slog.Info("afpacket capture started", "interface", c.config.Interface)

	for {
		select {
		case <-ctx.Done():
			slog.Info("afpacket capture stopped", "interface", c.config.Interface)
			return nil
		default:
		}

		data, ci, err := c.handle.ReadPacketData()
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("afpacket capture stopped", "interface", c.config.Interface)
				return nil
			}
			// Poll timeouts and EINTR are retried.
			continue
		}

		c.packetsReceived.Add(1)
		if socketStats, _, statsErr := c.handle.SocketStats(); statsErr == nil {
			c.packetsIfDropped.Store(uint64(socketStats.Drops()))
		}

		raw := core.RawPacket{
			Data:           data,
			Timestamp:      ci.Timestamp,
			CaptureLen:     uint32(ci.CaptureLength),
			OrigLen:        uint32(ci.Length),
			InterfaceIndex: ci.InterfaceIndex,
		}

		// Prefer drop over blocking the read loop.
		select {
		case output <- raw:
		case <-ctx.Done():
			slog.Info("afpacket capture stopped", "interface", c.config.Interface)
			return nil
		default:
			c.packetsDropped.Add(1)
			slog.Debug("output channel full, dropping packet", "interface", c.config.Interface)
		}
	}
}

// applyBPFFilter compiles and applies a BPF filter to the capture handle.
func (c *AFPacketCapturer) applyBPFFilter() error {
	insns, err := compileBPF(c.config.SnapLen, c.config.BPFFilter)
	if err != nil {
		return err
	}
	if err := c.handle.SetBPF(insns); err != nil {
		return fmt.Errorf("failed to set BPF: %w", err)
	}
	return nil
}

// compileBPF compiles expr with libpcap and converts it to x/net/bpf form.
func compileBPF(snapLen int, expr string) ([]bpf.RawInstruction, error) {
	pcapInsns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile BPF filter %q: %w", expr, err)
	}
	raw := make([]bpf.RawInstruction, len(pcapInsns))
	for i, insn := range pcapInsns {
		raw[i] = bpf.RawInstruction{Op: insn.Code, Jt: insn.Jt, Jf: insn.Jf, K: insn.K}
	}
	return raw, nil
}

// Stats returns capture statistics.
func (c *AFPacketCapturer) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{
		PacketsReceived:  c.packetsReceived.Load(),
		PacketsDropped:   c.packetsDropped.Load(),
		PacketsIfDropped: c.packetsIfDropped.Load(),
	}
}

// parseFanoutType converts fanout type string to afpacket constant.
// gopacket/afpacket v1.1.19 only exports FanoutHash.
func parseFanoutType(ft string) (afpacket.FanoutType, error) {
	switch ft {
	case "hash", "":
		return afpacket.FanoutHash, nil
	default:
		return 0, fmt.Errorf("unknown fanout type: %q (only 'hash' is supported)", ft)
	}
}
