// Package pcapfile replays frames from a pcap or pcapng file.
package pcapfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const pluginName = "pcapfile"

// pcapng section header block type, stored in file byte order but palindromic.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

func init() {
	plugin.RegisterCapturer(pluginName, New)
}

// Config configures the file replay.
type Config struct {
	Path string `mapstructure:"path"`
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Capturer reads every frame of a capture file once, in order.
// Unlike live capture it never drops: sends block until the consumer is ready.
type Capturer struct {
	config Config

	file   *os.File
	reader packetReader

	received atomic.Uint64
}

// New returns an unconfigured file capturer.
func New() plugin.Capturer {
	return &Capturer{}
}

func (c *Capturer) Name() string { return pluginName }

func (c *Capturer) Init(cfg map[string]any) error {
	c.config = Config{}
	if err := mapstructure.Decode(cfg, &c.config); err != nil {
		return fmt.Errorf("pcapfile: %w", err)
	}
	if c.config.Path == "" {
		return fmt.Errorf("pcapfile: path is required")
	}
	return nil
}

// Start opens the file and detects its format.
func (c *Capturer) Start(ctx context.Context) error {
	f, err := os.Open(c.config.Path)
	if err != nil {
		return fmt.Errorf("pcapfile: open %s: %w", c.config.Path, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		f.Close()
		return fmt.Errorf("pcapfile: read header of %s: %w", c.config.Path, err)
	}

	var r packetReader
	if string(magic) == string(ngMagic) {
		r, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		r, err = pcapgo.NewReader(br)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("pcapfile: %s: %w", c.config.Path, err)
	}

	c.file = f
	c.reader = r
	slog.Info("pcap file opened", "path", c.config.Path)
	return nil
}

func (c *Capturer) Stop(ctx context.Context) error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	c.reader = nil
	return err
}

// Capture returns nil at end of file.
func (c *Capturer) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	if c.reader == nil {
		return fmt.Errorf("pcapfile: %w", core.ErrNotActive)
	}

	for {
		data, ci, err := c.reader.ReadPacketData()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			slog.Info("pcap file exhausted", "path", c.config.Path, "packets", c.received.Load())
			return nil
		}
		if err != nil {
			return fmt.Errorf("pcapfile: read %s: %w", c.config.Path, err)
		}

		c.received.Add(1)
		raw := core.RawPacket{
			Data:           data,
			Timestamp:      ci.Timestamp,
			CaptureLen:     uint32(ci.CaptureLength),
			OrigLen:        uint32(ci.Length),
			InterfaceIndex: ci.InterfaceIndex,
		}

		select {
		case output <- raw:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Capturer) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{PacketsReceived: c.received.Load()}
}
