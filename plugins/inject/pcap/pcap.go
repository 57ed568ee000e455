// Package pcap injects frames through a libpcap handle.
package pcap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

const pluginName = "pcap"

func init() {
	plugin.RegisterInjector(pluginName, New)
}

// Config selects the egress interface.
type Config struct {
	Interface string `mapstructure:"interface"`
}

type writer interface {
	WritePacketData(data []byte) error
	Close()
}

// Injector writes frames out of an interface with pcap_sendpacket.
type Injector struct {
	config Config
	open   func(iface string) (writer, error)

	mu     sync.Mutex
	handle writer
}

// New returns an injector that opens a live libpcap handle on Start.
func New() plugin.Injector {
	return &Injector{open: openLive}
}

func openLive(iface string) (writer, error) {
	// Injection only; a tiny snaplen and a short timeout keep the receive side idle.
	h, err := pcap.OpenLive(iface, 64, false, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (i *Injector) Name() string { return pluginName }

func (i *Injector) Init(cfg map[string]any) error {
	i.config = Config{}
	if err := mapstructure.Decode(cfg, &i.config); err != nil {
		return fmt.Errorf("pcap injector: %w", err)
	}
	if i.config.Interface == "" {
		return fmt.Errorf("pcap injector: interface is required")
	}
	return nil
}

func (i *Injector) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle != nil {
		return nil
	}
	h, err := i.open(i.config.Interface)
	if err != nil {
		return fmt.Errorf("pcap injector: open %s: %w", i.config.Interface, err)
	}
	i.handle = h
	slog.Info("pcap injector ready", "interface", i.config.Interface)
	return nil
}

func (i *Injector) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle != nil {
		i.handle.Close()
		i.handle = nil
	}
	return nil
}

// Inject writes frame as-is. The caller keeps ownership of frame.
func (i *Injector) Inject(frame []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle == nil {
		return fmt.Errorf("pcap injector %s: %w", i.config.Interface, core.ErrNotActive)
	}
	if err := i.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("pcap injector %s: %w", i.config.Interface, err)
	}
	return nil
}
