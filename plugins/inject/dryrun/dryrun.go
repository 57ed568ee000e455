// Package dryrun provides an injector that counts frames instead of sending them.
package dryrun

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/eapsniffer/pkg/plugin"
)

const pluginName = "dryrun"

func init() {
	plugin.RegisterInjector(pluginName, New)
}

// Config labels the injector in logs.
type Config struct {
	Label string `mapstructure:"label"`
}

// Injector discards frames. It is used for offline replay.
type Injector struct {
	config Config
	frames atomic.Uint64
	bytes  atomic.Uint64
}

func New() plugin.Injector { return &Injector{} }

func (i *Injector) Name() string { return pluginName }

func (i *Injector) Init(cfg map[string]any) error {
	return mapstructure.Decode(cfg, &i.config)
}

func (i *Injector) Start(ctx context.Context) error { return nil }

func (i *Injector) Stop(ctx context.Context) error {
	slog.Debug("dry-run injector stopped", "label", i.config.Label,
		"frames", i.frames.Load(), "bytes", i.bytes.Load())
	return nil
}

func (i *Injector) Inject(frame []byte) error {
	i.frames.Add(1)
	i.bytes.Add(uint64(len(frame)))
	return nil
}

// Frames returns the number of frames that would have been sent.
func (i *Injector) Frames() uint64 { return i.frames.Load() }
