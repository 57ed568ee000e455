// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/eapsniffer/internal/core"
)

// GlobalConfig represents the top-level static configuration.
// Maps to the `eapsniffer:` root key in YAML.
type GlobalConfig struct {
	App         AppConfig         `mapstructure:"app" yaml:"app"`
	Radius      RadiusConfig      `mapstructure:"radius" yaml:"radius"`
	Correlation CorrelationConfig `mapstructure:"correlation" yaml:"correlation"`
	Dataplane   DataplaneConfig   `mapstructure:"dataplane" yaml:"dataplane"`
	Events      EventsConfig      `mapstructure:"events" yaml:"events"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Control     ControlConfig     `mapstructure:"control" yaml:"control"`
}

// ─── Application ───

// AppConfig identifies the application to the packet service.
type AppConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	SomeProperty string `mapstructure:"some_property" yaml:"some_property"` // advisory, hot-reloadable
}

// ─── RADIUS ───

// RadiusConfig locates the RADIUS server and the authenticator.
type RadiusConfig struct {
	AuthPort                  int    `mapstructure:"auth_port" yaml:"auth_port"`
	ServerConnectPoint        string `mapstructure:"server_connect_point" yaml:"server_connect_point"`
	AuthenticatorConnectPoint string `mapstructure:"authenticator_connect_point" yaml:"authenticator_connect_point"`
}

// ServerPoint returns the parsed server connect point. Valid after validation.
func (r RadiusConfig) ServerPoint() core.ConnectPoint {
	cp, _ := core.ParseConnectPoint(r.ServerConnectPoint)
	return cp
}

// AuthenticatorPoint returns the parsed authenticator connect point. Valid after validation.
func (r RadiusConfig) AuthenticatorPoint() core.ConnectPoint {
	cp, _ := core.ParseConnectPoint(r.AuthenticatorConnectPoint)
	return cp
}

// ─── Correlation ───

// CorrelationConfig bounds the lifetime of pending requests.
type CorrelationConfig struct {
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// ─── Dataplane ───

// DataplaneConfig controls packet processing and the local NIC bindings.
type DataplaneConfig struct {
	ProcessorPriority int           `mapstructure:"processor_priority" yaml:"processor_priority"`
	InterceptPriority string        `mapstructure:"intercept_priority" yaml:"intercept_priority"` // low | reactive | control
	QueueSize         int           `mapstructure:"queue_size" yaml:"queue_size"`                 // per-pipeline capture buffer
	EmitQueueSize     int           `mapstructure:"emit_queue_size" yaml:"emit_queue_size"`
	EchoWindow        time.Duration `mapstructure:"echo_window" yaml:"echo_window"` // how long an emitted frame may come back on its own link
	Capture           CaptureConfig `mapstructure:"capture" yaml:"capture"`         // defaults for every port
	Ports             []PortConfig  `mapstructure:"ports" yaml:"ports"`
}

// CaptureConfig contains capture plugin configuration.
type CaptureConfig struct {
	Name        string         `mapstructure:"name" yaml:"name,omitempty"` // afpacket / pcapfile
	BPFFilter   string         `mapstructure:"bpf_filter" yaml:"bpf_filter,omitempty"`
	SnapLen     int            `mapstructure:"snap_len" yaml:"snap_len,omitempty"`
	BlockSize   int            `mapstructure:"block_size" yaml:"block_size,omitempty"`
	NumBlocks   int            `mapstructure:"num_blocks" yaml:"num_blocks,omitempty"`
	Promiscuous *bool          `mapstructure:"promiscuous" yaml:"promiscuous,omitempty"`
	Options     map[string]any `mapstructure:"options" yaml:"options,omitempty"` // plugin-specific
}

// InjectConfig contains injector plugin configuration.
type InjectConfig struct {
	Name    string         `mapstructure:"name" yaml:"name,omitempty"` // pcap / dryrun
	Options map[string]any `mapstructure:"options" yaml:"options,omitempty"`
}

// PortConfig binds a connect point to a local interface.
type PortConfig struct {
	ConnectPoint string        `mapstructure:"connect_point" yaml:"connect_point"`
	Interface    string        `mapstructure:"interface" yaml:"interface"`
	Capture      CaptureConfig `mapstructure:"capture" yaml:"capture,omitempty"`
	Inject       InjectConfig  `mapstructure:"inject" yaml:"inject,omitempty"`
	NoCapture    bool          `mapstructure:"no_capture" yaml:"no_capture,omitempty"` // inject only
}

// ─── Events ───

// EventsConfig configures authentication event export.
type EventsConfig struct {
	QueueSize    int              `mapstructure:"queue_size" yaml:"queue_size"`
	BatchSize    int              `mapstructure:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration    `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	Reporters    []ReporterConfig `mapstructure:"reporters" yaml:"reporters"`
}

// ReporterConfig contains reporter plugin configuration.
type ReporterConfig struct {
	Type    string         `mapstructure:"type" yaml:"type"`
	Options map[string]any `mapstructure:"options" yaml:"options,omitempty"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format string        `mapstructure:"format" yaml:"format"` // json / text
	File   FileLogConfig `mapstructure:"file" yaml:"file"`
}

// FileLogConfig configures the rotating log file.
type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ─── Control Plane ───

// ControlConfig contains local control settings.
type ControlConfig struct {
	PIDFile string `mapstructure:"pid_file" yaml:"pid_file"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `eapsniffer: ...`.
type configRoot struct {
	EAPSniffer GlobalConfig `mapstructure:"eapsniffer"`
}

// Load loads configuration from file.
// The YAML file uses `eapsniffer:` as root key; env vars map through the key replacer
// (e.g., key "eapsniffer.log.level" → env "EAPSNIFFER_LOG_LEVEL").
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.EAPSniffer

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "eapsniffer." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("eapsniffer.app.name", "nctu.winlab.eapsniffer")
	v.SetDefault("eapsniffer.app.some_property", "Some Default String Value")

	v.SetDefault("eapsniffer.radius.auth_port", 1812)

	v.SetDefault("eapsniffer.correlation.ttl", "30s")
	v.SetDefault("eapsniffer.correlation.cleanup_interval", "10s")

	v.SetDefault("eapsniffer.dataplane.processor_priority", 2)
	v.SetDefault("eapsniffer.dataplane.intercept_priority", "reactive")
	v.SetDefault("eapsniffer.dataplane.queue_size", 1024)
	v.SetDefault("eapsniffer.dataplane.emit_queue_size", 4096)
	v.SetDefault("eapsniffer.dataplane.echo_window", "2s")
	v.SetDefault("eapsniffer.dataplane.capture.name", "afpacket")

	v.SetDefault("eapsniffer.events.queue_size", 1024)
	v.SetDefault("eapsniffer.events.batch_size", 100)
	v.SetDefault("eapsniffer.events.batch_timeout", "1s")

	v.SetDefault("eapsniffer.metrics.enabled", true)
	v.SetDefault("eapsniffer.metrics.listen", ":9091")
	v.SetDefault("eapsniffer.metrics.path", "/metrics")

	v.SetDefault("eapsniffer.log.level", "info")
	v.SetDefault("eapsniffer.log.format", "json")
	v.SetDefault("eapsniffer.log.file.enabled", false)
	v.SetDefault("eapsniffer.log.file.path", "/var/log/eapsniffer/eapsniffer.log")
	v.SetDefault("eapsniffer.log.file.max_size_mb", 100)
	v.SetDefault("eapsniffer.log.file.max_age_days", 30)
	v.SetDefault("eapsniffer.log.file.max_backups", 5)
	v.SetDefault("eapsniffer.log.file.compress", true)

	v.SetDefault("eapsniffer.control.pid_file", "/var/run/eapsniffer.pid")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
// Every validation failure wraps core.ErrConfigInvalid.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return invalid("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return invalid("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return invalid("log.file.path is required when log.file.enabled=true")
	}

	// ── RADIUS ──
	if cfg.Radius.AuthPort <= 0 || cfg.Radius.AuthPort > 65535 {
		return invalid("radius.auth_port out of range: %d", cfg.Radius.AuthPort)
	}
	server, err := core.ParseConnectPoint(cfg.Radius.ServerConnectPoint)
	if err != nil {
		return invalid("radius.server_connect_point: %v", err)
	}
	authenticator, err := core.ParseConnectPoint(cfg.Radius.AuthenticatorConnectPoint)
	if err != nil {
		return invalid("radius.authenticator_connect_point: %v", err)
	}
	if server == authenticator {
		return invalid("radius server and authenticator must be distinct connect points (%s)", server)
	}

	// ── Correlation ──
	if cfg.Correlation.TTL <= 0 {
		return invalid("correlation.ttl must be positive, got %s", cfg.Correlation.TTL)
	}
	if cfg.Correlation.CleanupInterval <= 0 {
		cfg.Correlation.CleanupInterval = cfg.Correlation.TTL
	}

	// ── Dataplane ──
	if cfg.Dataplane.ProcessorPriority < 0 {
		return invalid("dataplane.processor_priority must not be negative")
	}
	switch cfg.Dataplane.InterceptPriority {
	case "low", "reactive", "control":
	default:
		return invalid("invalid dataplane.intercept_priority: %q (must be low/reactive/control)", cfg.Dataplane.InterceptPriority)
	}
	if cfg.Dataplane.QueueSize <= 0 {
		cfg.Dataplane.QueueSize = 1024
	}
	if cfg.Dataplane.EmitQueueSize <= 0 {
		cfg.Dataplane.EmitQueueSize = 4096
	}
	if cfg.Dataplane.EchoWindow <= 0 {
		cfg.Dataplane.EchoWindow = 2 * time.Second
	}
	if cfg.Dataplane.Capture.BPFFilter == "" {
		// Requests to and responses from the port, received frames only:
		// every capturing NIC also carries what the injectors write.
		cfg.Dataplane.Capture.BPFFilter = fmt.Sprintf("inbound and udp port %d", cfg.Radius.AuthPort)
	}
	if err := cfg.validatePorts(server, authenticator); err != nil {
		return err
	}

	// ── Events ──
	if cfg.Events.QueueSize <= 0 {
		cfg.Events.QueueSize = 1024
	}
	if cfg.Events.BatchSize <= 0 {
		cfg.Events.BatchSize = 100
	}
	if cfg.Events.BatchTimeout <= 0 {
		cfg.Events.BatchTimeout = time.Second
	}
	for i, r := range cfg.Events.Reporters {
		if r.Type == "" {
			return invalid("events.reporters[%d]: type is required", i)
		}
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return invalid("metrics.listen is required when metrics.enabled=true")
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return invalid("metrics.path must start with '/': %q", cfg.Metrics.Path)
		}
	}

	return nil
}

// validatePorts checks the NIC bindings. Both RADIUS connect points need a
// binding so that frames can be re-emitted towards them.
func (cfg *GlobalConfig) validatePorts(server, authenticator core.ConnectPoint) error {
	seen := make(map[core.ConnectPoint]bool, len(cfg.Dataplane.Ports))
	for i := range cfg.Dataplane.Ports {
		p := &cfg.Dataplane.Ports[i]
		cp, err := core.ParseConnectPoint(p.ConnectPoint)
		if err != nil {
			return invalid("dataplane.ports[%d].connect_point: %v", i, err)
		}
		if seen[cp] {
			return invalid("dataplane.ports[%d]: duplicate connect point %s", i, cp)
		}
		seen[cp] = true
		if p.Interface == "" {
			return invalid("dataplane.ports[%d].interface is required", i)
		}
		if p.Inject.Name == "" {
			p.Inject.Name = "pcap"
		}
	}
	for _, cp := range []core.ConnectPoint{server, authenticator} {
		if !seen[cp] {
			return invalid("no dataplane port bound to connect point %s", cp)
		}
	}
	return nil
}

// PortCapture merges the dataplane-wide capture defaults into a port's
// capture settings and renders them as plugin options.
func (cfg *GlobalConfig) PortCapture(p PortConfig) (string, map[string]any) {
	base := cfg.Dataplane.Capture
	c := p.Capture

	name := c.Name
	if name == "" {
		name = base.Name
	}

	opts := make(map[string]any, len(base.Options)+len(c.Options)+6)
	for k, v := range base.Options {
		opts[k] = v
	}
	for k, v := range c.Options {
		opts[k] = v
	}
	opts["interface"] = p.Interface

	setStr := func(key, own, dflt string) {
		if own != "" {
			opts[key] = own
		} else if dflt != "" {
			opts[key] = dflt
		}
	}
	setInt := func(key string, own, dflt int) {
		if own > 0 {
			opts[key] = own
		} else if dflt > 0 {
			opts[key] = dflt
		}
	}
	setStr("bpf_filter", c.BPFFilter, base.BPFFilter)
	setInt("snap_len", c.SnapLen, base.SnapLen)
	setInt("block_size", c.BlockSize, base.BlockSize)
	setInt("num_blocks", c.NumBlocks, base.NumBlocks)
	switch {
	case c.Promiscuous != nil:
		opts["promiscuous"] = *c.Promiscuous
	case base.Promiscuous != nil:
		opts["promiscuous"] = *base.Promiscuous
	}
	return name, opts
}

// PortInject renders a port's injector settings as plugin options.
func (cfg *GlobalConfig) PortInject(p PortConfig) (string, map[string]any) {
	opts := make(map[string]any, len(p.Inject.Options)+1)
	for k, v := range p.Inject.Options {
		opts[k] = v
	}
	if _, ok := opts["interface"]; !ok {
		opts["interface"] = p.Interface
	}
	return p.Inject.Name, opts
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
