package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"firestige.xyz/eapsniffer/internal/core"
)

const minimalConfig = `
eapsniffer:
  radius:
    server_connect_point: "of:000078321bdf7000/12"
    authenticator_connect_point: "of:000078321bdf7000/3"
  dataplane:
    ports:
      - connect_point: "of:000078321bdf7000/12"
        interface: "eth1"
      - connect_point: "of:000078321bdf7000/3"
        interface: "eth2"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.App.Name != "nctu.winlab.eapsniffer" {
		t.Errorf("Expected default app name, got %s", cfg.App.Name)
	}
	if cfg.App.SomeProperty != "Some Default String Value" {
		t.Errorf("Expected default some_property, got %q", cfg.App.SomeProperty)
	}
	if cfg.Radius.AuthPort != 1812 {
		t.Errorf("Expected auth port 1812, got %d", cfg.Radius.AuthPort)
	}
	if cfg.Correlation.TTL != 30*time.Second || cfg.Correlation.CleanupInterval != 10*time.Second {
		t.Errorf("Unexpected correlation defaults: %+v", cfg.Correlation)
	}
	if cfg.Dataplane.ProcessorPriority != 2 || cfg.Dataplane.InterceptPriority != "reactive" {
		t.Errorf("Unexpected dataplane priorities: %d/%s",
			cfg.Dataplane.ProcessorPriority, cfg.Dataplane.InterceptPriority)
	}
	if cfg.Dataplane.Capture.BPFFilter != "inbound and udp port 1812" {
		t.Errorf("Expected derived BPF filter, got %q", cfg.Dataplane.Capture.BPFFilter)
	}
	if cfg.Dataplane.EchoWindow != 2*time.Second {
		t.Errorf("Expected echo window 2s, got %v", cfg.Dataplane.EchoWindow)
	}
	if cfg.Dataplane.Ports[0].Inject.Name != "pcap" {
		t.Errorf("Expected default injector pcap, got %q", cfg.Dataplane.Ports[0].Inject.Name)
	}
	if cfg.Events.BatchTimeout != time.Second {
		t.Errorf("Expected batch timeout 1s, got %s", cfg.Events.BatchTimeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != ":9091" {
		t.Errorf("Unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.Control.PIDFile != "/var/run/eapsniffer.pid" {
		t.Errorf("Unexpected pid file %s", cfg.Control.PIDFile)
	}

	want := core.ConnectPoint{DeviceID: "of:000078321bdf7000", Port: 12}
	if cfg.Radius.ServerPoint() != want {
		t.Errorf("ServerPoint() = %v, want %v", cfg.Radius.ServerPoint(), want)
	}
	if cfg.Radius.AuthenticatorPoint().Port != 3 {
		t.Errorf("AuthenticatorPoint() = %v", cfg.Radius.AuthenticatorPoint())
	}
}

func TestLoadFullConfig(t *testing.T) {
	content := `
eapsniffer:
  app:
    some_property: "custom"
  radius:
    auth_port: 11812
    server_connect_point: "dev1/1"
    authenticator_connect_point: "dev1/2"
  correlation:
    ttl: "5s"
  dataplane:
    intercept_priority: "control"
    capture:
      snap_len: 1600
      bpf_filter: "udp"
    ports:
      - connect_point: "dev1/1"
        interface: "eth1"
        capture:
          num_blocks: 8
      - connect_point: "dev1/2"
        interface: "eth2"
        inject:
          name: "dryrun"
  events:
    reporters:
      - type: "console"
        options:
          format: "json"
      - type: "kafka"
        options:
          brokers: ["localhost:9092"]
          topic: "auth-events"
  log:
    level: "debug"
    format: "text"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.App.SomeProperty != "custom" {
		t.Errorf("Expected some_property custom, got %q", cfg.App.SomeProperty)
	}
	if cfg.Radius.AuthPort != 11812 {
		t.Errorf("Expected auth port 11812, got %d", cfg.Radius.AuthPort)
	}
	if cfg.Correlation.TTL != 5*time.Second {
		t.Errorf("Expected ttl 5s, got %s", cfg.Correlation.TTL)
	}
	if cfg.Dataplane.Capture.BPFFilter != "udp" {
		t.Errorf("Explicit BPF filter overwritten: %q", cfg.Dataplane.Capture.BPFFilter)
	}
	if len(cfg.Events.Reporters) != 2 || cfg.Events.Reporters[1].Type != "kafka" {
		t.Fatalf("Unexpected reporters: %+v", cfg.Events.Reporters)
	}
	if cfg.Events.Reporters[1].Options["topic"] != "auth-events" {
		t.Errorf("Reporter options not decoded: %+v", cfg.Events.Reporters[1].Options)
	}

	name, opts := cfg.PortCapture(cfg.Dataplane.Ports[0])
	if name != "afpacket" {
		t.Errorf("Expected capture plugin afpacket, got %s", name)
	}
	if opts["interface"] != "eth1" || opts["snap_len"] != 1600 || opts["num_blocks"] != 8 || opts["bpf_filter"] != "udp" {
		t.Errorf("Unexpected merged capture options: %v", opts)
	}

	name, opts = cfg.PortInject(cfg.Dataplane.Ports[1])
	if name != "dryrun" || opts["interface"] != "eth2" {
		t.Errorf("Unexpected inject settings: %s %v", name, opts)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EAPSNIFFER_LOG_LEVEL", "debug")
	t.Setenv("EAPSNIFFER_RADIUS_AUTH_PORT", "1645")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug from env var, got %s", cfg.Log.Level)
	}
	if cfg.Radius.AuthPort != 1645 {
		t.Errorf("Expected auth port 1645 from env var, got %d", cfg.Radius.AuthPort)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		append  string
	}{
		{name: "bad log level", append: "  log:\n    level: \"verbose\"\n"},
		{name: "bad log format", append: "  log:\n    format: \"xml\"\n"},
		{name: "file log without path", append: "  log:\n    file:\n      enabled: true\n      path: \"\"\n"},
		{name: "bad auth port", append: "  radius:\n    auth_port: 70000\n"},
		{name: "bad intercept priority", append: "  app:\n    name: x\n",
			replace: [2]string{"  dataplane:\n", "  dataplane:\n    intercept_priority: \"urgent\"\n"}},
		{name: "bad server point", replace: [2]string{`server_connect_point: "of:000078321bdf7000/12"`, `server_connect_point: "nonsense"`}},
		{name: "same points", replace: [2]string{`"of:000078321bdf7000/3"`, `"of:000078321bdf7000/12"`}},
		{name: "unbound authenticator", replace: [2]string{"connect_point: \"of:000078321bdf7000/3\"\n        interface", "connect_point: \"of:000078321bdf7000/4\"\n        interface"}},
		{name: "port without interface", replace: [2]string{`interface: "eth2"`, `interface: ""`}},
		{name: "reporter without type", append: "  events:\n    reporters:\n      - options: {}\n"},
		{name: "zero ttl", append: "  correlation:\n    ttl: \"0s\"\n"},
		{name: "metrics path", append: "  metrics:\n    path: \"metrics\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := minimalConfig
			if tt.replace[0] != "" {
				if !strings.Contains(content, tt.replace[0]) {
					t.Fatalf("fixture does not contain %q", tt.replace[0])
				}
				content = strings.Replace(content, tt.replace[0], tt.replace[1], 1)
			}
			// A second "radius:" block would be a duplicate key, so overrides
			// of radius fields are merged by replacing the section header.
			if strings.HasPrefix(tt.append, "  radius:\n") {
				content = strings.Replace(content, "  radius:\n", tt.append, 1)
			} else {
				content += tt.append
			}

			_, err := Load(writeConfig(t, content))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestPortCapturePromiscuous(t *testing.T) {
	off := false
	on := true
	cfg := &GlobalConfig{Dataplane: DataplaneConfig{Capture: CaptureConfig{Name: "afpacket", Promiscuous: &on}}}

	_, opts := cfg.PortCapture(PortConfig{Interface: "eth0"})
	if opts["promiscuous"] != true {
		t.Errorf("Expected inherited promiscuous=true, got %v", opts["promiscuous"])
	}
	_, opts = cfg.PortCapture(PortConfig{Interface: "eth0", Capture: CaptureConfig{Promiscuous: &off}})
	if opts["promiscuous"] != false {
		t.Errorf("Expected port override promiscuous=false, got %v", opts["promiscuous"])
	}
	name, opts := cfg.PortCapture(PortConfig{Interface: "eth0", Capture: CaptureConfig{Name: "pcapfile", Options: map[string]any{"path": "a.pcap"}}})
	if name != "pcapfile" || opts["path"] != "a.pcap" {
		t.Errorf("Unexpected pcapfile settings: %s %v", name, opts)
	}
}
