package afpacket

import (
	"testing"

	"firestige.xyz/eapsniffer/pkg/plugin"
)

func TestAFPacketCapturer_Init(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{"missing interface", map[string]any{}, true},
		{"minimal", map[string]any{"interface": "eth0"}, false},
		{"string numbers", map[string]any{"interface": "eth0", "snap_len": "1600", "num_blocks": 8}, false},
		{"fanout hash", map[string]any{"interface": "eth0", "fanout_id": 7, "fanout_type": "hash"}, false},
		{"fanout cpu", map[string]any{"interface": "eth0", "fanout_id": 7, "fanout_type": "cpu"}, true},
		{"bad snap_len", map[string]any{"interface": "eth0", "snap_len": "big"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAFPacketCapturer()
			err := c.Init(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAFPacketCapturer_Defaults(t *testing.T) {
	c := NewAFPacketCapturer().(*AFPacketCapturer)
	if err := c.Init(map[string]any{"interface": "eth0", "snap_len": "1600"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if c.config.SnapLen != 1600 {
		t.Errorf("SnapLen = %d, want 1600", c.config.SnapLen)
	}
	if c.config.BlockSize != defaultBlockSize || c.config.NumBlocks != defaultNumBlocks {
		t.Errorf("ring defaults not applied: %+v", c.config)
	}
	if !c.config.Promiscuous {
		t.Error("Promiscuous should default to true")
	}
}

func TestAFPacketCapturer_Registered(t *testing.T) {
	f, err := plugin.GetCapturerFactory(pluginName)
	if err != nil {
		t.Fatalf("afpacket not registered: %v", err)
	}
	if f().Name() != pluginName {
		t.Error("factory returned wrong capturer")
	}
}

func TestParseFanoutType(t *testing.T) {
	if _, err := parseFanoutType("hash"); err != nil {
		t.Errorf("hash: %v", err)
	}
	if _, err := parseFanoutType("lb"); err == nil {
		t.Error("lb should be rejected")
	}
}
