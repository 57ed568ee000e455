package core

import (
	"errors"
	"net"
	"testing"
)

func TestParseConnectPoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		device  string
		port    uint32
		wantErr bool
	}{
		{name: "openflow device", input: "of:000078321bdf7000/12", device: "of:000078321bdf7000", port: 12},
		{name: "surrounding spaces", input: "  of:1/3 ", device: "of:1", port: 3},
		{name: "missing port", input: "of:000078321bdf7000/", wantErr: true},
		{name: "missing device", input: "/12", wantErr: true},
		{name: "no separator", input: "of:000078321bdf7000", wantErr: true},
		{name: "non numeric port", input: "of:1/eth0", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, err := ParseConnectPoint(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				if !errors.Is(err, ErrInvalidConnectPoint) {
					t.Errorf("expected ErrInvalidConnectPoint, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cp.DeviceID != tt.device || cp.Port != tt.port {
				t.Errorf("got %+v, want device=%s port=%d", cp, tt.device, tt.port)
			}
		})
	}
}

func TestConnectPointString(t *testing.T) {
	cp := MustParseConnectPoint("of:000078321bdf7000/13")
	if cp.String() != "of:000078321bdf7000/13" {
		t.Errorf("unexpected String(): %s", cp)
	}
	if cp.IsZero() {
		t.Error("parsed connect point must not be zero")
	}
	if !(ConnectPoint{}).IsZero() {
		t.Error("zero value must report IsZero")
	}
}

func TestPartyImmutable(t *testing.T) {
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	p := NewParty(mac, "alice")

	mac[0] = 0x00
	if p.MAC() != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("party changed with caller slice: %s", p.MAC())
	}

	got := p.HardwareAddr()
	got[1] = 0x00
	if p.MAC() != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("party changed through accessor: %s", p.MAC())
	}
}

func TestPartyMissingFields(t *testing.T) {
	p := NewParty(nil, "")
	if p.HasHardwareAddr() || p.HasName() {
		t.Errorf("expected empty party, got %+v", p)
	}
	if p.MAC() != "" {
		t.Errorf("expected empty MAC string, got %q", p.MAC())
	}
	if p.HardwareAddr() != nil {
		t.Error("expected nil hardware address")
	}
	if !p.Equal(Party{}) {
		t.Error("empty party should equal zero value")
	}
}

func TestDecodedPacketIsIPv4UDP(t *testing.T) {
	pkt := DecodedPacket{
		Ethernet:  EthernetHeader{EtherType: EtherTypeIPv4},
		IP:        IPHeader{Version: 4, Protocol: ProtocolUDP},
		Transport: TransportHeader{Protocol: ProtocolUDP},
	}
	if !pkt.IsIPv4UDP() {
		t.Error("expected IPv4/UDP")
	}

	pkt.Transport.Protocol = ProtocolTCP
	pkt.IP.Protocol = ProtocolTCP
	if pkt.IsIPv4UDP() {
		t.Error("TCP must not be reported as UDP")
	}

	var zero DecodedPacket
	if zero.IsIPv4UDP() {
		t.Error("zero packet must not match")
	}
}

func TestAuthResult(t *testing.T) {
	if !ResultAuthorized.Known() || !ResultAuthorized.Accepted() {
		t.Error("authorized should be known and accepted")
	}
	if !ResultRejected.Known() || ResultRejected.Accepted() {
		t.Error("rejected should be known and not accepted")
	}
	if ResultUnknownAuthorized.Known() || !ResultUnknownAuthorized.Accepted() {
		t.Error("unknown_authorized should be unknown and accepted")
	}
	if ResultUnknownRejected.Known() || ResultUnknownRejected.Accepted() {
		t.Error("unknown_rejected should be unknown and not accepted")
	}
}
