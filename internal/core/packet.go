// Package core defines core data structures with zero external dependencies.
package core

import (
	"time"
)

// RawPacket is a frame as read from a capture source. Data is owned by the packet.
type RawPacket struct {
	Data           []byte    // Raw frame data
	Timestamp      time.Time // Capture timestamp (kernel timestamp preferred)
	CaptureLen     uint32    // Actual captured length
	OrigLen        uint32    // Original frame length
	InterfaceIndex int       // Network interface index
}

// DecodedPacket is the result of L2-L4 protocol stack decoding.
type DecodedPacket struct {
	Timestamp  time.Time
	Ethernet   EthernetHeader
	IP         IPHeader
	Transport  TransportHeader
	Payload    []byte // Transport payload, zero-copy slice
	CaptureLen uint32
	OrigLen    uint32
}

// IsIPv4UDP reports whether the packet is a UDP datagram carried over IPv4.
func (p *DecodedPacket) IsIPv4UDP() bool {
	return p.Ethernet.EtherType == EtherTypeIPv4 &&
		p.IP.Version == 4 &&
		p.IP.Protocol == ProtocolUDP &&
		p.Transport.Protocol == ProtocolUDP
}
