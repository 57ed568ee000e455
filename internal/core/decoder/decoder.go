// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/eapsniffer/internal/core"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.DecodedPacket, error)
}

// StandardDecoder decodes Ethernet (optionally 802.1Q tagged), IPv4/IPv6 and TCP/UDP headers.
// It reuses its layer buffers between calls and must not be shared across goroutines:
// every capture pipeline owns one.
type StandardDecoder struct {
	parser *gopacket.DecodingLayerParser

	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	payload gopacket.Payload

	decoded []gopacket.LayerType
}

// NewStandardDecoder creates a decoder with its own layer parser.
func NewStandardDecoder() *StandardDecoder {
	d := &StandardDecoder{
		decoded: make([]gopacket.LayerType, 0, 8),
	}
	d.parser = gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&d.eth,
		&d.dot1q,
		&d.ip4,
		&d.ip6,
		&d.tcp,
		&d.udp,
		&d.payload,
	)
	// Application layers (RADIUS, DNS, ...) are left to the consumers of Payload.
	d.parser.IgnoreUnsupported = true
	return d
}

// Decode decodes the headers of raw. Payload and header slices alias raw.Data.
// IPv4 fragments stop at the IP layer and carry no transport header.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.DecodedPacket, error) {
	d.decoded = d.decoded[:0]

	if len(raw.Data) == 0 {
		return core.DecodedPacket{}, core.ErrPacketTooShort
	}
	if err := d.parser.DecodeLayers(raw.Data, &d.decoded); err != nil {
		return core.DecodedPacket{}, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}

	pkt := core.DecodedPacket{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	for _, layerType := range d.decoded {
		switch layerType {
		case layers.LayerTypeEthernet:
			copy(pkt.Ethernet.SrcMAC[:], d.eth.SrcMAC)
			copy(pkt.Ethernet.DstMAC[:], d.eth.DstMAC)
			pkt.Ethernet.EtherType = uint16(d.eth.EthernetType)

		case layers.LayerTypeDot1Q:
			pkt.Ethernet.VLANs = append(pkt.Ethernet.VLANs, d.dot1q.VLANIdentifier)
			pkt.Ethernet.EtherType = uint16(d.dot1q.Type)

		case layers.LayerTypeIPv4:
			pkt.IP = core.IPHeader{
				Version:  4,
				SrcIP:    addrFrom(d.ip4.SrcIP),
				DstIP:    addrFrom(d.ip4.DstIP),
				Protocol: uint8(d.ip4.Protocol),
				TTL:      d.ip4.TTL,
				TotalLen: d.ip4.Length,
			}

		case layers.LayerTypeIPv6:
			pkt.IP = core.IPHeader{
				Version:  6,
				SrcIP:    addrFrom(d.ip6.SrcIP),
				DstIP:    addrFrom(d.ip6.DstIP),
				Protocol: uint8(d.ip6.NextHeader),
				TTL:      d.ip6.HopLimit,
				TotalLen: d.ip6.Length + 40,
			}

		case layers.LayerTypeUDP:
			pkt.Transport = core.TransportHeader{
				SrcPort:  uint16(d.udp.SrcPort),
				DstPort:  uint16(d.udp.DstPort),
				Protocol: core.ProtocolUDP,
			}
			pkt.Payload = d.udp.Payload

		case layers.LayerTypeTCP:
			pkt.Transport = core.TransportHeader{
				SrcPort:  uint16(d.tcp.SrcPort),
				DstPort:  uint16(d.tcp.DstPort),
				Protocol: core.ProtocolTCP,
				TCPFlags: tcpFlags(&d.tcp),
				SeqNum:   d.tcp.Seq,
				AckNum:   d.tcp.Ack,
			}
			pkt.Payload = d.tcp.Payload
		}
	}

	if len(d.decoded) == 0 {
		return core.DecodedPacket{}, core.ErrUnsupportedProto
	}
	return pkt, nil
}

// addrFrom converts a net.IP slice into a netip.Addr, unmapping IPv4-in-IPv6 forms.
func addrFrom(ip []byte) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}

// tcpFlags packs the six classic TCP flags in wire order (URG ACK PSH RST SYN FIN).
func tcpFlags(tcp *layers.TCP) uint8 {
	var f uint8
	if tcp.FIN {
		f |= 0x01
	}
	if tcp.SYN {
		f |= 0x02
	}
	if tcp.RST {
		f |= 0x04
	}
	if tcp.PSH {
		f |= 0x08
	}
	if tcp.ACK {
		f |= 0x10
	}
	if tcp.URG {
		f |= 0x20
	}
	return f
}
