// Package frames builds synthetic Ethernet frames for tests.
package frames

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// RADIUS codes and attribute types used by tests.
const (
	CodeAccessRequest   uint8 = 1
	CodeAccessAccept    uint8 = 2
	CodeAccessReject    uint8 = 3
	CodeAccessChallenge uint8 = 11

	AttrUserName         uint8 = 1
	AttrCallingStationID uint8 = 31
)

// Attr is one RADIUS type-length-value attribute.
type Attr struct {
	Type  uint8
	Value []byte
}

// UserName returns a User-Name attribute.
func UserName(name string) Attr { return Attr{Type: AttrUserName, Value: []byte(name)} }

// CallingStationID returns a Calling-Station-Id attribute.
func CallingStationID(id string) Attr { return Attr{Type: AttrCallingStationID, Value: []byte(id)} }

// Radius assembles a RADIUS message with a zero authenticator.
func Radius(code, identifier uint8, attrs ...Attr) []byte {
	length := 20
	for _, a := range attrs {
		length += 2 + len(a.Value)
	}
	b := make([]byte, 20, length)
	b[0] = code
	b[1] = identifier
	binary.BigEndian.PutUint16(b[2:4], uint16(length))
	for _, a := range attrs {
		b = append(b, a.Type, uint8(2+len(a.Value)))
		b = append(b, a.Value...)
	}
	return b
}

// Endpoint is one side of a synthetic datagram.
type Endpoint struct {
	MAC  string
	IP   string
	Port uint16
}

// Default endpoints: an access point authenticator and a RADIUS server.
var (
	Authenticator = Endpoint{MAC: "00:11:22:33:44:55", IP: "192.168.44.10", Port: 40000}
	Server        = Endpoint{MAC: "66:77:88:99:aa:bb", IP: "192.168.44.128", Port: 1812}
)

// UDP serialises Ethernet/IPv4/UDP around payload.
func UDP(src, dst Endpoint, payload []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       mustMAC(src.MAC),
		DstMAC:       mustMAC(dst.MAC),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src.IP).To4(),
		DstIP:    net.ParseIP(dst.IP).To4(),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port),
		DstPort: layers.UDPPort(dst.Port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		panic(err)
	}
	return serialize(eth, ip, udp, gopacket.Payload(payload))
}

// TCP serialises Ethernet/IPv4/TCP around payload.
func TCP(src, dst Endpoint, payload []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       mustMAC(src.MAC),
		DstMAC:       mustMAC(dst.MAC),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(src.IP).To4(),
		DstIP:    net.ParseIP(dst.IP).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(src.Port),
		DstPort: layers.TCPPort(dst.Port),
		Seq:     1,
		Ack:     2,
		ACK:     true,
		PSH:     true,
		Window:  8192,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		panic(err)
	}
	return serialize(eth, ip, tcp, gopacket.Payload(payload))
}

// VLANUDP is UDP with a single 802.1Q tag.
func VLANUDP(vlan uint16, src, dst Endpoint, payload []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       mustMAC(src.MAC),
		DstMAC:       mustMAC(dst.MAC),
		EthernetType: layers.EthernetTypeDot1Q,
	}
	tag := &layers.Dot1Q{
		VLANIdentifier: vlan,
		Type:           layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src.IP).To4(),
		DstIP:    net.ParseIP(dst.IP).To4(),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port),
		DstPort: layers.UDPPort(dst.Port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		panic(err)
	}
	return serialize(eth, tag, ip, udp, gopacket.Payload(payload))
}

// Request is an Access-Request from the authenticator to the server.
func Request(identifier uint8, attrs ...Attr) []byte {
	return UDP(Authenticator, Server, Radius(CodeAccessRequest, identifier, attrs...))
}

// Response is a server reply with the given code toward the authenticator.
func Response(code, identifier uint8) []byte {
	return UDP(Server, Authenticator, Radius(code, identifier))
}

func serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func mustMAC(s string) net.HardwareAddr {
	mac, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return mac
}
