// Package radius classifies captured frames carrying RADIUS authentication
// traffic and extracts the authenticating party from Access-Requests.
//
// Everything in this package is pure: a Classifier holds only its port and
// may be shared by any number of capture pipelines.
package radius

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/eapsniffer/internal/core"
)

// DefaultAuthPort is the IANA RADIUS authentication port.
const DefaultAuthPort uint16 = 1812

// Class is the coarse verdict for a frame.
type Class uint8

const (
	Ignore Class = iota
	AuthRequest
	AuthResponse
)

func (c Class) String() string {
	switch c {
	case AuthRequest:
		return "request"
	case AuthResponse:
		return "response"
	default:
		return "ignore"
	}
}

// Outcome is the closed set of RADIUS codes the core acts on.
// Other covers every code that is neither a request nor a final answer
// (Access-Challenge, accounting, status) and never changes correlation state.
type Outcome uint8

const (
	Other Outcome = iota
	Request
	Accept
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Request:
		return "request"
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "other"
	}
}

// OutcomeOf maps a wire code onto the closed outcome set.
func OutcomeOf(code layers.RADIUSCode) Outcome {
	switch code {
	case layers.RADIUSCodeAccessRequest:
		return Request
	case layers.RADIUSCodeAccessAccept:
		return Accept
	case layers.RADIUSCodeAccessReject:
		return Reject
	default:
		return Other
	}
}

// Message is a classified frame. Only Class is meaningful when Class is Ignore.
type Message struct {
	Class      Class
	Outcome    Outcome
	Code       layers.RADIUSCode
	Identifier uint8

	// Client is the authenticator side (the end not bound to the auth port),
	// Server the RADIUS server side.
	Client netip.AddrPort
	Server netip.AddrPort

	SrcPort uint16
	DstPort uint16

	Layer *layers.RADIUS
}

// Classifier recognises RADIUS authentication datagrams on a given port.
type Classifier struct {
	AuthPort uint16
}

// NewClassifier returns a classifier for port, falling back to 1812 on zero.
func NewClassifier(port uint16) Classifier {
	if port == 0 {
		port = DefaultAuthPort
	}
	return Classifier{AuthPort: port}
}

// Classify never fails: anything that is not a well-formed RADIUS message
// over IPv4/UDP on the auth port is Ignore.
func (c Classifier) Classify(pkt *core.DecodedPacket) Message {
	if pkt == nil || !pkt.IsIPv4UDP() {
		return Message{Class: Ignore}
	}

	src, dst := pkt.Transport.SrcPort, pkt.Transport.DstPort
	if src != c.AuthPort && dst != c.AuthPort {
		return Message{Class: Ignore}
	}

	layer := &layers.RADIUS{}
	if err := layer.DecodeFromBytes(pkt.Payload, gopacket.NilDecodeFeedback); err != nil {
		return Message{Class: Ignore}
	}

	msg := Message{
		Outcome:    OutcomeOf(layer.Code),
		Code:       layer.Code,
		Identifier: uint8(layer.Identifier),
		SrcPort:    src,
		DstPort:    dst,
		Layer:      layer,
	}

	srcAP := netip.AddrPortFrom(pkt.IP.SrcIP, src)
	dstAP := netip.AddrPortFrom(pkt.IP.DstIP, dst)

	if msg.Outcome == Request {
		msg.Class = AuthRequest
		msg.Client, msg.Server = srcAP, dstAP
	} else {
		msg.Class = AuthResponse
		msg.Client, msg.Server = dstAP, srcAP
	}
	return msg
}
