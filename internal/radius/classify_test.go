package radius

import (
	"net/netip"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/internal/core/decoder"
	"firestige.xyz/eapsniffer/internal/testutil/frames"
)

func decode(t *testing.T, frame []byte) *core.DecodedPacket {
	t.Helper()
	pkt, err := decoder.NewStandardDecoder().Decode(core.RawPacket{Data: frame, Timestamp: time.Now()})
	require.NoError(t, err)
	return &pkt
}

func TestClassifyRequest(t *testing.T) {
	c := NewClassifier(0)
	msg := c.Classify(decode(t, frames.Request(9, frames.UserName("alice"))))

	assert.Equal(t, AuthRequest, msg.Class)
	assert.Equal(t, Request, msg.Outcome)
	assert.Equal(t, layers.RADIUSCodeAccessRequest, msg.Code)
	assert.Equal(t, uint8(9), msg.Identifier)
	assert.Equal(t, netip.MustParseAddrPort("192.168.44.10:40000"), msg.Client)
	assert.Equal(t, netip.MustParseAddrPort("192.168.44.128:1812"), msg.Server)
	assert.Equal(t, uint16(40000), msg.SrcPort)
	assert.Equal(t, uint16(1812), msg.DstPort)
	require.NotNil(t, msg.Layer)
}

func TestClassifyResponses(t *testing.T) {
	tests := []struct {
		name    string
		code    uint8
		outcome Outcome
	}{
		{"accept", frames.CodeAccessAccept, Accept},
		{"reject", frames.CodeAccessReject, Reject},
		{"challenge", frames.CodeAccessChallenge, Other},
		{"accounting response", 5, Other},
	}

	c := NewClassifier(1812)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := c.Classify(decode(t, frames.Response(tt.code, 77)))

			assert.Equal(t, AuthResponse, msg.Class)
			assert.Equal(t, tt.outcome, msg.Outcome)
			assert.Equal(t, uint8(77), msg.Identifier)
			// Response endpoints are mirrored so they key like the request.
			assert.Equal(t, netip.MustParseAddrPort("192.168.44.10:40000"), msg.Client)
			assert.Equal(t, netip.MustParseAddrPort("192.168.44.128:1812"), msg.Server)
		})
	}
}

func TestClassifyIgnore(t *testing.T) {
	other := frames.Endpoint{MAC: "02:00:00:00:00:01", IP: "10.0.0.1", Port: 5353}
	radius := frames.Radius(frames.CodeAccessRequest, 1)

	tests := []struct {
		name string
		pkt  *core.DecodedPacket
	}{
		{"nil", nil},
		{"tcp on auth port", decode(t, frames.TCP(frames.Authenticator, frames.Server, radius))},
		{"udp on unrelated port", decode(t, frames.UDP(frames.Authenticator, other, radius))},
		{"truncated radius", decode(t, frames.UDP(frames.Authenticator, frames.Server, radius[:10]))},
		{"empty payload", decode(t, frames.UDP(frames.Authenticator, frames.Server, nil))},
	}

	c := NewClassifier(1812)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Ignore, c.Classify(tt.pkt).Class)
		})
	}
}

func TestClassifyCustomPort(t *testing.T) {
	alt := frames.Server
	alt.Port = 11812

	c := NewClassifier(11812)
	msg := c.Classify(decode(t, frames.UDP(frames.Authenticator, alt, frames.Radius(frames.CodeAccessRequest, 3))))
	assert.Equal(t, AuthRequest, msg.Class)

	// The default port is no longer special.
	msg = c.Classify(decode(t, frames.Request(3)))
	assert.Equal(t, Ignore, msg.Class)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, Request, OutcomeOf(layers.RADIUSCodeAccessRequest))
	assert.Equal(t, Accept, OutcomeOf(layers.RADIUSCodeAccessAccept))
	assert.Equal(t, Reject, OutcomeOf(layers.RADIUSCodeAccessReject))
	assert.Equal(t, Other, OutcomeOf(layers.RADIUSCodeAccessChallenge))
	assert.Equal(t, "other", Other.String())
	assert.Equal(t, "response", AuthResponse.String())
}
