package packet

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/eapsniffer/internal/core"
)

func TestPriorityOrdering(t *testing.T) {
	assert.Less(t, int(Advisor(100)), int(Director(0)))
	assert.Less(t, int(Director(1)), int(Director(2)))
	assert.True(t, Director(2).IsDirector())
	assert.False(t, Advisor(2).IsDirector())
	assert.Equal(t, "director(2)", Director(2).String())
	assert.Equal(t, "advisor(7)", Advisor(7).String())
}

func TestParseInterceptPriority(t *testing.T) {
	for _, p := range []InterceptPriority{Control, Reactive, Low} {
		got, err := ParseInterceptPriority(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParseInterceptPriority("")
	assert.NoError(t, err)
	assert.Equal(t, Reactive, got)

	_, err = ParseInterceptPriority("urgent")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestSelectorMatches(t *testing.T) {
	udp4 := &core.DecodedPacket{
		Ethernet: core.EthernetHeader{EtherType: core.EtherTypeIPv4},
		IP:       core.IPHeader{Version: 4, Protocol: core.ProtocolUDP},
	}
	v6 := &core.DecodedPacket{
		Ethernet: core.EthernetHeader{EtherType: core.EtherTypeIPv6},
	}

	assert.True(t, IPv4Selector.Matches(udp4))
	assert.False(t, IPv4Selector.Matches(v6))
	assert.False(t, IPv4Selector.Matches(nil))
	assert.True(t, Selector{}.Matches(v6))
	assert.False(t, Selector{EtherType: core.EtherTypeIPv4, IPProto: core.ProtocolTCP}.Matches(udp4))
}

func TestDefaultContextBlock(t *testing.T) {
	in := InboundPacket{Receive: core.ConnectPoint{DeviceID: "of:1", Port: 1}, Data: []byte{1}}
	ctx := NewContext(time.Unix(10, 0), in)

	assert.False(t, ctx.IsHandled())
	assert.True(t, ctx.Block())
	assert.True(t, ctx.IsHandled())
	assert.False(t, ctx.Block(), "second block reports already handled")
	assert.Equal(t, in.Receive, ctx.InPacket().Receive)
	assert.Equal(t, int64(10), ctx.Time().Unix())
}
