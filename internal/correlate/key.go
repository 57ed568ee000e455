package correlate

import (
	"net/netip"
	"strconv"

	"firestige.xyz/eapsniffer/internal/radius"
)

// Key identifies one in-flight RADIUS transaction: the authenticator's
// address and port, the server it talks to, and the one-byte identifier.
type Key struct {
	Client netip.AddrPort
	Server netip.AddrPort
	ID     uint8
}

// KeyOf builds the key for a classified message. Requests and responses of
// the same transaction yield equal keys.
func KeyOf(m radius.Message) Key {
	return Key{Client: m.Client, Server: m.Server, ID: m.Identifier}
}

func (k Key) String() string {
	return k.Client.String() + ">" + k.Server.String() + "#" + strconv.Itoa(int(k.ID))
}
