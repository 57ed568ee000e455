package radius

import (
	"net"
	"strings"

	"github.com/google/gopacket/layers"

	"firestige.xyz/eapsniffer/internal/core"
)

const (
	attrUserName         = layers.RADIUSAttributeType(1)
	attrCallingStationID = layers.RADIUSAttributeType(31)
)

// Attribute returns the value of the first attribute of type t.
func (m Message) Attribute(t layers.RADIUSAttributeType) ([]byte, bool) {
	if m.Layer == nil {
		return nil, false
	}
	for _, a := range m.Layer.Attributes {
		if a.Type == t {
			return a.Value, true
		}
	}
	return nil, false
}

// ExtractParty builds the Party described by an Access-Request.
// Missing or unparseable attributes leave the matching field empty.
func ExtractParty(m Message) core.Party {
	var name string
	if v, ok := m.Attribute(attrUserName); ok {
		name = string(v)
	}

	var mac net.HardwareAddr
	if v, ok := m.Attribute(attrCallingStationID); ok {
		mac, _ = ParseMAC(string(v))
	}

	return core.NewParty(mac, name)
}

// ParseMAC parses a Calling-Station-Id after normalising it.
func ParseMAC(s string) (net.HardwareAddr, error) {
	return net.ParseMAC(NormalizeMAC(s))
}

// NormalizeMAC rewrites a Calling-Station-Id into colon-delimited form.
// "aa-bb-cc-dd-ee-ff" and "aabbccddeeff" both become "aa:bb:cc:dd:ee:ff";
// anything else is returned with dashes replaced and surrounding space trimmed.
func NormalizeMAC(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", ":")

	if len(s) == 12 && isHex(s) {
		var b strings.Builder
		b.Grow(17)
		for i := 0; i < 12; i += 2 {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(s[i : i+2])
		}
		return b.String()
	}
	return s
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
