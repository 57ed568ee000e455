package core

import (
	"bytes"
	"net"
)

// Party is the entity attempting authentication: a hardware address and an optional
// display name. Either may be absent. A Party is immutable once constructed.
type Party struct {
	mac  net.HardwareAddr
	name string
}

// NewParty returns a Party. mac is copied; a nil mac means the address is unknown.
func NewParty(mac net.HardwareAddr, name string) Party {
	var owned net.HardwareAddr
	if len(mac) > 0 {
		owned = bytes.Clone(mac)
	}
	return Party{mac: owned, name: name}
}

// HardwareAddr returns a copy of the party's hardware address, nil when unknown.
func (p Party) HardwareAddr() net.HardwareAddr {
	if p.mac == nil {
		return nil
	}
	return bytes.Clone(p.mac)
}

// Name returns the display name, empty when unknown.
func (p Party) Name() string { return p.name }

// HasHardwareAddr reports whether the hardware address is known.
func (p Party) HasHardwareAddr() bool { return len(p.mac) > 0 }

// HasName reports whether the display name is known.
func (p Party) HasName() bool { return p.name != "" }

// MAC returns the textual hardware address, empty when unknown.
func (p Party) MAC() string {
	if len(p.mac) == 0 {
		return ""
	}
	return p.mac.String()
}

// Equal reports whether both parties carry the same address and name.
func (p Party) Equal(o Party) bool {
	return p.name == o.name && bytes.Equal(p.mac, o.mac)
}
