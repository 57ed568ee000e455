package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ConnectPoint is a network attachment point: a device identifier plus a port on that device,
// written as "<device>/<port>", e.g. "of:000078321bdf7000/12".
type ConnectPoint struct {
	DeviceID string
	Port     uint32
}

// ParseConnectPoint parses the "<device>/<port>" notation.
// The device part may itself contain ':' but never '/'.
func ParseConnectPoint(s string) (ConnectPoint, error) {
	s = strings.TrimSpace(s)
	idx := strings.LastIndexByte(s, '/')
	if idx <= 0 || idx == len(s)-1 {
		return ConnectPoint{}, fmt.Errorf("%w: %q", ErrInvalidConnectPoint, s)
	}
	port, err := strconv.ParseUint(s[idx+1:], 10, 32)
	if err != nil {
		return ConnectPoint{}, fmt.Errorf("%w: %q: bad port: %v", ErrInvalidConnectPoint, s, err)
	}
	return ConnectPoint{DeviceID: s[:idx], Port: uint32(port)}, nil
}

// MustParseConnectPoint is like ParseConnectPoint but panics on error.
func MustParseConnectPoint(s string) ConnectPoint {
	cp, err := ParseConnectPoint(s)
	if err != nil {
		panic(err)
	}
	return cp
}

// IsZero reports whether cp is the zero value.
func (cp ConnectPoint) IsZero() bool {
	return cp.DeviceID == "" && cp.Port == 0
}

func (cp ConnectPoint) String() string {
	return cp.DeviceID + "/" + strconv.FormatUint(uint64(cp.Port), 10)
}
