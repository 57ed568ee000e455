// Package forward decides where a RADIUS frame is re-emitted.
package forward

import (
	"fmt"

	"firestige.xyz/eapsniffer/internal/core"
)

// Direction is the travel direction of a frame relative to the RADIUS server.
type Direction uint8

const (
	// ToAuthenticator is server -> access point (source port is the auth port).
	ToAuthenticator Direction = iota + 1
	// ToServer is access point -> server (destination port is the auth port).
	ToServer
)

func (d Direction) String() string {
	switch d {
	case ToAuthenticator:
		return "to_authenticator"
	case ToServer:
		return "to_server"
	default:
		return "none"
	}
}

// Decision is the egress chosen for one frame.
type Decision struct {
	Direction Direction
	Target    core.ConnectPoint
}

// Router maps transport ports onto fixed attachment points.
type Router struct {
	authPort      uint16
	server        core.ConnectPoint
	authenticator core.ConnectPoint
}

// NewRouter validates its destinations.
func NewRouter(authPort uint16, server, authenticator core.ConnectPoint) (*Router, error) {
	if authPort == 0 {
		return nil, fmt.Errorf("%w: auth port must be non-zero", core.ErrConfigInvalid)
	}
	if server.IsZero() || server.DeviceID == "" {
		return nil, fmt.Errorf("%w: server connect point is empty", core.ErrInvalidConnectPoint)
	}
	if authenticator.IsZero() || authenticator.DeviceID == "" {
		return nil, fmt.Errorf("%w: authenticator connect point is empty", core.ErrInvalidConnectPoint)
	}
	return &Router{authPort: authPort, server: server, authenticator: authenticator}, nil
}

// Route picks the egress for a frame travelling srcPort -> dstPort.
// The source-port rule wins when both ports equal the auth port.
func (r *Router) Route(srcPort, dstPort uint16) (Decision, bool) {
	switch {
	case srcPort == r.authPort:
		return Decision{Direction: ToAuthenticator, Target: r.authenticator}, true
	case dstPort == r.authPort:
		return Decision{Direction: ToServer, Target: r.server}, true
	default:
		return Decision{}, false
	}
}

// Server returns the server-side attachment point.
func (r *Router) Server() core.ConnectPoint { return r.server }

// Authenticator returns the authenticator-side attachment point.
func (r *Router) Authenticator() core.ConnectPoint { return r.authenticator }
