// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers match them with errors.Is.
var (
	// Packet decoding errors
	ErrPacketTooShort   = errors.New("eapsniffer: packet too short")
	ErrUnsupportedProto = errors.New("eapsniffer: unsupported protocol")
	ErrNotRadius        = errors.New("eapsniffer: not a radius message")

	// Forwarding errors
	ErrInvalidConnectPoint = errors.New("eapsniffer: invalid connect point")
	ErrNoBinding           = errors.New("eapsniffer: no interface bound to connect point")
	ErrEmitQueueFull       = errors.New("eapsniffer: emit queue full")
	ErrClosed              = errors.New("eapsniffer: dataplane closed")

	// Plugin errors
	ErrPluginNotFound  = errors.New("eapsniffer: plugin not found")
	ErrUnknownReporter = errors.New("eapsniffer: unknown reporter type")
	ErrUnknownCapturer = errors.New("eapsniffer: unknown capturer type")
	ErrUnknownInjector = errors.New("eapsniffer: unknown injector type")

	// Configuration errors
	ErrConfigInvalid = errors.New("eapsniffer: invalid configuration")

	// Lifecycle errors
	ErrNotActive     = errors.New("eapsniffer: component not active")
	ErrAlreadyActive = errors.New("eapsniffer: component already active")
)
