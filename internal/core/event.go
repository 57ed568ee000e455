package core

import (
	"net/netip"
	"time"
)

// AuthResult classifies a resolved authentication outcome.
type AuthResult string

const (
	ResultAuthorized        AuthResult = "authorized"
	ResultRejected          AuthResult = "rejected"
	ResultUnknownAuthorized AuthResult = "unknown_authorized"
	ResultUnknownRejected   AuthResult = "unknown_rejected"
)

// Known reports whether the originating request was matched.
func (r AuthResult) Known() bool {
	return r == ResultAuthorized || r == ResultRejected
}

// Accepted reports whether the server granted access.
func (r AuthResult) Accepted() bool {
	return r == ResultAuthorized || r == ResultUnknownAuthorized
}

// AuthEvent is the observability record produced when an outcome is resolved.
// Party is the zero Party when the request was never seen.
type AuthEvent struct {
	ID         string
	Timestamp  time.Time
	Result     AuthResult
	Party      Party
	Identifier uint8
	Client     netip.AddrPort // authenticator side
	Server     netip.AddrPort // authentication server side
}
