package report

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"firestige.xyz/eapsniffer/internal/core"
)

// Record is the wire form of an AuthEvent shared by reporters.
type Record struct {
	ID         string `json:"id"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
	Result     string `json:"result"`
	Known      bool   `json:"known"`
	Accepted   bool   `json:"accepted"`
	User       string `json:"user,omitempty"`
	MAC        string `json:"mac,omitempty"`
	Identifier int    `json:"identifier"`
	Client     string `json:"client"`
	Server     string `json:"server"`
}

// NewRecord flattens ev.
func NewRecord(ev core.AuthEvent) Record {
	return Record{
		ID:         ev.ID,
		Timestamp:  ev.Timestamp.UnixMilli(),
		Result:     string(ev.Result),
		Known:      ev.Result.Known(),
		Accepted:   ev.Result.Accepted(),
		User:       ev.Party.Name(),
		MAC:        ev.Party.MAC(),
		Identifier: int(ev.Identifier),
		Client:     ev.Client.String(),
		Server:     ev.Server.String(),
	}
}

// Time returns the record timestamp.
func (r Record) Time() time.Time { return time.UnixMilli(r.Timestamp) }

// JSON encodes the record as a single JSON object.
func (r Record) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// Struct converts the record into a protobuf Struct.
func (r Record) Struct() (*structpb.Struct, error) {
	fields := map[string]any{
		"id":         r.ID,
		"timestamp":  r.Timestamp,
		"result":     r.Result,
		"known":      r.Known,
		"accepted":   r.Accepted,
		"identifier": r.Identifier,
		"client":     r.Client,
		"server":     r.Server,
	}
	if r.User != "" {
		fields["user"] = r.User
	}
	if r.MAC != "" {
		fields["mac"] = r.MAC
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return s, nil
}

// Proto encodes the record as a serialized google.protobuf.Struct.
func (r Record) Proto() ([]byte, error) {
	s, err := r.Struct()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}
