package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/wgtunnel/limits"
)

// Kind identifies the type of an envelope on the wire.
type Kind byte

const (
	// KindHandshake marks handshake envelopes. They are framed but never
	// negotiated by this transport.
	KindHandshake Kind = 1
	// KindData marks data envelopes. A data envelope with an empty payload
	// is a keepalive.
	KindData Kind = 4
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Header field offsets.
const (
	offsetKind      = 0
	offsetSessionID = 4
	offsetCounter   = 8
)

// Envelope is the framed unit exchanged over UDP.
type Envelope struct {
	Kind      Kind
	SessionID uint32
	Counter   uint64
	Payload   []byte
}

// IsKeepalive reports whether the envelope is a zero-length data envelope.
func (e *Envelope) IsKeepalive() bool {
	return e.Kind == KindData && len(e.Payload) == 0
}

// Encode frames payload behind a 16-byte header.
//
// Format: [kind (1)][reserved (3)][session id (4, BE)][counter (8, BE)][payload]
func Encode(kind Kind, sessionID uint32, counter uint64, payload []byte, maxDatagram int) ([]byte, error) {
	if err := limits.ValidateDatagramSize(len(payload), maxDatagram); err != nil {
		return nil, err
	}

	result := make([]byte, limits.HeaderSize+len(payload))
	result[offsetKind] = byte(kind)
	// result[1:4] stays zero
	binary.BigEndian.PutUint32(result[offsetSessionID:], sessionID)
	binary.BigEndian.PutUint64(result[offsetCounter:], counter)
	copy(result[limits.HeaderSize:], payload)

	return result, nil
}

// Decode parses a datagram into an Envelope. Reserved bytes are ignored and
// the payload is copied out of data.
func Decode(data []byte) (*Envelope, error) {
	if len(data) < limits.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrTruncated, len(data), limits.HeaderSize)
	}

	env := &Envelope{
		Kind:      Kind(data[offsetKind]),
		SessionID: binary.BigEndian.Uint32(data[offsetSessionID:]),
		Counter:   binary.BigEndian.Uint64(data[offsetCounter:]),
		Payload:   make([]byte, len(data)-limits.HeaderSize),
	}
	copy(env.Payload, data[limits.HeaderSize:])

	return env, nil
}
