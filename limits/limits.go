// Package limits provides centralized datagram size limits for the tunnel.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed size of the envelope header:
	// kind (1) + reserved (3) + session id (4) + counter (8)
	HeaderSize = 16

	// MaxDatagramSize is the default maximum size of a framed datagram,
	// header included
	MaxDatagramSize = 2000

	// MaxUDPPayload is the largest payload carried by one IPv4 UDP datagram
	// (65535 - 20 byte IP header - 8 byte UDP header)
	MaxUDPPayload = 65507
)

var (
	// ErrDatagramTooLarge indicates a datagram exceeds the configured maximum size
	ErrDatagramTooLarge = errors.New("datagram too large")

	// ErrInvalidDatagramLimit indicates a configured maximum cannot hold a header
	ErrInvalidDatagramLimit = errors.New("invalid datagram size limit")
)

// ValidateLimit checks that maxDatagram can hold at least the header and
// fits in a single UDP datagram.
func ValidateLimit(maxDatagram int) error {
	if maxDatagram <= HeaderSize || maxDatagram > MaxUDPPayload {
		return fmt.Errorf("%w: %d not in (%d, %d]", ErrInvalidDatagramLimit, maxDatagram, HeaderSize, MaxUDPPayload)
	}
	return nil
}

// MaxPayload returns the number of payload bytes that fit in a datagram of
// maxDatagram bytes. It returns 0 when the limit cannot hold a header.
func MaxPayload(maxDatagram int) int {
	if maxDatagram <= HeaderSize {
		return 0
	}
	return maxDatagram - HeaderSize
}

// ValidateDatagramSize validates that a payload of payloadLen bytes plus the
// header fits within maxDatagram. Returns an error with context including the
// actual and maximum sizes.
func ValidateDatagramSize(payloadLen, maxDatagram int) error {
	total := HeaderSize + payloadLen
	if total > maxDatagram {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrDatagramTooLarge, total, maxDatagram)
	}
	return nil
}
