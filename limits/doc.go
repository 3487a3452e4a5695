// Package limits provides centralized datagram size constants and validation
// functions for the tunnel wire format. This package ensures consistent size
// enforcement between the framer, the receive path and the TUN bridge.
//
// # Datagram Size Hierarchy
//
//   - HeaderSize (16 bytes): the fixed envelope header (kind, reserved,
//     session id, counter).
//
//   - MaxDatagramSize (2000 bytes): the default upper bound for one framed
//     datagram on the wire, header included.
//
//   - MaxUDPPayload (65507 bytes): the largest payload a single IPv4 UDP
//     datagram can carry. Configured datagram sizes may not exceed it.
//
// # Validation Functions
//
//	err := limits.ValidateDatagramSize(len(payload), limits.MaxDatagramSize)
//	if errors.Is(err, limits.ErrDatagramTooLarge) {
//	    // drop or reject
//	}
//
// MaxPayload returns how many payload bytes fit in a datagram of a given size.
package limits
