package transport

import (
	"errors"

	"github.com/opd-ai/wgtunnel/limits"
)

var (
	// ErrBindFailed indicates the UDP socket could not be bound
	ErrBindFailed = errors.New("bind failed")
	// ErrInvalidPeerAddress indicates a peer address could not be resolved
	ErrInvalidPeerAddress = errors.New("invalid peer address")
	// ErrIO indicates a transient socket error; the caller decides whether to retry
	ErrIO = errors.New("transport i/o error")
	// ErrClosed indicates the engine has been closed
	ErrClosed = errors.New("transport closed")

	// ErrTruncated indicates a datagram shorter than the envelope header
	ErrTruncated = errors.New("datagram truncated")
	// ErrPayloadTooLarge indicates header plus payload exceeds the datagram limit
	ErrPayloadTooLarge = limits.ErrDatagramTooLarge
	// ErrDuplicateOrOld indicates a counter at or below the receive watermark
	ErrDuplicateOrOld = errors.New("duplicate or old counter")
	// ErrUnsupportedKind indicates an envelope kind the engine does not process
	ErrUnsupportedKind = errors.New("unsupported envelope kind")
	// ErrUnknownSession indicates an envelope for a session id with no peer
	ErrUnknownSession = errors.New("unknown session")

	// ErrCounterExhausted indicates the send counter cannot advance without wrapping
	ErrCounterExhausted = errors.New("send counter exhausted")
	// ErrUnknownPeer indicates a peer handle not owned by this engine
	ErrUnknownPeer = errors.New("peer not configured on this transport")
	// ErrKeepaliveRunning indicates the peer already has a keepalive schedule
	ErrKeepaliveRunning = errors.New("keepalive already running for peer")
)
