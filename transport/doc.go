// Package transport implements the tunnel session transport: it frames
// opaque payloads into session-tagged UDP datagrams, assigns and checks
// per-direction counters to resist replay, tracks one peer session per
// configured remote endpoint, and keeps NAT mappings alive with keepalives.
//
// # Wire Format
//
// Every datagram carries a fixed 16-byte big-endian header followed by the
// payload verbatim:
//
//	offset 0  kind        1 byte   1 = handshake, 4 = data
//	offset 1  reserved    3 bytes  zero on encode, ignored on decode
//	offset 4  session id  4 bytes
//	offset 8  counter     8 bytes  starts at 1 per session and direction
//	offset 16 payload     N bytes  0 <= N <= max datagram - 16
//
// A data envelope with an empty payload is a keepalive. Payloads are not
// encrypted; the transport never interprets them.
//
// # Engine
//
//	engine, err := transport.Open(transport.DefaultPort, nil)
//	if err != nil {
//	    log.Fatal(err) // errors.Is(err, transport.ErrBindFailed)
//	}
//	defer engine.Close()
//
//	peer, err := engine.ConfigurePeer("127.0.0.1:51821", 12345)
//	engine.RunKeepalive(peer, transport.DefaultKeepaliveInterval)
//
//	err = engine.Send(peer, ipDatagram)
//	from, payload, err := engine.Receive(time.Second)
//
// Receive returns (nil, nil, nil) on timeout. Truncated, oversized,
// unknown-session, unsupported-kind and replayed datagrams are dropped and
// counted in Stats; they never surface as errors, so a hostile sender cannot
// abort the caller's loop.
//
// # Replay Policy
//
// A peer accepts an inbound counter only if it is strictly greater than the
// highest counter accepted so far. Reordered datagrams are dropped rather
// than repaired.
//
// # Concurrency
//
// Send may be called from any goroutine; counter assignment and the socket
// write share one lock, so counters reach the wire in the order they were
// assigned. Receive calls are serialized. Close unblocks a pending Receive
// and joins every keepalive goroutine before returning.
package transport
