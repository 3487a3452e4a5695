package transport

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/opd-ai/wgtunnel/limits"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPort is the default UDP listen port
	DefaultPort = 51820
	// DefaultKeepaliveInterval is the default keepalive period (25 seconds)
	DefaultKeepaliveInterval = 25 * time.Second
	// DefaultStaleTimeout is the inactivity after which a peer is reported stale
	DefaultStaleTimeout = 180 * time.Second
)

// Options tunes an Engine. The zero value uses the defaults.
type Options struct {
	// MaxDatagramSize bounds a framed datagram, header included.
	MaxDatagramSize int
	// StaleTimeout is the inactivity after which a peer is reported stale.
	StaleTimeout time.Duration
	// TimeProvider supplies timestamps for liveness tracking.
	TimeProvider TimeProvider
	// OnStale is called once each time a peer goes from active to stale, on
	// its own goroutine. The session is never removed; abandoning it (even
	// by closing the engine) is the caller's decision.
	OnStale func(peer *Peer)
}

// Engine owns a UDP socket and the peer sessions tunneled over it.
type Engine struct {
	conn        net.PacketConn
	maxDatagram int
	staleAfter  time.Duration
	clock       TimeProvider
	onStale     func(peer *Peer)

	peers   map[uint32]*Peer // Key: session id
	peersMu sync.RWMutex

	sendMu  sync.Mutex // Serializes counter assignment and socket writes
	recvMu  sync.Mutex // Serializes socket reads and the receive buffer
	recvBuf []byte

	stats counters

	closed     bool
	closedMu   sync.Mutex      // Also guards keepalives
	keepalives map[uint32]bool // Key: session id with a running schedule
	stop       chan struct{}
	wg         sync.WaitGroup
}

// Open binds a UDP socket on bindPort on all interfaces.
func Open(bindPort int, opts *Options) (*Engine, error) {
	return OpenAddr(net.JoinHostPort("", strconv.Itoa(bindPort)), opts)
}

// OpenAddr binds a UDP socket on listenAddr ("host:port").
func OpenAddr(listenAddr string, opts *Options) (*Engine, error) {
	resolved, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "OpenAddr",
			"listen_addr": listenAddr,
			"error":       err.Error(),
		}).Error("Failed to bind UDP socket")
		return nil, fmt.Errorf("%w: %s: %w", ErrBindFailed, listenAddr, err)
	}

	e := &Engine{
		conn:        conn,
		maxDatagram: resolved.MaxDatagramSize,
		staleAfter:  resolved.StaleTimeout,
		clock:       getTimeProvider(resolved.TimeProvider),
		onStale:     resolved.OnStale,
		peers:       make(map[uint32]*Peer),
		keepalives:  make(map[uint32]bool),
		// One spare byte so an oversized datagram is detectable
		recvBuf: make([]byte, resolved.MaxDatagramSize+1),
		stop:    make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"function":      "OpenAddr",
		"local_addr":    conn.LocalAddr().String(),
		"max_datagram":  e.maxDatagram,
		"stale_timeout": e.staleAfter,
	}).Info("UDP transport listening")

	return e, nil
}

// resolveOptions fills defaults and validates limits.
func resolveOptions(opts *Options) (Options, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.MaxDatagramSize == 0 {
		o.MaxDatagramSize = limits.MaxDatagramSize
	}
	if err := limits.ValidateLimit(o.MaxDatagramSize); err != nil {
		return o, err
	}
	if o.StaleTimeout <= 0 {
		o.StaleTimeout = DefaultStaleTimeout
	}
	return o, nil
}

// ConfigurePeer installs the peer session for sessionID at address.
// Configuring an id that already exists resets that session in place and
// returns the same handle.
func (e *Engine) ConfigurePeer(address string, sessionID uint32) (*Peer, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	endpoint, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPeerAddress, address, err)
	}
	if endpoint.Port == 0 {
		return nil, fmt.Errorf("%w: %q: missing port", ErrInvalidPeerAddress, address)
	}

	now := e.clock.Now()

	e.peersMu.Lock()
	peer, exists := e.peers[sessionID]
	if exists {
		peer.reset(endpoint, now)
	} else {
		peer = newPeer(endpoint, sessionID, now)
		e.peers[sessionID] = peer
	}
	e.peersMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":     "ConfigurePeer",
		"endpoint":     endpoint.String(),
		"session_id":   sessionID,
		"reconfigured": exists,
	}).Info("Peer configured")

	return peer, nil
}

// Send frames payload as a data envelope with the peer's next counter and
// transmits it. Errors are not retried.
func (e *Engine) Send(peer *Peer, payload []byte) error {
	if e.isClosed() {
		return ErrClosed
	}
	if err := e.ownsPeer(peer); err != nil {
		return err
	}
	return e.sendEnvelope(peer, payload, true)
}

// sendEnvelope assigns a counter and writes the datagram under sendMu, so
// counters reach the wire in the order they were assigned. Only caller
// initiated sends refresh the peer's activity; scheduled keepalives must not
// hide an unresponsive peer.
func (e *Engine) sendEnvelope(peer *Peer, payload []byte, caller bool) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	// Size is checked before a counter is consumed
	if err := limits.ValidateDatagramSize(len(payload), e.maxDatagram); err != nil {
		return err
	}

	peer.mu.Lock()
	counter, err := peer.nextSendCounterLocked()
	endpoint := peer.endpoint
	peer.mu.Unlock()
	if err != nil {
		return err
	}

	data, err := Encode(KindData, peer.sessionID, counter, payload, e.maxDatagram)
	if err != nil {
		return err
	}

	if _, err := e.conn.WriteTo(data, endpoint); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		e.stats.sendErrors.Add(1)
		// The counter stays consumed; it is never reused
		return fmt.Errorf("%w: send to %s: %w", ErrIO, endpoint, err)
	}

	if caller {
		peer.onSent(e.clock.Now())
	} else {
		peer.onKeepaliveSent()
	}
	if len(payload) == 0 {
		e.stats.keepalivesSent.Add(1)
	} else {
		e.stats.sent.Add(1)
	}
	return nil
}

// Receive waits up to timeout for one deliverable datagram.
//
// A timeout returns (nil, nil, nil). Malformed, replayed or otherwise
// rejected datagrams are dropped and the wait continues with whatever is
// left of timeout. Accepted keepalives refresh the peer but are not
// returned.
func (e *Engine) Receive(timeout time.Duration) (*Peer, []byte, error) {
	if e.isClosed() {
		return nil, nil, ErrClosed
	}

	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		if err := e.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, e.mapReadError(err)
		}

		n, addr, err := e.conn.ReadFrom(e.recvBuf)
		if err != nil {
			if isTimeout(err) {
				return nil, nil, nil
			}
			if isMessageTooLong(err) {
				e.dropDatagram(ErrPayloadTooLarge, addr)
				continue
			}
			return nil, nil, e.mapReadError(err)
		}

		peer, payload, err := e.handleDatagram(e.recvBuf[:n], addr)
		if err != nil {
			e.dropDatagram(err, addr)
			continue
		}
		if peer == nil {
			continue
		}
		return peer, payload, nil
	}
}

// handleDatagram decodes and validates one inbound datagram. A nil peer with
// a nil error means an accepted keepalive.
func (e *Engine) handleDatagram(data []byte, addr net.Addr) (*Peer, []byte, error) {
	if len(data) > e.maxDatagram {
		return nil, nil, fmt.Errorf("%w: received more than %d bytes", ErrPayloadTooLarge, e.maxDatagram)
	}

	env, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	if env.Kind != KindData {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, env.Kind)
	}

	peer := e.lookupPeer(env.SessionID)
	if peer == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownSession, env.SessionID)
	}

	moved, err := peer.accept(addr, env.Counter, e.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	if moved {
		logrus.WithFields(logrus.Fields{
			"function":   "handleDatagram",
			"session_id": env.SessionID,
			"endpoint":   addr.String(),
		}).Info("Peer endpoint updated")
	}

	if env.IsKeepalive() {
		e.stats.keepalivesReceived.Add(1)
		return nil, nil, nil
	}

	e.stats.received.Add(1)
	return peer, env.Payload, nil
}

// dropDatagram counts and logs a rejected datagram.
func (e *Engine) dropDatagram(err error, addr net.Addr) {
	e.stats.recordDrop(err)

	fields := logrus.Fields{
		"function": "Receive",
		"reason":   err.Error(),
	}
	if addr != nil {
		fields["source"] = addr.String()
	}
	logrus.WithFields(fields).Debug("Dropped inbound datagram")
}

// mapReadError converts socket errors after the read path gave up.
func (e *Engine) mapReadError(err error) error {
	if errors.Is(err, net.ErrClosed) || e.isClosed() {
		return ErrClosed
	}
	return fmt.Errorf("%w: receive: %w", ErrIO, err)
}

// isTimeout reports whether err is a read deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}


// lookupPeer returns the peer for sessionID, or nil.
func (e *Engine) lookupPeer(sessionID uint32) *Peer {
	e.peersMu.RLock()
	defer e.peersMu.RUnlock()

	return e.peers[sessionID]
}

// ownsPeer checks that peer is the live session slot held by this engine.
func (e *Engine) ownsPeer(peer *Peer) error {
	if peer == nil {
		return ErrUnknownPeer
	}
	if e.lookupPeer(peer.sessionID) != peer {
		return fmt.Errorf("%w: session %d", ErrUnknownPeer, peer.sessionID)
	}
	return nil
}

// Peers returns the configured peers ordered by session id.
func (e *Engine) Peers() []*Peer {
	e.peersMu.RLock()
	peers := make([]*Peer, 0, len(e.peers))
	for _, p := range e.peers {
		peers = append(peers, p)
	}
	e.peersMu.RUnlock()

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].sessionID < peers[j].sessionID
	})
	return peers
}

// Stats returns a snapshot of the traffic and drop counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// LocalAddr returns the local address the transport is listening on.
func (e *Engine) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// MaxPayload returns the largest payload Send accepts.
func (e *Engine) MaxPayload() int {
	return limits.MaxPayload(e.maxDatagram)
}

func (e *Engine) isClosed() bool {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()

	return e.closed
}

// Close stops keepalives, releases the socket and closes every peer. A
// Receive blocked on the socket returns ErrClosed. Calling Close again
// returns ErrClosed.
func (e *Engine) Close() error {
	e.closedMu.Lock()
	if e.closed {
		e.closedMu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.closedMu.Unlock()

	close(e.stop)
	err := e.conn.Close()
	e.wg.Wait()

	e.peersMu.RLock()
	for _, p := range e.peers {
		p.close()
	}
	e.peersMu.RUnlock()

	stats := e.stats.snapshot()
	logrus.WithFields(logrus.Fields{
		"function": "Close",
		"sent":     stats.Sent,
		"received": stats.Received,
		"dropped":  stats.Dropped(),
	}).Info("UDP transport closed")

	if err != nil {
		return fmt.Errorf("close socket: %w", err)
	}
	return nil
}
