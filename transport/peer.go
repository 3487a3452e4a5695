package transport

import (
	"fmt"
	"math"
	"net"
	"sync"
	"time"
)

// PeerState is the lifecycle state of a peer session.
type PeerState int

const (
	// StateUninitialized is the zero value before a peer is configured.
	StateUninitialized PeerState = iota
	// StateConfigured means the peer is installed but nothing has been
	// sent to or accepted from it yet.
	StateConfigured
	// StateActive means traffic has flowed within the stale timeout.
	StateActive
	// StateStale means no traffic has flowed for longer than the stale
	// timeout. Keepalives are still attempted.
	StateStale
	// StateClosed means the owning engine has shut down.
	StateClosed
)

// String returns a readable name for the state.
func (s PeerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateActive:
		return "active"
	case StateStale:
		return "stale"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Peer tracks one remote tunnel endpoint: its address, session id, send
// counter, receive watermark and liveness.
//
// A Peer is created and owned by an Engine. Its mutable fields are only
// changed through the engine's send and receive paths.
type Peer struct {
	mu           sync.RWMutex // Protects all fields for concurrent access
	endpoint     net.Addr
	sessionID    uint32
	txCounter    uint64 // Next counter to send, starts at 1
	rxWatermark  uint64 // Highest accepted counter, starts at 0
	lastActivity time.Time
	state        PeerState
}

// newPeer creates a configured peer session.
func newPeer(endpoint net.Addr, sessionID uint32, now time.Time) *Peer {
	p := &Peer{sessionID: sessionID}
	p.reset(endpoint, now)
	return p
}

// reset reinstalls the session state in place, so handles held by callers
// keep pointing at the live slot.
func (p *Peer) reset(endpoint net.Addr, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.endpoint = endpoint
	p.txCounter = 1
	p.rxWatermark = 0
	p.lastActivity = now
	p.state = StateConfigured
}

// NextSendCounter returns the counter to use for the next send and advances
// it. It fails with ErrCounterExhausted rather than wrap.
func (p *Peer) NextSendCounter() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.nextSendCounterLocked()
}

func (p *Peer) nextSendCounterLocked() (uint64, error) {
	if p.txCounter == math.MaxUint64 {
		return 0, fmt.Errorf("%w: session %d", ErrCounterExhausted, p.sessionID)
	}
	counter := p.txCounter
	p.txCounter++
	return counter, nil
}

// OnAccept runs the replay guard for an inbound counter. On acceptance the
// endpoint follows the datagram's source address and the session is marked
// active. It returns whether the datagram should be delivered.
func (p *Peer) OnAccept(source net.Addr, counter uint64, now time.Time) bool {
	_, err := p.accept(source, counter, now)
	return err == nil
}

// accept is OnAccept returning the replay error and whether the endpoint moved.
func (p *Peer) accept(source net.Addr, counter uint64, now time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	watermark, err := AcceptCounter(p.rxWatermark, counter)
	if err != nil {
		return false, err
	}
	p.rxWatermark = watermark

	moved := false
	if source != nil && (p.endpoint == nil || p.endpoint.String() != source.String()) {
		p.endpoint = source
		moved = true
	}
	p.touchLocked(now)
	return moved, nil
}

// onSent records a successful transmission.
func (p *Peer) onSent(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.touchLocked(now)
}

// onKeepaliveSent activates a freshly configured peer without counting the
// keepalive as activity, so an unresponsive peer still goes stale.
func (p *Peer) onKeepaliveSent() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateConfigured {
		p.state = StateActive
	}
}

func (p *Peer) touchLocked(now time.Time) {
	p.lastActivity = now
	if p.state != StateClosed {
		p.state = StateActive
	}
}

// IsStale reports whether more than timeout has elapsed since the last
// activity. A peer that never saw traffic measures from its configuration.
func (p *Peer) IsStale(now time.Time, timeout time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return now.Sub(p.lastActivity) > timeout
}

// markStale moves an active peer to the stale state. It returns true only on
// the transition.
func (p *Peer) markStale(now time.Time, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateActive {
		return false
	}
	if now.Sub(p.lastActivity) <= timeout {
		return false
	}
	p.state = StateStale
	return true
}

// keepaliveDue reports whether at least interval has passed since the last
// activity.
func (p *Peer) keepaliveDue(now time.Time, interval time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state != StateClosed && now.Sub(p.lastActivity) >= interval
}

func (p *Peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = StateClosed
}

// SessionID returns the session identifier.
func (p *Peer) SessionID() uint32 {
	return p.sessionID
}

// Endpoint returns the current remote address.
func (p *Peer) Endpoint() net.Addr {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.endpoint
}

// State returns the lifecycle state.
func (p *Peer) State() PeerState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state
}

// TxCounter returns the counter the next send will use.
func (p *Peer) TxCounter() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.txCounter
}

// RxWatermark returns the highest accepted inbound counter.
func (p *Peer) RxWatermark() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.rxWatermark
}

// LastActivity returns the time of the last successful send or accepted receive.
func (p *Peer) LastActivity() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.lastActivity
}
