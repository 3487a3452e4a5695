package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// RunKeepalive starts a background activity that wakes every interval and
// sends an empty data envelope to peer when nothing has been sent or accepted
// for at least interval. It also reports the peer as stale once inactivity
// exceeds the engine's stale timeout. Close stops and joins the activity.
//
// Each peer has at most one schedule; a second call for the same peer returns
// ErrKeepaliveRunning.
func (e *Engine) RunKeepalive(peer *Peer, interval time.Duration) error {
	if err := e.ownsPeer(peer); err != nil {
		return err
	}
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}

	// wg.Add happens under closedMu so Close cannot be waiting already
	e.closedMu.Lock()
	if e.closed {
		e.closedMu.Unlock()
		return ErrClosed
	}
	if e.keepalives[peer.sessionID] {
		e.closedMu.Unlock()
		return fmt.Errorf("%w: session %d", ErrKeepaliveRunning, peer.sessionID)
	}
	e.keepalives[peer.sessionID] = true
	e.wg.Add(1)
	e.closedMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "RunKeepalive",
		"session_id": peer.SessionID(),
		"interval":   interval,
	}).Info("Keepalive started")

	go e.keepaliveLoop(peer, interval)
	return nil
}

func (e *Engine) keepaliveLoop(peer *Peer, interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.keepaliveTick(peer, interval)
		case <-e.stop:
			return
		}
	}
}

// keepaliveTick performs one scheduled check.
func (e *Engine) keepaliveTick(peer *Peer, interval time.Duration) {
	now := e.clock.Now()
	e.checkStale(peer, now)

	if !peer.keepaliveDue(now, interval) {
		return
	}

	if err := e.sendEnvelope(peer, nil, false); err != nil {
		if errors.Is(err, ErrClosed) {
			return
		}
		logrus.WithFields(logrus.Fields{
			"function":   "keepaliveTick",
			"session_id": peer.SessionID(),
			"error":      err.Error(),
		}).Warn("Failed to send keepalive")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":   "keepaliveTick",
		"session_id": peer.SessionID(),
		"endpoint":   peer.Endpoint().String(),
	}).Debug("Sent keepalive")
}

// checkStale reports the active-to-stale transition.
func (e *Engine) checkStale(peer *Peer, now time.Time) {
	if !peer.markStale(now, e.staleAfter) {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":      "checkStale",
		"session_id":    peer.SessionID(),
		"last_activity": peer.LastActivity(),
		"stale_timeout": e.staleAfter,
	}).Warn("Peer session is stale")

	// Off the joined goroutine, so the callback may Close the engine
	if e.onStale != nil {
		go e.onStale(peer)
	}
}
