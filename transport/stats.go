package transport

import (
	"errors"
	"sync/atomic"
)

// counters holds the engine's traffic and drop counters.
type counters struct {
	sent               atomic.Uint64
	received           atomic.Uint64
	keepalivesSent     atomic.Uint64
	keepalivesReceived atomic.Uint64
	sendErrors         atomic.Uint64

	droppedTruncated      atomic.Uint64
	droppedOversize       atomic.Uint64
	droppedReplay         atomic.Uint64
	droppedUnknownSession atomic.Uint64
	droppedUnsupported    atomic.Uint64
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	Sent               uint64
	Received           uint64
	KeepalivesSent     uint64
	KeepalivesReceived uint64
	SendErrors         uint64

	DroppedTruncated      uint64
	DroppedOversize       uint64
	DroppedReplay         uint64
	DroppedUnknownSession uint64
	DroppedUnsupported    uint64
}

// Dropped returns the total number of inbound datagrams dropped.
func (s Stats) Dropped() uint64 {
	return s.DroppedTruncated + s.DroppedOversize + s.DroppedReplay +
		s.DroppedUnknownSession + s.DroppedUnsupported
}

// recordDrop increments the drop counter matching err.
func (c *counters) recordDrop(err error) {
	switch {
	case errors.Is(err, ErrTruncated):
		c.droppedTruncated.Add(1)
	case errors.Is(err, ErrPayloadTooLarge):
		c.droppedOversize.Add(1)
	case errors.Is(err, ErrDuplicateOrOld):
		c.droppedReplay.Add(1)
	case errors.Is(err, ErrUnknownSession):
		c.droppedUnknownSession.Add(1)
	default:
		c.droppedUnsupported.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Sent:                  c.sent.Load(),
		Received:              c.received.Load(),
		KeepalivesSent:        c.keepalivesSent.Load(),
		KeepalivesReceived:    c.keepalivesReceived.Load(),
		SendErrors:            c.sendErrors.Load(),
		DroppedTruncated:      c.droppedTruncated.Load(),
		DroppedOversize:       c.droppedOversize.Load(),
		DroppedReplay:         c.droppedReplay.Load(),
		DroppedUnknownSession: c.droppedUnknownSession.Load(),
		DroppedUnsupported:    c.droppedUnsupported.Load(),
	}
}
