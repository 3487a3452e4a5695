// Package bridge runs the tunnel's control loop: datagrams read from the
// virtual interface are sent to the peer, and datagrams received from the
// peer are written back to the interface.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/opd-ai/wgtunnel/packetlog"
	"github.com/opd-ai/wgtunnel/transport"
	"github.com/sirupsen/logrus"
)

// DefaultReceiveTimeout bounds each wait for inbound traffic, so the loop
// notices cancellation promptly.
const DefaultReceiveTimeout = time.Second

// errorBackoff paces the loop while the socket keeps failing.
const errorBackoff = 100 * time.Millisecond

// readBufferSize fits any IP datagram the interface can hand over.
const readBufferSize = 65535

// Device is the virtual interface side of the bridge.
type Device interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Tunnel is the transport side of the bridge.
type Tunnel interface {
	Send(peer *transport.Peer, payload []byte) error
	Receive(timeout time.Duration) (*transport.Peer, []byte, error)
}

// Stats counts datagrams moved by the bridge.
type Stats struct {
	Outbound        uint64 // interface -> peer
	Inbound         uint64 // peer -> interface
	OutboundDropped uint64
	InboundDropped  uint64
}

// Bridge moves datagrams between one device and one peer.
type Bridge struct {
	dev            Device
	tunnel         Tunnel
	peer           *transport.Peer
	receiveTimeout time.Duration

	outbound        atomic.Uint64
	inbound         atomic.Uint64
	outboundDropped atomic.Uint64
	inboundDropped  atomic.Uint64
}

// New creates a bridge. A non-positive receiveTimeout uses
// DefaultReceiveTimeout.
func New(dev Device, tunnel Tunnel, peer *transport.Peer, receiveTimeout time.Duration) *Bridge {
	if receiveTimeout <= 0 {
		receiveTimeout = DefaultReceiveTimeout
	}
	return &Bridge{
		dev:            dev,
		tunnel:         tunnel,
		peer:           peer,
		receiveTimeout: receiveTimeout,
	}
}

// Run pumps traffic until ctx is cancelled, the tunnel is closed, or the
// device fails. Run closes the device before returning so the reader
// goroutine exits with it.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outboundDone := make(chan error, 1)
	go func() {
		err := b.pumpOutbound(ctx)
		cancel()
		outboundDone <- err
	}()

	inboundErr := b.pumpInbound(ctx)
	cancel()
	_ = b.dev.Close()
	outboundErr := <-outboundDone

	logrus.WithFields(logrus.Fields{
		"function": "Run",
		"outbound": b.outbound.Load(),
		"inbound":  b.inbound.Load(),
	}).Info("Bridge stopped")

	return errors.Join(inboundErr, outboundErr)
}

// pumpOutbound forwards interface datagrams to the peer.
func (b *Bridge) pumpOutbound(ctx context.Context) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := b.dev.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read device: %w", err)
		}
		if n == 0 {
			continue
		}

		packet := buf[:n]
		packetlog.Log("outbound", packet)

		err = b.tunnel.Send(b.peer, packet)
		switch {
		case err == nil:
			b.outbound.Add(1)
		case errors.Is(err, transport.ErrClosed):
			return nil
		case errors.Is(err, transport.ErrPayloadTooLarge), errors.Is(err, transport.ErrIO):
			b.outboundDropped.Add(1)
			logrus.WithFields(logrus.Fields{
				"function": "pumpOutbound",
				"length":   n,
				"error":    err.Error(),
			}).Warn("Dropped outbound datagram")
		default:
			return fmt.Errorf("send: %w", err)
		}
	}
}

// pumpInbound writes datagrams from the peer to the interface.
func (b *Bridge) pumpInbound(ctx context.Context) error {
	for ctx.Err() == nil {
		_, payload, err := b.tunnel.Receive(b.receiveTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				return nil
			}
			logrus.WithFields(logrus.Fields{
				"function": "pumpInbound",
				"error":    err.Error(),
			}).Warn("Receive failed")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}
		if payload == nil {
			continue
		}

		packetlog.Log("inbound", payload)

		if _, err := b.dev.Write(payload); err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return nil
			}
			b.inboundDropped.Add(1)
			logrus.WithFields(logrus.Fields{
				"function": "pumpInbound",
				"length":   len(payload),
				"error":    err.Error(),
			}).Warn("Failed to write datagram to device")
			continue
		}
		b.inbound.Add(1)
	}
	return nil
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Outbound:        b.outbound.Load(),
		Inbound:         b.inbound.Load(),
		OutboundDropped: b.outboundDropped.Load(),
		InboundDropped:  b.inboundDropped.Load(),
	}
}
