// Package tun provides the virtual network interface that feeds plaintext IP
// datagrams into the tunnel and receives them back out of it.
package tun

import (
	"errors"
	"fmt"
)

// MaxNameLen is the longest interface name the kernel accepts (IFNAMSIZ - 1).
const MaxNameLen = 15

// ErrInvalidName indicates an unusable interface name.
var ErrInvalidName = errors.New("invalid interface name")

// Device is a TUN interface carrying one IP datagram per Read or Write.
type Device interface {
	// Read blocks until the kernel routes a datagram to the interface.
	Read(p []byte) (int, error)
	// Write injects a datagram into the host's network stack.
	Write(p []byte) (int, error)
	// Close releases the interface.
	Close() error
	// Name returns the interface name chosen by the kernel.
	Name() string
}

// ValidateName checks name against kernel interface naming rules. An empty
// name lets the kernel pick one.
func ValidateName(name string) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	}
	for _, r := range name {
		if r == '/' || r == ' ' || r == 0 {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
