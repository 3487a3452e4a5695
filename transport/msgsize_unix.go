//go:build unix

package transport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isMessageTooLong reports whether the platform rejected a datagram larger
// than the receive buffer.
func isMessageTooLong(err error) bool {
	return errors.Is(err, unix.EMSGSIZE)
}
