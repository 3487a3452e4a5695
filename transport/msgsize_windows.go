//go:build windows

package transport

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isMessageTooLong reports whether the platform rejected a datagram larger
// than the receive buffer. Windows fails the read instead of truncating.
func isMessageTooLong(err error) bool {
	return errors.Is(err, windows.WSAEMSGSIZE)
}
