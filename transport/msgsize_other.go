//go:build !unix && !windows

package transport

func isMessageTooLong(err error) bool {
	return false
}
