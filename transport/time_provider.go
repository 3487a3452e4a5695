package transport

import "time"

// TimeProvider abstracts time operations to enable deterministic testing.
// Session liveness (last activity, staleness and keepalive due checks) is
// measured against it.
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time
}

// DefaultTimeProvider implements TimeProvider using the system clock.
type DefaultTimeProvider struct{}

// Now returns the current system time.
func (DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

// getTimeProvider returns tp or the system clock if tp is nil.
func getTimeProvider(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return DefaultTimeProvider{}
}
