package transport

import "fmt"

// AcceptCounter applies the replay policy to an inbound counter.
//
// A counter is accepted only when it is strictly greater than watermark, in
// which case it becomes the new watermark. Anything else, an exact repeat
// included, is rejected with ErrDuplicateOrOld and the watermark is returned
// unchanged. There is no reordering window: a datagram overtaken by a later
// one in flight is dropped.
func AcceptCounter(watermark, counter uint64) (uint64, error) {
	if counter <= watermark {
		return watermark, fmt.Errorf("%w: counter %d, watermark %d", ErrDuplicateOrOld, counter, watermark)
	}
	return counter, nil
}
