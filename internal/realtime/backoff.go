package realtime

import "time"

// backoff computes capped exponential reconnect delays. No jitter is
// applied. Not safe for concurrent use; the service serializes access.
type backoff struct {
	current time.Duration
	min     time.Duration
	max     time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	return &backoff{current: min, min: min, max: max}
}

// NextDelay returns the delay for the next reconnect attempt and
// advances the sequence: min, 2*min, 4*min, ... capped at max.
func (b *backoff) NextDelay() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset restarts the sequence at the minimum delay. Called only on a
// successful connection.
func (b *backoff) Reset() {
	b.current = b.min
}
