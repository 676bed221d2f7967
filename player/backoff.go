package player

import "time"

// Backoff is the reconnect policy for a dropped realtime channel:
// exponential growth from Min, capped at Max. Reset after a successful
// rejoin.
type Backoff struct {
	Min     time.Duration
	Max     time.Duration
	attempt int
}

// NewBackoff returns a backoff starting at min and capped at max.
func NewBackoff(min, max time.Duration) *Backoff {
	return &Backoff{Min: min, Max: max}
}

// Next returns the delay before the next reconnect attempt.
func (b *Backoff) Next() time.Duration {
	d := b.Min << b.attempt
	if d >= b.Max || d < b.Min { // overflow guard
		d = b.Max
	} else {
		b.attempt++
	}
	return d
}

// Reset returns the policy to its initial delay.
func (b *Backoff) Reset() {
	b.attempt = 0
}
