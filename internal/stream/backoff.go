package stream

import "time"

const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// Backoff is an exponential delay: each call to Next returns the current
// timeout and doubles it, up to a cap.
type Backoff struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func NewBackoff(initial, cap time.Duration) Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if cap < initial {
		cap = initial
	}
	return Backoff{initial: initial, cap: cap, timeout: initial}
}

// Next returns the delay to wait before the upcoming attempt.
func (b *Backoff) Next() time.Duration {
	d := b.timeout
	b.timeout = min(b.timeout*2, b.cap)
	return d
}

// Timeout returns the delay the next call to Next will return.
func (b *Backoff) Timeout() time.Duration {
	return b.timeout
}

func (b *Backoff) Reset() {
	b.timeout = b.initial
}
