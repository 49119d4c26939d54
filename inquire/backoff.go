package inquire

import "time"

// Backoff spaces out consecutive poll calls. Delays grow geometrically
// from Initial by Multiplier and are capped at Max.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff returns 250ms doubling up to 5s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    250 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 2,
	}
}

// normalize fills zero fields with defaults and clamps inconsistent ones.
func (b Backoff) normalize() Backoff {
	def := DefaultBackoff()
	if b.Initial <= 0 {
		b.Initial = def.Initial
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 1 {
		b.Multiplier = def.Multiplier
	}
	return b
}

// Delay returns the wait before poll attempt n (n >= 1) of a normalized
// backoff.
func (b Backoff) Delay(n int) time.Duration {
	b = b.normalize()
	d := float64(b.Initial)
	for i := 1; i < n; i++ {
		d *= b.Multiplier
		if d >= float64(b.Max) {
			return b.Max
		}
	}
	return time.Duration(d)
}
