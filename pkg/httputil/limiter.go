package httputil

import (
	"context"
	"sync/atomic"
)

// Limiter bounds the number of evaluations in flight. The gateway uses
// TryAcquire on the request path so overload turns into an immediate 429
// instead of a growing queue of pinned payloads.
type Limiter struct {
	slots    chan struct{}
	rejected atomic.Int64
}

// NewLimiter creates a limiter with the given capacity.
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 256
	}
	return &Limiter{slots: make(chan struct{}, capacity)}
}

// TryAcquire takes a slot without blocking. A false return is counted as
// a rejection.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		l.rejected.Add(1)
		return false
	}
}

// Acquire blocks for a slot until the context is cancelled. Used by the
// CLI scan path, where waiting is preferable to failing.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. Must pair with a successful acquire.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// Rejected returns how many acquisitions were refused at capacity.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// Stats snapshots the limiter for the health endpoint.
func (l *Limiter) Stats() LimiterStats {
	return LimiterStats{
		Capacity: cap(l.slots),
		InFlight: len(l.slots),
		Rejected: l.rejected.Load(),
	}
}

// LimiterStats is the JSON shape surfaced by the health endpoint.
type LimiterStats struct {
	Capacity int   `json:"capacity"`
	InFlight int   `json:"in_flight"`
	Rejected int64 `json:"rejected"`
}
