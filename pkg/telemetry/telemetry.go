// Package telemetry counts evaluation outcomes for the health endpoint.
// Counters are process-local and reset on restart; durable history lives
// in the audit sink.
package telemetry

import "sync/atomic"

// Counters tracks evaluation outcomes since process start.
type Counters struct {
	evaluations atomic.Int64
	allowed     atomic.Int64
	warned      atomic.Int64
	blocked     atomic.Int64
	rejected    atomic.Int64
	errors      atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{}
}

// Observe records one completed evaluation by its action.
func (c *Counters) Observe(action string) {
	c.evaluations.Add(1)
	switch action {
	case "allow":
		c.allowed.Add(1)
	case "warn":
		c.warned.Add(1)
	case "block":
		c.blocked.Add(1)
	}
}

// ObserveRejected records a payload refused before evaluation, either by
// the size cap or the admission limiter.
func (c *Counters) ObserveRejected() {
	c.rejected.Add(1)
}

// ObserveError records an evaluation that ended in an internal failure.
func (c *Counters) ObserveError() {
	c.errors.Add(1)
}

// Snapshot is the JSON shape surfaced by the health endpoint.
type Snapshot struct {
	Evaluations int64 `json:"evaluations"`
	Allowed     int64 `json:"allowed"`
	Warned      int64 `json:"warned"`
	Blocked     int64 `json:"blocked"`
	Rejected    int64 `json:"rejected"`
	Errors      int64 `json:"errors"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Evaluations: c.evaluations.Load(),
		Allowed:     c.allowed.Load(),
		Warned:      c.warned.Load(),
		Blocked:     c.blocked.Load(),
		Rejected:    c.rejected.Load(),
		Errors:      c.errors.Load(),
	}
}
