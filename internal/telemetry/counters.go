// Package telemetry holds the shared error counters spec.md §7 calls the
// "telemetry collaborator" — the only user-visible signal for per-event
// failures, since those failures are otherwise handled locally and never
// propagated as Go errors.
package telemetry

import "sync/atomic"

// Counters tallies each error kind from spec.md §7. All fields are safe
// for concurrent use from any goroutine.
type Counters struct {
	MalformedInput  atomic.Int64
	MissingResource atomic.Int64
	OutOfRange      atomic.Int64
	IOFailure       atomic.Int64
	LoadFailure     atomic.Int64
}

// Snapshot is a point-in-time copy of Counters, safe to serialize.
type Snapshot struct {
	MalformedInput  int64 `json:"malformed_input"`
	MissingResource int64 `json:"missing_resource"`
	OutOfRange      int64 `json:"out_of_range"`
	IOFailure       int64 `json:"io_failure"`
	LoadFailure     int64 `json:"load_failure"`
}

// Snapshot reads every counter without requiring a lock.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		MalformedInput:  c.MalformedInput.Load(),
		MissingResource: c.MissingResource.Load(),
		OutOfRange:      c.OutOfRange.Load(),
		IOFailure:       c.IOFailure.Load(),
		LoadFailure:     c.LoadFailure.Load(),
	}
}
