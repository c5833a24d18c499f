// Package aggregate computes latency, size and rate statistics per group.
//
// A Group starts writable, accumulates records (or other writable groups),
// and is finalized exactly once when its statistics are requested. Rates use
// the group's own runtime window: the span from its earliest start to its
// latest end. A zero window leaves the rates undefined.
//
// Latencies are retained either in full (ModeExact, percentiles by linear
// interpolation between closest ranks) or as a DDSketch (ModeSketch). The
// maximum is tracked exactly in both modes.
package aggregate
