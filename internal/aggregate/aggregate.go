package aggregate

import (
	"time"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// State is the lifecycle stage of a Group.
type State int

const (
	// Writable groups accept records and merges.
	Writable State = iota
	// Finalized groups are read-only; their statistics have been computed.
	Finalized
)

func (s State) String() string {
	if s == Finalized {
		return "finalized"
	}
	return "writable"
}

// Group maintains running statistics for one group key of one file.
// A Group is owned by a single goroutine and is not safe for concurrent use.
type Group struct {
	key   group.Key
	state State

	// Running statistics
	count   int64
	latSum  float64 // microseconds
	latMax  float64 // microseconds
	bytes   int64
	first   time.Time
	last    time.Time
	threads map[string]struct{}

	lat latencies

	result Result
}

// New creates an empty writable group.
func New(key group.Key, opts Options) (*Group, error) {
	if !key.Valid() {
		return nil, errors.NewInvariant("invalid group key %s", key)
	}
	lat, err := newLatencies(opts)
	if err != nil {
		return nil, err
	}
	return &Group{
		key:     key,
		threads: make(map[string]struct{}),
		lat:     lat,
	}, nil
}

// Add adds one record to the group.
func (g *Group) Add(rec *oplog.Record) error {
	if g.state == Finalized {
		return errors.Wrapf(errors.ErrGroupFinalized, "add to %s", g.key)
	}

	us := micros(rec.Duration)
	if err := g.lat.add(us); err != nil {
		return errors.Wrapf(err, "add to %s", g.key)
	}

	g.count++
	g.latSum += us
	if us > g.latMax {
		g.latMax = us
	}
	g.bytes += rec.Bytes

	if g.first.IsZero() || rec.Start.Before(g.first) {
		g.first = rec.Start
	}
	if rec.End.After(g.last) {
		g.last = rec.End
	}

	g.threads[rec.ThreadKey()] = struct{}{}
	return nil
}

// Merge combines another writable group into this one. other is not modified.
func (g *Group) Merge(other *Group) error {
	if other == nil {
		return nil
	}
	if g.state == Finalized {
		return errors.Wrapf(errors.ErrGroupFinalized, "merge into %s", g.key)
	}
	if other.state == Finalized {
		return errors.Wrapf(errors.ErrGroupFinalized, "merge from %s", other.key)
	}
	if other.key != g.key {
		return errors.NewInvariant("merge %s into %s", other.key, g.key)
	}
	if other.count == 0 {
		return nil
	}

	if err := g.lat.merge(other.lat); err != nil {
		return err
	}

	g.count += other.count
	g.latSum += other.latSum
	if other.latMax > g.latMax {
		g.latMax = other.latMax
	}
	g.bytes += other.bytes

	if g.first.IsZero() || other.first.Before(g.first) {
		g.first = other.first
	}
	if other.last.After(g.last) {
		g.last = other.last
	}

	for id := range other.threads {
		g.threads[id] = struct{}{}
	}
	return nil
}

// Finalize computes the statistics and makes the group read-only.
// Calling Finalize again returns the same result.
func (g *Group) Finalize() Result {
	if g.state == Finalized {
		return g.result
	}
	g.state = Finalized

	r := Result{
		Key:     g.key,
		Count:   g.count,
		Bytes:   g.bytes,
		Threads: len(g.threads),
		Start:   g.first,
		End:     g.last,
	}

	if g.count > 0 {
		n := float64(g.count)
		r.Mean = g.latSum / n
		r.Median = g.lat.quantile(0.50)
		r.P90 = g.lat.quantile(0.90)
		r.P95 = g.lat.quantile(0.95)
		r.P99 = g.lat.quantile(0.99)
		r.Max = g.latMax
		r.AvgObjectKiB = float64(g.bytes) / n / 1024

		window := g.last.Sub(g.first)
		r.Runtime = window.Seconds()
		if window > 0 {
			ops := n / r.Runtime
			mibps := float64(g.bytes) / r.Runtime / (1 << 20)
			r.OpsPerSec = &ops
			r.MiBPerSec = &mibps
		}
	}

	g.result = r
	return r
}

// Key returns the group key.
func (g *Group) Key() group.Key {
	return g.key
}

// State returns the lifecycle state.
func (g *Group) State() State {
	return g.state
}

// Count returns the number of records added.
func (g *Group) Count() int64 {
	return g.count
}

// IsEmpty returns true if no records have been added.
func (g *Group) IsEmpty() bool {
	return g.count == 0
}

// Window returns the earliest start and latest end seen by the group.
func (g *Group) Window() (time.Time, time.Time) {
	return g.first, g.last
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
