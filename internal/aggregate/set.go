package aggregate

import (
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// Set manages the groups of one file (or of one consolidation) across every
// enabled dimension. Groups are created lazily on the first matching record.
type Set struct {
	builder group.Builder
	opts    Options
	dims    []group.Dimension

	// Active groups: key -> group
	groups map[group.Key]*Group

	finalized bool
	results   []Result

	stats SetStats
}

// SetStats holds counters for a set.
type SetStats struct {
	Groups           int
	RecordsProcessed int64
	MergedSets       int
}

// NewSet creates an empty writable set.
func NewSet(builder group.Builder, opts Options) *Set {
	return &Set{
		builder: builder,
		opts:    opts,
		dims:    builder.Dimensions(),
		groups:  make(map[group.Key]*Group),
	}
}

// Add attributes one record to its detail and summary group in every dimension.
func (s *Set) Add(rec *oplog.Record) error {
	if s.finalized {
		return errors.Wrap(errors.ErrGroupFinalized, "add to finalized set")
	}

	for _, dim := range s.dims {
		detail, summary := s.builder.Keys(rec, dim)
		for _, key := range [2]group.Key{detail, summary} {
			g, err := s.group(key)
			if err != nil {
				return err
			}
			if err := g.Add(rec); err != nil {
				return err
			}
		}
	}

	s.stats.RecordsProcessed++
	return nil
}

// AddBatch adds records in order, stopping at the first invariant violation.
func (s *Set) AddBatch(records []oplog.Record) error {
	for i := range records {
		if err := s.Add(&records[i]); err != nil {
			return err
		}
	}
	return nil
}

// Merge folds another writable set into this one. other is not modified.
// Both sets must use the same breakdowns.
func (s *Set) Merge(other *Set) error {
	if other == nil {
		return nil
	}
	if s.finalized {
		return errors.Wrap(errors.ErrGroupFinalized, "merge into finalized set")
	}
	if other.finalized {
		return errors.Wrap(errors.ErrGroupFinalized, "merge from finalized set")
	}
	if other.builder != s.builder {
		return errors.NewInvariant("merge sets with different breakdowns: %+v vs %+v", other.builder, s.builder)
	}

	for key, src := range other.groups {
		dst, err := s.group(key)
		if err != nil {
			return err
		}
		if err := dst.Merge(src); err != nil {
			return err
		}
	}

	s.stats.RecordsProcessed += other.stats.RecordsProcessed
	s.stats.MergedSets++
	return nil
}

// Finalize finalizes every group and returns their results in no particular
// order. Subsequent calls return the same results.
func (s *Set) Finalize() []Result {
	if s.finalized {
		return s.results
	}
	s.finalized = true

	s.results = make([]Result, 0, len(s.groups))
	for _, g := range s.groups {
		s.results = append(s.results, g.Finalize())
	}
	return s.results
}

// Results returns the finalized results of one dimension.
func (s *Set) Results(dim group.Dimension) []Result {
	all := s.Finalize()
	out := make([]Result, 0, len(all))
	for i := range all {
		if all[i].Key.Dim == dim {
			out = append(out, all[i])
		}
	}
	return out
}

// Dimensions returns the dimensions aggregated by the set.
func (s *Set) Dimensions() []group.Dimension {
	return s.dims
}

// Builder returns the key builder of the set.
func (s *Set) Builder() group.Builder {
	return s.builder
}

// Options returns the latency retention options of the set.
func (s *Set) Options() Options {
	return s.opts
}

// IsFinalized reports whether Finalize has been called.
func (s *Set) IsFinalized() bool {
	return s.finalized
}

// Len returns the number of groups.
func (s *Set) Len() int {
	return len(s.groups)
}

// Stats returns current statistics.
func (s *Set) Stats() SetStats {
	stats := s.stats
	stats.Groups = len(s.groups)
	return stats
}

// group returns the group for key, creating it if needed.
func (s *Set) group(key group.Key) (*Group, error) {
	if g, ok := s.groups[key]; ok {
		return g, nil
	}
	g, err := New(key, s.opts)
	if err != nil {
		return nil, err
	}
	s.groups[key] = g
	return g, nil
}
