package aggregate

import (
	"math"
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/polarwarp/internal/errors"
)

// Mode selects how latency observations are retained.
type Mode string

const (
	// ModeExact keeps every observation; percentiles are exact order statistics.
	ModeExact Mode = "exact"

	// ModeSketch keeps a DDSketch per group; memory is bounded and percentiles
	// carry the configured relative error.
	ModeSketch Mode = "sketch"
)

// Options configures latency retention.
type Options struct {
	Mode     Mode
	Accuracy float64
}

// DefaultOptions returns exact retention.
func DefaultOptions() Options {
	return Options{Mode: ModeExact, Accuracy: 0.01}
}

// latencies is a mergeable set of latency observations in microseconds.
type latencies interface {
	add(v float64) error
	merge(other latencies) error
	quantile(q float64) float64
	len() int
}

func newLatencies(opts Options) (latencies, error) {
	switch opts.Mode {
	case ModeExact, "":
		return &samples{}, nil
	case ModeSketch:
		sketch, err := ddsketch.NewDefaultDDSketch(opts.Accuracy)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "sketch accuracy %v: %v", opts.Accuracy, err)
		}
		return &sketchLatencies{sketch: sketch}, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown percentile mode %q", opts.Mode)
	}
}

// samples retains every observation.
type samples struct {
	values []float64
	sorted bool
}

func (s *samples) add(v float64) error {
	s.values = append(s.values, v)
	s.sorted = false
	return nil
}

func (s *samples) merge(other latencies) error {
	o, ok := other.(*samples)
	if !ok {
		return errors.NewInvariant("cannot merge %T into exact latencies", other)
	}
	s.values = append(s.values, o.values...)
	s.sorted = false
	return nil
}

// quantile interpolates linearly between the closest ranks (h = q*(n-1)).
func (s *samples) quantile(q float64) float64 {
	n := len(s.values)
	if n == 0 {
		return 0
	}
	if !s.sorted {
		sort.Float64s(s.values)
		s.sorted = true
	}

	h := q * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return s.values[n-1]
	}
	if lo < 0 {
		return s.values[0]
	}
	return s.values[lo] + (h-float64(lo))*(s.values[lo+1]-s.values[lo])
}

func (s *samples) len() int {
	return len(s.values)
}

// sketchLatencies retains a DDSketch.
type sketchLatencies struct {
	sketch *ddsketch.DDSketch
}

// add fails only for values validation already rejects (negative or not finite).
func (s *sketchLatencies) add(v float64) error {
	if err := s.sketch.Add(v); err != nil {
		return errors.NewInvariant("sketch add %v: %v", v, err)
	}
	return nil
}

func (s *sketchLatencies) merge(other latencies) error {
	o, ok := other.(*sketchLatencies)
	if !ok {
		return errors.NewInvariant("cannot merge %T into sketch latencies", other)
	}
	if err := s.sketch.MergeWith(o.sketch); err != nil {
		return errors.NewInvariant("merge sketches: %v", err)
	}
	return nil
}

func (s *sketchLatencies) quantile(q float64) float64 {
	v, err := s.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return v
}

func (s *sketchLatencies) len() int {
	return int(s.sketch.GetCount())
}
