// Package report orders and rounds finalized group statistics into output tables.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/xtxerr/polarwarp/internal/aggregate"
	"github.com/xtxerr/polarwarp/internal/group"
)

// Row is one output line. Latencies are microseconds.
type Row struct {
	Op        string
	Bucket    string
	BucketNum int
	Endpoint  string
	Client    string
	Summary   bool

	Mean   float64
	Median float64
	P90    float64
	P95    float64
	P99    float64
	Max    float64

	AvgObjectKiB float64

	// OpsPerSec and MiBPerSec are nil when the group's runtime window is zero.
	OpsPerSec *float64
	MiBPerSec *float64

	Count   int64
	Threads int
	Runtime float64 // seconds
}

// Total is the grand total line of a table.
type Total struct {
	Ops     int64
	Runtime float64 // seconds

	// OpsPerSec is nil when the runtime is zero.
	OpsPerSec *float64
}

// Table is the assembled output of one source for one dimension.
type Table struct {
	// Source is the input file path, or Consolidated.
	Source string
	Dim    group.Dimension
	Rows   []Row
	Total  Total
}

// Consolidated is the Source of tables merged across files.
const Consolidated = "consolidated"

// Options controls assembly.
type Options struct {
	// Precision is the number of decimals numeric fields are rounded to.
	Precision int

	// Runtime is the span used for the grand total rate: the file runtime, or
	// the union of file runtimes for consolidated tables.
	Runtime time.Duration
}

// Assemble builds the table of one dimension from finalized results. Results
// of other dimensions are ignored.
func Assemble(source string, dim group.Dimension, results []aggregate.Result, opts Options) Table {
	t := Table{Source: source, Dim: dim}

	for i := range results {
		r := &results[i]
		if r.Key.Dim != dim {
			continue
		}
		t.Rows = append(t.Rows, newRow(r, opts.Precision))
		if r.Key.Summary {
			t.Total.Ops += r.Count
		}
	}

	Sort(t.Rows, dim)

	// In sliced dimensions each record is counted once per slice, which
	// partition the records, so the summary counts still sum to the total.
	t.Total.Runtime = round(opts.Runtime.Seconds(), opts.Precision)
	if opts.Runtime > 0 {
		rate := round(float64(t.Total.Ops)/opts.Runtime.Seconds(), opts.Precision)
		t.Total.OpsPerSec = &rate
	}
	return t
}

func newRow(r *aggregate.Result, precision int) Row {
	row := Row{
		Op:           r.Key.Op,
		Bucket:       r.Key.Label(),
		BucketNum:    r.Key.Number(),
		Endpoint:     r.Key.Endpoint,
		Client:       r.Key.Client,
		Summary:      r.Key.Summary,
		Mean:         round(r.Mean, precision),
		Median:       round(r.Median, precision),
		P90:          round(r.P90, precision),
		P95:          round(r.P95, precision),
		P99:          round(r.P99, precision),
		Max:          round(r.Max, precision),
		AvgObjectKiB: round(r.AvgObjectKiB, precision),
		Count:        r.Count,
		Threads:      r.Threads,
		Runtime:      round(r.Runtime, precision),
	}
	if r.OpsPerSec != nil {
		v := round(*r.OpsPerSec, precision)
		row.OpsPerSec = &v
	}
	if r.MiBPerSec != nil {
		v := round(*r.MiBPerSec, precision)
		row.MiBPerSec = &v
	}
	return row
}

// Sort orders rows: by slice (endpoint or client) name, then summary rows
// META, GET, PUT, OTHER, then detail rows by bucket and operation name.
func Sort(rows []Row, dim group.Dimension) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]

		if sa, sb := a.slice(dim), b.slice(dim); sa != sb {
			return sa < sb
		}
		if a.Summary != b.Summary {
			return a.Summary
		}
		if a.Summary {
			return group.Class(a.Op).Rank() < group.Class(b.Op).Rank()
		}
		if a.BucketNum != b.BucketNum {
			return a.BucketNum < b.BucketNum
		}
		return a.Op < b.Op
	})
}

func (r *Row) slice(dim group.Dimension) string {
	switch dim {
	case group.ByEndpoint:
		return r.Endpoint
	case group.ByClient:
		return r.Client
	}
	return ""
}

// Degenerate reports whether the row's rates are undefined.
func (r *Row) Degenerate() bool {
	return r.OpsPerSec == nil
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
