// Package window drops the warm-up period at the start of each oplog file.
package window

import (
	"time"

	"github.com/xtxerr/polarwarp/internal/oplog"
)

// Result is the outcome of filtering one file.
type Result struct {
	// Records are the rows that survived the cutoff, in input order.
	Records []oplog.Record

	// Cutoff is the earliest file start plus skip. Zero when nothing was skipped
	// or the file was empty.
	Cutoff time.Time

	Kept    int
	Skipped int

	// FileStart and FileEnd span every row of the file, before filtering.
	FileStart time.Time
	FileEnd   time.Time

	// Start and End span the kept rows. Both are zero when no row was kept.
	Start time.Time
	End   time.Time
}

// Runtime is the span of the kept rows.
func (r *Result) Runtime() time.Duration {
	if r.Kept == 0 {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Apply filters the records of a single file. The cutoff is computed from this
// file's own earliest start; rows starting at or before it are dropped.
// A skip <= 0 keeps every row and returns the input slice unchanged.
func Apply(records []oplog.Record, skip time.Duration) Result {
	batch := oplog.Batch{Records: records}
	first, last, ok := batch.Span()
	if !ok {
		return Result{}
	}

	res := Result{
		FileStart: first,
		FileEnd:   last,
	}

	if skip <= 0 {
		res.Records = records
		res.Kept = len(records)
		res.Start, res.End = first, last
		return res
	}

	res.Cutoff = first.Add(skip)
	kept := make([]oplog.Record, 0, len(records))
	for i := range records {
		if !records[i].Start.After(res.Cutoff) {
			res.Skipped++
			continue
		}
		kept = append(kept, records[i])
	}

	res.Records = kept
	res.Kept = len(kept)
	if res.Kept > 0 {
		res.Start, res.End, _ = (&oplog.Batch{Records: kept}).Span()
	}
	return res
}

// Overlap classifies how the runtime windows of several files relate.
type Overlap struct {
	// Start and End bound the span all files were running (latest start,
	// earliest end). Zero when they never overlap.
	Start time.Time
	End   time.Time

	// UnionStart and UnionEnd bound the span any file was running.
	UnionStart time.Time
	UnionEnd   time.Time

	// Ratio is overlap duration over union duration, 0..1.
	Ratio float64
}

// Mode describes the relationship between file windows.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeSequential Mode = "sequential"
	ModePartial    Mode = "partial"
	ModeConcurrent Mode = "concurrent"
)

// Span is the runtime window of one file.
type Span struct {
	Start time.Time
	End   time.Time
}

// Compare computes the overlap between file spans. Empty spans are ignored.
func Compare(spans []Span) Overlap {
	var ov Overlap
	n := 0
	for _, s := range spans {
		if s.Start.IsZero() && s.End.IsZero() {
			continue
		}
		if n == 0 {
			ov.Start, ov.End = s.Start, s.End
			ov.UnionStart, ov.UnionEnd = s.Start, s.End
			n++
			continue
		}
		if s.Start.After(ov.Start) {
			ov.Start = s.Start
		}
		if s.End.Before(ov.End) {
			ov.End = s.End
		}
		if s.Start.Before(ov.UnionStart) {
			ov.UnionStart = s.Start
		}
		if s.End.After(ov.UnionEnd) {
			ov.UnionEnd = s.End
		}
		n++
	}

	if n == 0 || !ov.End.After(ov.Start) {
		ov.Start, ov.End = time.Time{}, time.Time{}
		return ov
	}

	union := ov.UnionEnd.Sub(ov.UnionStart)
	if union > 0 {
		ov.Ratio = float64(ov.End.Sub(ov.Start)) / float64(union)
	}
	return ov
}

// Classify returns the overlap mode for n files given the concurrency threshold.
func (o Overlap) Classify(n int, threshold float64) Mode {
	switch {
	case n <= 1:
		return ModeSingle
	case o.Ratio <= 0:
		return ModeSequential
	case o.Ratio < threshold:
		return ModePartial
	default:
		return ModeConcurrent
	}
}

// Duration is the length of the overlap window.
func (o Overlap) Duration() time.Duration {
	return o.End.Sub(o.Start)
}
