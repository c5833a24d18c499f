package oplog

import (
	"strings"
	"time"

	"github.com/xtxerr/polarwarp/internal/errors"
)

// Op is an operation code as written by the benchmark tool, upper-cased.
type Op string

const (
	OpGet    Op = "GET"
	OpPut    Op = "PUT"
	OpList   Op = "LIST"
	OpHead   Op = "HEAD"
	OpDelete Op = "DELETE"
	OpStat   Op = "STAT"
)

// ParseOp normalizes an operation code. Unknown codes are preserved.
func ParseOp(s string) Op {
	return Op(strings.ToUpper(strings.TrimSpace(s)))
}

// String returns the operation code.
func (o Op) String() string {
	return string(o)
}

// Known reports whether o is one of the operation codes the benchmark tools emit.
func (o Op) Known() bool {
	switch o {
	case OpGet, OpPut, OpList, OpHead, OpDelete, OpStat:
		return true
	}
	return false
}

// Record is one validated operation from an oplog. Records are immutable
// values; every timestamp is UTC.
type Record struct {
	Op       Op
	Bytes    int64
	Endpoint string
	Client   string
	Thread   string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// ThreadKey identifies the worker that issued the operation. Thread numbers
// restart on every client, so the client id is part of the identity.
func (r *Record) ThreadKey() string {
	return r.Client + "/" + r.Thread
}

// Raw holds the fields of one decoded row before validation. Nil pointers and
// zero times mean the column was absent or empty.
type Raw struct {
	Op       string
	Bytes    *int64
	Endpoint string
	Client   string
	Thread   string
	Start    time.Time
	End      time.Time
	Duration *time.Duration
}

// Record validates r and derives the missing one of end and duration.
// A tolerance <= 0 disables the duration consistency check.
func (r Raw) Record(tolerance time.Duration) (Record, error) {
	op := ParseOp(r.Op)
	if op == "" {
		return Record{}, errors.NewMissingField("op")
	}
	if r.Bytes == nil {
		return Record{}, errors.NewMissingField("bytes")
	}
	if *r.Bytes < 0 {
		return Record{}, errors.Wrapf(errors.ErrNegativeSize, "bytes=%d", *r.Bytes)
	}
	if r.Thread == "" && r.Client == "" {
		return Record{}, errors.NewMissingField("thread")
	}
	if r.Endpoint == "" {
		return Record{}, errors.NewMissingField("endpoint")
	}
	if r.Start.IsZero() {
		return Record{}, errors.NewMissingField("start")
	}
	if r.End.IsZero() && r.Duration == nil {
		return Record{}, errors.NewMissingField("end")
	}

	rec := Record{
		Op:       op,
		Bytes:    *r.Bytes,
		Endpoint: r.Endpoint,
		Client:   r.Client,
		Thread:   r.Thread,
		Start:    r.Start.UTC(),
	}

	if r.Duration != nil && *r.Duration < 0 {
		return Record{}, errors.Wrapf(errors.ErrNegativeDuration, "duration=%s", *r.Duration)
	}

	switch {
	case r.End.IsZero():
		rec.Duration = *r.Duration
		rec.End = rec.Start.Add(rec.Duration)
	case r.Duration == nil:
		rec.End = r.End.UTC()
		rec.Duration = rec.End.Sub(rec.Start)
	default:
		rec.End = r.End.UTC()
		rec.Duration = *r.Duration
	}

	if rec.End.Before(rec.Start) {
		return Record{}, errors.Wrapf(errors.ErrEndBeforeStart, "start=%s end=%s",
			rec.Start.Format(time.RFC3339Nano), rec.End.Format(time.RFC3339Nano))
	}

	if tolerance > 0 {
		drift := rec.Duration - rec.End.Sub(rec.Start)
		if drift < 0 {
			drift = -drift
		}
		if drift > tolerance {
			return Record{}, errors.Wrapf(errors.ErrDurationMismatch, "drift %s exceeds %s", drift, tolerance)
		}
	}

	return rec, nil
}

// Batch is the bounded record sequence of one input file.
type Batch struct {
	Records []Record
}

// NewBatch creates a new batch with the given capacity.
func NewBatch(capacity int) *Batch {
	return &Batch{
		Records: make([]Record, 0, capacity),
	}
}

// Add appends a record to the batch.
func (b *Batch) Add(r Record) {
	b.Records = append(b.Records, r)
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Records)
}

// Span returns the earliest start and latest end in the batch. ok is false
// for an empty batch.
func (b *Batch) Span() (first, last time.Time, ok bool) {
	for i := range b.Records {
		r := &b.Records[i]
		if !ok || r.Start.Before(first) {
			first = r.Start
		}
		if !ok || r.End.After(last) {
			last = r.End
		}
		ok = true
	}
	return first, last, ok
}
