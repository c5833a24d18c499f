// Package analyzer runs the per-file pipelines and consolidates their results.
//
// Each input is decoded, filtered and aggregated by its own goroutine, bounded
// by Options.Workers. Consolidation starts once every pipeline has finished;
// it is the only point where results of different files meet.
package analyzer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/polarwarp/internal/aggregate"
	"github.com/xtxerr/polarwarp/internal/consolidate"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/ingest"
	"github.com/xtxerr/polarwarp/internal/logging"
	"github.com/xtxerr/polarwarp/internal/oplog"
	"github.com/xtxerr/polarwarp/internal/report"
	"github.com/xtxerr/polarwarp/internal/window"
)

// Options configures a run.
type Options struct {
	Skip      time.Duration
	Builder   group.Builder
	Aggregate aggregate.Options
	Ingest    ingest.Options

	// Workers bounds the number of files processed at once.
	Workers int

	// FailFast aborts the run on the first file that cannot be decoded.
	FailFast bool

	// OverlapConcurrent is the overlap ratio at which files count as
	// concurrent.
	OverlapConcurrent float64

	Precision int
}

// FileReport describes the outcome of one input.
type FileReport struct {
	Path   string
	Format ingest.Format

	// Rows counts data rows read; Records those that passed validation.
	Rows    int
	Records int
	Rejects oplog.Rejects

	Cutoff    time.Time
	Kept      int
	Skipped   int
	FileStart time.Time
	FileEnd   time.Time
	Start     time.Time
	End       time.Time

	Groups int

	// Err is set when the file contributed nothing.
	Err error
}

// Failed reports whether the file could not be analyzed.
func (f *FileReport) Failed() bool {
	return f.Err != nil
}

// Runtime is the span of the rows kept after the warm-up cutoff.
func (f *FileReport) Runtime() time.Duration {
	if f.Kept == 0 {
		return 0
	}
	return f.End.Sub(f.Start)
}

// Run is the result of analyzing a set of files.
type Run struct {
	Files []FileReport

	// Tables holds one table per file per dimension, followed by the
	// consolidated tables when more than one file produced records.
	Tables []report.Table

	Overlap window.Overlap
	Mode    window.Mode

	Took time.Duration
}

// Failed returns the reports of files that contributed nothing.
func (r *Run) Failed() []FileReport {
	var out []FileReport
	for _, f := range r.Files {
		if f.Failed() {
			out = append(out, f)
		}
	}
	return out
}

// Records is the number of records aggregated across all files.
func (r *Run) Records() int {
	n := 0
	for _, f := range r.Files {
		n += f.Kept
	}
	return n
}

// Analyze processes paths and assembles the output tables. The returned error
// is non-nil when the context is canceled, when FailFast is set and a file
// fails, on an aggregation invariant violation, or when no file produced a
// single record. A partial run still returns the Run alongside the error.
func Analyze(ctx context.Context, paths []string, opts Options) (*Run, error) {
	log := logging.WithContext(ctx).With("component", "analyzer")
	started := time.Now()

	if len(paths) == 0 {
		return nil, errors.Wrap(errors.ErrNoRecords, "no input files")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	files := make([]FileReport, len(paths))
	sets := make([]*aggregate.Set, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			set, fr, err := processFile(gctx, path, opts)
			files[i] = fr
			if err == nil {
				sets[i] = set
				return nil
			}

			files[i].Err = err
			if errors.IsFatal(err) || gctx.Err() != nil {
				return err
			}
			if opts.FailFast {
				return errors.Wrapf(err, "fail fast on %s", path)
			}
			log.Warn("file skipped", "path", path, "error", err)
			return nil
		})
	}

	waitErr := g.Wait()

	run := &Run{Files: files}
	if waitErr != nil {
		run.Took = time.Since(started)
		return run, waitErr
	}

	if err := run.assemble(sets, opts); err != nil {
		run.Took = time.Since(started)
		return run, err
	}

	run.Took = time.Since(started)
	log.Info("analysis complete",
		"files", len(paths),
		"failed", len(run.Failed()),
		"records", run.Records(),
		"tables", len(run.Tables),
		"took", run.Took)

	return run, nil
}

// processFile runs one file through decode, warm-up filter and aggregation.
// The returned set is still writable.
func processFile(ctx context.Context, path string, opts Options) (*aggregate.Set, FileReport, error) {
	fr := FileReport{Path: path}
	log := logging.WithContext(logging.ContextWithSource(ctx, path))

	stream, err := ingest.Decode(ctx, path, opts.Ingest)
	if stream != nil {
		fr.Format = stream.Format
		fr.Rows = stream.Rows
		fr.Records = len(stream.Records)
		fr.Rejects = stream.Rejects
	}
	if err != nil {
		return nil, fr, err
	}

	res := window.Apply(stream.Records, opts.Skip)
	fr.Cutoff = res.Cutoff
	fr.Kept = res.Kept
	fr.Skipped = res.Skipped
	fr.FileStart, fr.FileEnd = res.FileStart, res.FileEnd
	fr.Start, fr.End = res.Start, res.End

	if res.Skipped > 0 {
		log.Debug("warm-up skipped", "cutoff", res.Cutoff, "skipped", res.Skipped, "kept", res.Kept)
	}

	set := aggregate.NewSet(opts.Builder, opts.Aggregate)
	if err := set.AddBatch(res.Records); err != nil {
		return nil, fr, err
	}
	fr.Groups = set.Len()
	return set, fr, nil
}

// assemble consolidates the writable sets, then finalizes every set and
// builds the tables.
func (r *Run) assemble(sets []*aggregate.Set, opts Options) error {
	log := logging.Component("analyzer")

	var live []*aggregate.Set
	var spans []window.Span
	for i, s := range sets {
		if s == nil {
			continue
		}
		live = append(live, s)
		if r.Files[i].Kept > 0 {
			spans = append(spans, window.Span{Start: r.Files[i].Start, End: r.Files[i].End})
		}
	}
	if len(live) == 0 {
		return errors.Wrap(errors.ErrNoRecords, "every input failed")
	}

	r.Overlap = window.Compare(spans)
	r.Mode = r.Overlap.Classify(len(spans), opts.OverlapConcurrent)
	switch r.Mode {
	case window.ModeSequential:
		log.Warn("files ran sequentially, consolidated rates use per-group windows")
	case window.ModePartial:
		log.Warn("files only partially overlap", "overlap", r.Overlap.Ratio)
	}

	var merged *aggregate.Set
	if len(live) > 1 {
		var err error
		if merged, err = consolidate.Merge(live...); err != nil {
			return err
		}
	}

	ropts := report.Options{Precision: opts.Precision}
	for i, s := range sets {
		if s == nil {
			continue
		}
		results := s.Finalize()
		ropts.Runtime = r.Files[i].Runtime()
		for _, dim := range s.Dimensions() {
			r.Tables = append(r.Tables, report.Assemble(r.Files[i].Path, dim, results, ropts))
		}
	}

	if merged != nil {
		results := merged.Finalize()
		ropts.Runtime = r.Overlap.UnionEnd.Sub(r.Overlap.UnionStart)
		for _, dim := range merged.Dimensions() {
			r.Tables = append(r.Tables, report.Assemble(report.Consolidated, dim, results, ropts))
		}
	}
	return nil
}
