// Package ingest decodes benchmark oplogs into validated records.
//
// Delimited files (tab or comma, optionally zstd-compressed) are read with the
// built-in reader or, with the duckdb engine, through DuckDB's read_csv.
// Parquet oplogs are read with parquet-go. Inputs may be local paths or
// s3:// URLs.
//
// Invalid rows are rejected individually and counted by reason. A file whose
// header lacks required columns, or that cannot be read, fails as a whole.
package ingest

import (
	"context"
	"time"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/logging"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// Engine names.
const (
	EngineCSV    = "csv"
	EngineDuckDB = "duckdb"
)

// Format is the detected on-disk format of an input.
type Format string

const (
	FormatTSV     Format = "tsv"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Options configures decoding.
type Options struct {
	// Engine is EngineCSV or EngineDuckDB. Parquet inputs ignore it.
	Engine string

	// Separator is "auto", "tab" or "comma".
	Separator string

	// Tolerance is the allowed drift between duration and end-start.
	Tolerance time.Duration

	// SampleRows keeps the first n data rows verbatim in Stream.Sample.
	SampleRows int

	S3 S3Options
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Engine:    EngineCSV,
		Separator: "auto",
		Tolerance: time.Millisecond,
	}
}

// Stream is the decoded content of one input.
type Stream struct {
	Path    string
	Format  Format
	Columns []string

	// Records are the rows that passed validation, in file order.
	Records []oplog.Record

	// Rows counts data rows seen, valid or not.
	Rows int

	Rejects oplog.Rejects

	// Sample holds the first Options.SampleRows rows as read.
	Sample [][]string
}

// decoder turns one input into a stream.
type decoder interface {
	decode(ctx context.Context, path string, opts Options) (*Stream, error)
}

// Decode reads and validates one input. The error is non-nil only when the
// file as a whole could not be decoded; a header without data rows yields an
// empty stream.
func Decode(ctx context.Context, path string, opts Options) (*Stream, error) {
	log := logging.WithContext(logging.ContextWithSource(ctx, path)).With("component", "ingest")

	var dec decoder
	switch {
	case IsParquet(path):
		dec = parquetDecoder{}
	case opts.Engine == EngineDuckDB && !IsS3(path):
		dec = duckdbDecoder{}
	case opts.Engine == EngineDuckDB:
		log.Debug("duckdb engine reads local files only, using built-in reader")
		dec = csvDecoder{}
	case opts.Engine == EngineCSV || opts.Engine == "":
		dec = csvDecoder{}
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedFormat, "unknown engine %q", opts.Engine)
	}

	start := time.Now()
	s, err := dec.decode(ctx, path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	if s.Rows == 0 {
		log.Warn("no data rows after header")
	}

	log.Debug("decoded",
		"format", s.Format,
		"rows", s.Rows,
		"records", len(s.Records),
		"rejected", s.Rejects.Total,
		"took", time.Since(start))

	if s.Rejects.Total > 0 {
		log.Warn("rows rejected", "count", s.Rejects.Total, "first", s.Rejects.First[0])
	}
	return s, nil
}

// accept validates one raw row and adds it to the stream.
func (s *Stream) accept(line int, raw oplog.Raw, parseErr error, tolerance time.Duration) {
	s.Rows++
	if parseErr != nil {
		s.Rejects.Add(errors.NewRowError(line, parseErr))
		return
	}
	rec, err := raw.Record(tolerance)
	if err != nil {
		s.Rejects.Add(errors.NewRowError(line, err))
		return
	}
	s.Records = append(s.Records, rec)
}

func (s *Stream) sample(fields []string, n int) {
	if len(s.Sample) >= n {
		return
	}
	row := make([]string, len(fields))
	copy(row, fields)
	s.Sample = append(s.Sample, row)
}
