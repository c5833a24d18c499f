package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/report"
)

// ParquetOptions configures the parquet writer.
type ParquetOptions struct {
	// Compression algorithm
	Compression CompressionType

	// RowGroupSize is the target number of rows per row group
	RowGroupSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultParquetOptions returns default parquet options.
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression:  CompressionZstd,
		RowGroupSize: 100000,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ResultRow is one output row in parquet form. Undefined rates are null.
type ResultRow struct {
	Source       string   `parquet:"source,dict"`
	Dimension    string   `parquet:"dimension,dict"`
	Op           string   `parquet:"op,dict"`
	Bucket       string   `parquet:"bucket,dict"`
	BucketNum    int32    `parquet:"bucket_num"`
	Endpoint     string   `parquet:"endpoint,dict"`
	Client       string   `parquet:"client,dict"`
	Summary      bool     `parquet:"summary"`
	MeanUs       float64  `parquet:"mean_us"`
	MedianUs     float64  `parquet:"median_us"`
	P90Us        float64  `parquet:"p90_us"`
	P95Us        float64  `parquet:"p95_us"`
	P99Us        float64  `parquet:"p99_us"`
	MaxUs        float64  `parquet:"max_us"`
	AvgObjectKiB float64  `parquet:"avg_object_kib"`
	OpsPerSec    *float64 `parquet:"ops_per_sec,optional"`
	MiBPerSec    *float64 `parquet:"mib_per_sec,optional"`
	Count        int64    `parquet:"count"`
	Threads      int32    `parquet:"threads"`
	RuntimeS     float64  `parquet:"runtime_s"`
}

// ToResultRow converts a table row.
func ToResultRow(t *report.Table, r *report.Row) ResultRow {
	return ResultRow{
		Source:       t.Source,
		Dimension:    string(t.Dim),
		Op:           r.Op,
		Bucket:       r.Bucket,
		BucketNum:    int32(r.BucketNum),
		Endpoint:     r.Endpoint,
		Client:       r.Client,
		Summary:      r.Summary,
		MeanUs:       r.Mean,
		MedianUs:     r.Median,
		P90Us:        r.P90,
		P95Us:        r.P95,
		P99Us:        r.P99,
		MaxUs:        r.Max,
		AvgObjectKiB: r.AvgObjectKiB,
		OpsPerSec:    r.OpsPerSec,
		MiBPerSec:    r.MiBPerSec,
		Count:        r.Count,
		Threads:      int32(r.Threads),
		RuntimeS:     r.Runtime,
	}
}

// ResultWriter writes result rows to a parquet file.
type ResultWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[ResultRow]
	rowCount int64
	closed   bool
}

// NewResultWriter creates a new parquet result writer.
func NewResultWriter(path string, opts ParquetOptions) (*ResultWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}
	if opts.RowGroupSize > 0 {
		writerOpts = append(writerOpts, parquet.MaxRowsPerRowGroup(int64(opts.RowGroupSize)))
	}

	return &ResultWriter{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[ResultRow](f, writerOpts...),
	}, nil
}

// Write appends the rows of one table.
func (w *ResultWriter) Write(t *report.Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}

	rows := make([]ResultRow, len(t.Rows))
	for i := range t.Rows {
		rows[i] = ToResultRow(t, &t.Rows[i])
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	w.rowCount += int64(n)
	return nil
}

// Close flushes and closes the file.
func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *ResultWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// WriteParquet exports every table to path.
func WriteParquet(path string, tables []report.Table, opts ParquetOptions) error {
	w, err := NewResultWriter(path, opts)
	if err != nil {
		return err
	}
	for i := range tables {
		if err := w.Write(&tables[i]); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadParquet loads result rows written by WriteParquet.
func ReadParquet(path string) ([]ResultRow, error) {
	rows, err := parquet.ReadFile[ResultRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
