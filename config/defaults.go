// Package config provides configuration defaults and utilities
// for the polarwarp application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via polarwarp.yaml or command line flags.
package config

import "time"

// =============================================================================
// Analysis Defaults
// =============================================================================

const (
	// DefaultSkip is the warm-up period dropped from the start of each file.
	// Zero keeps every row.
	// Override via config: analysis.skip
	DefaultSkip = time.Duration(0)

	// DefaultWorkers is the number of files analyzed concurrently.
	// Override via config: analysis.workers
	DefaultWorkers = 4

	// DefaultOverlapConcurrent is the overlap/union ratio at or above which
	// files are considered to have run concurrently.
	// Override via config: analysis.overlap_concurrent
	DefaultOverlapConcurrent = 0.97
)

// =============================================================================
// Percentile Defaults
// =============================================================================

const (
	// DefaultPercentileMode retains every latency observation.
	// "sketch" bounds memory with DDSketch at the cost of exactness.
	// Override via config: percentile.mode
	DefaultPercentileMode = "exact"

	// DefaultSketchAccuracy is the DDSketch relative accuracy (0.01 = 1% error).
	// Override via config: percentile.accuracy
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Ingest Defaults
// =============================================================================

const (
	// DefaultEngine decodes delimited oplogs with the built-in reader.
	// "duckdb" uses DuckDB's read_csv instead.
	// Override via config: ingest.engine
	DefaultEngine = "csv"

	// DefaultSeparator detects tab or comma from the header line.
	// Override via config: ingest.separator
	DefaultSeparator = "auto"

	// DefaultDurationTolerance is how far duration_ns may drift from end-start
	// before a row is rejected.
	// Override via config: ingest.duration_tolerance
	DefaultDurationTolerance = time.Millisecond

	// DefaultInspectRows is the number of sample rows printed by inspect.
	DefaultInspectRows = 5
)

// =============================================================================
// Output Defaults
// =============================================================================

const (
	// DefaultOutputFormat renders text tables on stdout.
	// Override via config: output.format
	DefaultOutputFormat = "table"

	// DefaultPrecision is the number of decimals numeric fields are rounded to.
	// Override via config: output.precision
	DefaultPrecision = 2

	// DefaultCompactWidth is the terminal width below which the compact
	// column set is rendered.
	DefaultCompactWidth = 160

	// UndefinedMarker is printed for rates whose runtime window is zero.
	UndefinedMarker = "N/A"
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the minimum level written to stderr.
	// Override via config: log.level
	DefaultLogLevel = "info"

	// DefaultLogFormat is "text" or "json".
	// Override via config: log.format
	DefaultLogFormat = "text"
)
