package config

import (
	"errors"
	"fmt"

	perrors "github.com/xtxerr/polarwarp/internal/errors"
)

// Validate checks the configuration for errors. The returned error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	// Analysis
	if err := c.Analysis.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analysis: %w", err))
	}

	// Percentile
	if err := c.Percentile.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("percentile: %w", err))
	}

	// Ingest
	if err := c.Ingest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ingest: %w", err))
	}

	// Output
	if err := c.Output.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}

	// Log
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", perrors.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Validate checks the analysis configuration.
func (c *AnalysisConfig) Validate() error {
	var errs []error

	if c.Skip < 0 {
		errs = append(errs, errors.New("skip must not be negative"))
	}

	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}

	if c.OverlapConcurrent <= 0 || c.OverlapConcurrent > 1 {
		errs = append(errs, errors.New("overlap_concurrent must be between 0 and 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the percentile configuration.
func (c *PercentileConfig) Validate() error {
	switch c.Mode {
	case "exact":
		return nil
	case "sketch":
		if c.Accuracy <= 0 || c.Accuracy >= 1 {
			return errors.New("accuracy must be between 0 and 1")
		}
		return nil
	default:
		return fmt.Errorf("mode must be one of: exact, sketch (got %q)", c.Mode)
	}
}

// Validate checks the ingest configuration.
func (c *IngestConfig) Validate() error {
	var errs []error

	validEngines := map[string]bool{
		"csv":    true,
		"duckdb": true,
	}
	if !validEngines[c.Engine] {
		errs = append(errs, fmt.Errorf("engine must be one of: csv, duckdb (got %q)", c.Engine))
	}

	validSeparators := map[string]bool{
		"auto":  true,
		"tab":   true,
		"comma": true,
	}
	if !validSeparators[c.Separator] {
		errs = append(errs, fmt.Errorf("separator must be one of: auto, tab, comma (got %q)", c.Separator))
	}

	if c.DurationTolerance < 0 {
		errs = append(errs, errors.New("duration_tolerance must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the output configuration.
func (c *OutputConfig) Validate() error {
	var errs []error

	validFormats := map[string]bool{
		"table": true,
		"csv":   true,
		"tsv":   true,
	}
	if !validFormats[c.Format] {
		errs = append(errs, fmt.Errorf("format must be one of: table, csv, tsv (got %q)", c.Format))
	}

	if c.Precision < 0 || c.Precision > 9 {
		errs = append(errs, errors.New("precision must be between 0 and 9"))
	}

	validCodecs := map[string]bool{
		"snappy": true,
		"zstd":   true,
		"gzip":   true,
		"lz4":    true,
		"none":   true,
		"":       true, // Empty defaults to zstd
	}
	if !validCodecs[c.ParquetCompression] {
		errs = append(errs, errors.New("parquet_compression must be one of: snappy, zstd, gzip, lz4, none"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the log configuration.
func (c *LogConfig) Validate() error {
	var errs []error

	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("level must be one of: debug, info, warn, error (got %q)", c.Level))
	}

	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("format must be one of: text, json (got %q)", c.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
