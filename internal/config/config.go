package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/polarwarp/config"
	"github.com/xtxerr/polarwarp/internal/errors"
)

// Config represents the complete polarwarp configuration.
type Config struct {
	// Analysis configures the statistics core.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Percentile configures latency retention.
	Percentile PercentileConfig `yaml:"percentile"`

	// Ingest configures how oplogs are decoded.
	Ingest IngestConfig `yaml:"ingest"`

	// Output configures rendering and exports.
	Output OutputConfig `yaml:"output"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// AnalysisConfig configures the statistics core.
type AnalysisConfig struct {
	// Skip is the warm-up period dropped from the start of each file.
	// Format: "90s", "5m"
	Skip time.Duration `yaml:"skip"`

	// PerEndpoint adds a table broken down by endpoint.
	PerEndpoint bool `yaml:"per_endpoint"`

	// PerClient adds a table broken down by client.
	PerClient bool `yaml:"per_client"`

	// Workers is the number of files analyzed concurrently.
	Workers int `yaml:"workers"`

	// FailFast aborts the run when any file fails to decode.
	FailFast bool `yaml:"fail_fast"`

	// OverlapConcurrent is the overlap ratio (0.0-1.0) at which files count as concurrent.
	OverlapConcurrent float64 `yaml:"overlap_concurrent"`
}

// PercentileConfig configures latency retention.
type PercentileConfig struct {
	// Mode is "exact" or "sketch".
	Mode string `yaml:"mode"`

	// Accuracy is the sketch relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// IngestConfig configures how oplogs are decoded.
type IngestConfig struct {
	// Engine is "csv" (built-in reader) or "duckdb".
	Engine string `yaml:"engine"`

	// Separator is "auto", "tab" or "comma".
	Separator string `yaml:"separator"`

	// DurationTolerance is the allowed drift between duration_ns and end-start.
	// Zero disables the check.
	DurationTolerance time.Duration `yaml:"duration_tolerance"`

	// S3 configures s3:// inputs.
	S3 S3Config `yaml:"s3"`
}

// S3Config configures the S3 client used for s3:// inputs.
type S3Config struct {
	// Region overrides the region from the AWS environment.
	Region string `yaml:"region"`

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string `yaml:"endpoint"`

	// PathStyle forces path-style addressing.
	PathStyle bool `yaml:"path_style"`
}

// OutputConfig configures rendering and exports.
type OutputConfig struct {
	// Format is the stdout format: table, csv, tsv.
	Format string `yaml:"format"`

	// Precision is the number of decimals in output.
	Precision int `yaml:"precision"`

	// CSV writes all tables to this delimited file when set.
	CSV string `yaml:"csv"`

	// Parquet writes all rows to this parquet file when set.
	Parquet string `yaml:"parquet"`

	// ParquetCompression is the parquet codec: snappy, zstd, gzip, lz4, none.
	ParquetCompression string `yaml:"parquet_compression"`

	// XLSX writes one sheet per table to this workbook when set.
	XLSX string `yaml:"xlsx"`

	// MetricsFile writes run metrics in Prometheus text format when set.
	MetricsFile string `yaml:"metrics_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Skip:              defaults.DefaultSkip,
			Workers:           defaults.DefaultWorkers,
			OverlapConcurrent: defaults.DefaultOverlapConcurrent,
		},
		Percentile: PercentileConfig{
			Mode:     defaults.DefaultPercentileMode,
			Accuracy: defaults.DefaultSketchAccuracy,
		},
		Ingest: IngestConfig{
			Engine:            defaults.DefaultEngine,
			Separator:         defaults.DefaultSeparator,
			DurationTolerance: defaults.DefaultDurationTolerance,
		},
		Output: OutputConfig{
			Format:             defaults.DefaultOutputFormat,
			Precision:          defaults.DefaultPrecision,
			ParquetCompression: "zstd",
		},
		Log: LogConfig{
			Level:  defaults.DefaultLogLevel,
			Format: defaults.DefaultLogFormat,
		},
	}
}

// ParseSkip parses a warm-up duration. Accepts Go durations ("90s", "5m",
// "1m30s") and bare numbers, which are seconds.
func ParseSkip(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 0 {
			return 0, errors.Wrapf(errors.ErrInvalidSkip, "%q is negative", s)
		}
		return time.Duration(n * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidSkip, "%q: expected a duration like 90s or 5m", s)
	}
	if d < 0 {
		return 0, errors.Wrapf(errors.ErrInvalidSkip, "%q is negative", s)
	}
	return d, nil
}
