package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	defaults "github.com/xtxerr/polarwarp/config"
	"github.com/xtxerr/polarwarp/internal/aggregate"
	"github.com/xtxerr/polarwarp/internal/analyzer"
	"github.com/xtxerr/polarwarp/internal/config"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/ingest"
	"github.com/xtxerr/polarwarp/internal/logging"
	"github.com/xtxerr/polarwarp/internal/metrics"
	"github.com/xtxerr/polarwarp/internal/render"
)

// app carries the state of one command line invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgPath string
	skip    string
	cfg     *config.Config

	// code is the exit code of a successful command; a run with failed
	// files exits CodePartial.
	code int
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "polarwarp [flags] OPLOG...",
		Short: "Latency and throughput statistics for storage benchmark oplogs",
		Long: `polarwarp reads warp-style operation logs (tsv or csv, optionally zstd
compressed, or parquet; local paths or s3:// URLs) and reports latency
percentiles, operation rate and throughput per operation and object size.
Several files are also consolidated into one table.`,
		Args:              needFiles,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.analyze,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(errors.ErrInvalidConfig, err.Error())
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file path (yaml)")
	pf.String("log-level", defaults.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", defaults.DefaultLogFormat, "log format: text, json")
	pf.String("engine", defaults.DefaultEngine, "delimited decoder: csv, duckdb")
	pf.String("separator", defaults.DefaultSeparator, "field separator: auto, tab, comma")
	pf.Duration("tolerance", defaults.DefaultDurationTolerance, "allowed drift between duration_ns and end-start (0 disables)")
	pf.String("s3-region", "", "region for s3:// inputs")
	pf.String("s3-endpoint", "", "endpoint URL for S3-compatible stores")
	pf.Bool("s3-path-style", false, "use path-style S3 addressing")

	f := root.Flags()
	f.StringVarP(&a.skip, "skip", "s", "", `warm-up period dropped from each file ("90s", "5m")`)
	f.BoolP("per-endpoint", "e", false, "add tables broken down by endpoint")
	f.BoolP("per-client", "C", false, "add tables broken down by client")
	f.IntP("workers", "j", defaults.DefaultWorkers, "files analyzed concurrently")
	f.Bool("fail-fast", false, "abort when any file cannot be decoded")
	f.String("percentile", defaults.DefaultPercentileMode, "latency retention: exact, sketch")
	f.Float64("accuracy", defaults.DefaultSketchAccuracy, "sketch relative accuracy")
	f.StringP("format", "f", defaults.DefaultOutputFormat, "stdout format: table, csv, tsv")
	f.Int("precision", defaults.DefaultPrecision, "decimals in output")
	f.String("csv", "", "export all tables to this csv/tsv file")
	f.String("parquet", "", "export all tables to this parquet file")
	f.String("xlsx", "", "export one sheet per table to this workbook")
	f.String("metrics-file", "", "write run metrics in Prometheus textfile format")

	root.AddCommand(a.inspectCmd(), a.versionCmd())
	return root
}

func needFiles(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "at least one oplog file is required")
	}
	return nil
}

func (a *app) inspectCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "inspect [flags] OPLOG...",
		Short: "Show row counts, columns, sample rows and rejections without aggregating",
		Args:  needFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.ingestOptions()
			opts.SampleRows = rows

			for i, path := range args {
				if i > 0 {
					fmt.Fprintln(a.stdout)
				}
				s, err := ingest.Decode(cmd.Context(), path, opts)
				if err != nil && s == nil {
					return err
				}
				if err := render.Inspect(a.stdout, s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", defaults.DefaultInspectRows, "sample rows to print")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "polarwarp %s\n", Version)
		},
	}
}

// setup loads the config file, applies flag overrides and initializes
// logging. Flags win over file values only when given explicitly.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()
	if a.cfgPath != "" {
		loaded, err := config.Load(a.cfgPath)
		if err != nil {
			if errors.IsValidation(err) {
				return err
			}
			return errors.Wrap(errors.ErrInvalidConfig, err.Error())
		}
		cfg = loaded
	}

	if err := applyFlags(cmd, cfg, a.skip); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}
	logging.InitWriter(a.stderr, level, cfg.Log.Format == "json")

	a.cfg = cfg
	return nil
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, skip string) error {
	flags := cmd.Flags()
	changed := flags.Changed

	if changed("skip") {
		d, err := config.ParseSkip(skip)
		if err != nil {
			return err
		}
		cfg.Analysis.Skip = d
	}

	setBool := func(name string, dst *bool) {
		if changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	setString := func(name string, dst *string) {
		if changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	setBool("per-endpoint", &cfg.Analysis.PerEndpoint)
	setBool("per-client", &cfg.Analysis.PerClient)
	setBool("fail-fast", &cfg.Analysis.FailFast)
	setInt("workers", &cfg.Analysis.Workers)

	setString("percentile", &cfg.Percentile.Mode)
	if changed("accuracy") {
		cfg.Percentile.Accuracy, _ = flags.GetFloat64("accuracy")
	}

	setString("engine", &cfg.Ingest.Engine)
	setString("separator", &cfg.Ingest.Separator)
	if changed("tolerance") {
		cfg.Ingest.DurationTolerance, _ = flags.GetDuration("tolerance")
	}
	setString("s3-region", &cfg.Ingest.S3.Region)
	setString("s3-endpoint", &cfg.Ingest.S3.Endpoint)
	setBool("s3-path-style", &cfg.Ingest.S3.PathStyle)

	setString("format", &cfg.Output.Format)
	setInt("precision", &cfg.Output.Precision)
	setString("csv", &cfg.Output.CSV)
	setString("parquet", &cfg.Output.Parquet)
	setString("xlsx", &cfg.Output.XLSX)
	setString("metrics-file", &cfg.Output.MetricsFile)

	setString("log-level", &cfg.Log.Level)
	setString("log-format", &cfg.Log.Format)
	return nil
}

func (a *app) ingestOptions() ingest.Options {
	return ingest.Options{
		Engine:    a.cfg.Ingest.Engine,
		Separator: a.cfg.Ingest.Separator,
		Tolerance: a.cfg.Ingest.DurationTolerance,
		S3: ingest.S3Options{
			Region:    a.cfg.Ingest.S3.Region,
			Endpoint:  a.cfg.Ingest.S3.Endpoint,
			PathStyle: a.cfg.Ingest.S3.PathStyle,
		},
	}
}

func (a *app) analyzerOptions() analyzer.Options {
	cfg := a.cfg
	return analyzer.Options{
		Skip: cfg.Analysis.Skip,
		Builder: group.Builder{
			PerEndpoint: cfg.Analysis.PerEndpoint,
			PerClient:   cfg.Analysis.PerClient,
		},
		Aggregate: aggregate.Options{
			Mode:     aggregate.Mode(cfg.Percentile.Mode),
			Accuracy: cfg.Percentile.Accuracy,
		},
		Ingest:            a.ingestOptions(),
		Workers:           cfg.Analysis.Workers,
		FailFast:          cfg.Analysis.FailFast,
		OverlapConcurrent: cfg.Analysis.OverlapConcurrent,
		Precision:         cfg.Output.Precision,
	}
}

func (a *app) analyze(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	ctx := logging.ContextWithRunID(cmd.Context(), strconv.FormatInt(time.Now().UnixNano(), 36))
	log := logging.WithContext(ctx).With("component", "cli")

	run, err := analyzer.Analyze(ctx, args, a.analyzerOptions())
	if err != nil {
		return err
	}

	ropts := render.Options{
		Format:    cfg.Output.Format,
		Precision: cfg.Output.Precision,
		Width:     a.width(),
	}
	if ropts.Format == render.FormatTable {
		if err := render.Files(a.stdout, run); err != nil {
			return err
		}
	}
	if err := render.Tables(a.stdout, run.Tables, ropts); err != nil {
		return err
	}

	if err := a.export(log, run); err != nil {
		return err
	}

	if failed := run.Failed(); len(failed) > 0 {
		for _, f := range failed {
			log.Warn("file failed", "path", f.Path, "error", f.Err)
		}
		a.code = errors.CodePartial
	}
	return nil
}

// export writes the configured output files.
func (a *app) export(log *slog.Logger, run *analyzer.Run) error {
	out := a.cfg.Output

	if out.CSV != "" {
		if err := render.WriteDelimited(out.CSV, run.Tables, out.Precision); err != nil {
			return err
		}
		log.Info("exported", "format", "csv", "path", out.CSV)
	}
	if out.Parquet != "" {
		opts := render.DefaultParquetOptions()
		opts.Compression = render.ParseCompressionType(out.ParquetCompression)
		if err := render.WriteParquet(out.Parquet, run.Tables, opts); err != nil {
			return err
		}
		log.Info("exported", "format", "parquet", "path", out.Parquet)
	}
	if out.XLSX != "" {
		if err := render.WriteXLSX(out.XLSX, run.Tables); err != nil {
			return err
		}
		log.Info("exported", "format", "xlsx", "path", out.XLSX)
	}
	if out.MetricsFile != "" {
		exp := metrics.NewExporter()
		exp.Observe(run)
		if err := exp.WriteTextfile(out.MetricsFile); err != nil {
			return err
		}
		log.Info("exported", "format", "prometheus", "path", out.MetricsFile)
	}
	return nil
}

// width returns the terminal width of stdout, or zero when it is not a file.
func (a *app) width() int {
	if f, ok := a.stdout.(*os.File); ok {
		return render.TerminalWidth(f)
	}
	return 0
}
