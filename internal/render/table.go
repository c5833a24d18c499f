// Package render writes analysis results as terminal tables and exports them
// as delimited text, parquet and xlsx.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	defaults "github.com/xtxerr/polarwarp/config"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/report"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
)

// Options controls stdout rendering.
type Options struct {
	Format    string
	Precision int

	// Width is the terminal width. Below DefaultCompactWidth the compact
	// column set is used. Zero means full width.
	Width int
}

// Tables writes every table in the configured format.
func Tables(w io.Writer, tables []report.Table, opts Options) error {
	switch opts.Format {
	case FormatTable, "":
		for i := range tables {
			if err := Table(w, &tables[i], opts); err != nil {
				return err
			}
		}
		return nil
	case FormatCSV:
		return Delimited(w, tables, ',', opts.Precision)
	case FormatTSV:
		return Delimited(w, tables, '\t', opts.Precision)
	default:
		return errors.Wrapf(errors.ErrUnsupportedFormat, "output format %q", opts.Format)
	}
}

// column is one rendered field of a row.
type column struct {
	header  string
	compact bool
	left    bool
	value   func(r *report.Row, precision int) string
}

func num(f func(r *report.Row) float64) func(*report.Row, int) string {
	return func(r *report.Row, p int) string { return Number(f(r), p) }
}

func columns(dim group.Dimension) []column {
	cols := []column{
		{header: "Op", compact: true, left: true, value: func(r *report.Row, _ int) string { return r.Op }},
		{header: "Bucket", compact: true, left: true, value: func(r *report.Row, _ int) string { return r.Bucket }},
		{header: "#", value: func(r *report.Row, _ int) string { return strconv.Itoa(r.BucketNum) }},
	}

	switch dim {
	case group.ByEndpoint:
		cols = append(cols, column{header: "Endpoint", compact: true, left: true,
			value: func(r *report.Row, _ int) string { return r.Endpoint }})
	case group.ByClient:
		cols = append(cols, column{header: "Client", compact: true, left: true,
			value: func(r *report.Row, _ int) string { return r.Client }})
	}

	return append(cols,
		column{header: "Mean µs", compact: true, value: num(func(r *report.Row) float64 { return r.Mean })},
		column{header: "Median µs", value: num(func(r *report.Row) float64 { return r.Median })},
		column{header: "P90 µs", value: num(func(r *report.Row) float64 { return r.P90 })},
		column{header: "P95 µs", value: num(func(r *report.Row) float64 { return r.P95 })},
		column{header: "P99 µs", compact: true, value: num(func(r *report.Row) float64 { return r.P99 })},
		column{header: "Max µs", compact: true, value: num(func(r *report.Row) float64 { return r.Max })},
		column{header: "Avg KiB", value: num(func(r *report.Row) float64 { return r.AvgObjectKiB })},
		column{header: "Ops/s", compact: true, value: func(r *report.Row, p int) string { return Rate(r.OpsPerSec, p) }},
		column{header: "MiB/s", compact: true, value: func(r *report.Row, p int) string { return Rate(r.MiBPerSec, p) }},
		column{header: "Count", compact: true, value: func(r *report.Row, _ int) string { return Number(float64(r.Count), 0) }},
		column{header: "Threads", value: func(r *report.Row, _ int) string { return strconv.Itoa(r.Threads) }},
		column{header: "Runtime", value: func(r *report.Row, _ int) string { return Seconds(r.Runtime) }},
	)
}

// Table writes one table as text.
func Table(w io.Writer, t *report.Table, opts Options) error {
	cols := columns(t.Dim)
	if opts.Width > 0 && opts.Width < defaults.DefaultCompactWidth {
		compact := cols[:0:0]
		for _, c := range cols {
			if c.compact {
				compact = append(compact, c)
			}
		}
		cols = compact
	}

	if _, err := fmt.Fprintf(w, "\n%s (%s)\n", t.Source, t.Dim); err != nil {
		return err
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.SetCenterSeparator(" ")
	tw.SetColumnSeparator(" ")
	tw.SetRowSeparator("-")

	header := make([]string, len(cols))
	align := make([]int, len(cols))
	for i, c := range cols {
		header[i] = c.header
		align[i] = tablewriter.ALIGN_RIGHT
		if c.left {
			align[i] = tablewriter.ALIGN_LEFT
		}
	}
	tw.SetHeader(header)
	tw.SetColumnAlignment(align)

	for i := range t.Rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = c.value(&t.Rows[i], opts.Precision)
		}
		tw.Append(line)
	}
	tw.Render()

	_, err := fmt.Fprintln(w, TotalLine(&t.Total, opts.Precision))
	return err
}

// TotalLine renders the grand total of a table.
func TotalLine(t *report.Total, precision int) string {
	return fmt.Sprintf("Total: %s ops in %s, %s ops/s",
		Number(float64(t.Ops), 0), Seconds(t.Runtime), Rate(t.OpsPerSec, precision))
}
