package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/xtxerr/polarwarp/internal/analyzer"
	"github.com/xtxerr/polarwarp/internal/ingest"
	"github.com/xtxerr/polarwarp/internal/oplog"
	"github.com/xtxerr/polarwarp/internal/window"
)

const timeLayout = "2006-01-02 15:04:05.000000"

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

// Files writes the per-file run report: time span, warm-up cutoff, row
// counts and rejections, followed by failed files and the overlap verdict.
func Files(w io.Writer, run *analyzer.Run) error {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.SetCenterSeparator(" ")
	tw.SetColumnSeparator(" ")
	tw.SetHeader([]string{"File", "Format", "First start", "Last end", "Cutoff", "Runtime", "Rows", "Kept", "Skipped", "Rejected"})

	for i := range run.Files {
		f := &run.Files[i]
		if f.Failed() {
			continue
		}
		tw.Append([]string{
			f.Path,
			string(f.Format),
			stamp(f.FileStart),
			stamp(f.FileEnd),
			stamp(f.Cutoff),
			FormatRuntime(f.Runtime()),
			Number(float64(f.Rows), 0),
			Number(float64(f.Kept), 0),
			Number(float64(f.Skipped), 0),
			Number(float64(f.Rejects.Total), 0),
		})
	}
	tw.Render()

	for i := range run.Files {
		f := &run.Files[i]
		if f.Rejects.Total > 0 {
			fmt.Fprintf(w, "%s: rejected %s\n", f.Path, RejectSummary(&f.Rejects))
		}
	}

	if failed := run.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed files (%d):\n", len(failed))
		for _, f := range failed {
			fmt.Fprintf(w, "  %s: %v\n", f.Path, f.Err)
		}
	}

	_, err := fmt.Fprintln(w, OverlapLine(run))
	return err
}

// OverlapLine describes how the file windows relate.
func OverlapLine(run *analyzer.Run) string {
	ov := run.Overlap
	switch run.Mode {
	case window.ModeSingle, "":
		return ""
	case window.ModeSequential:
		return fmt.Sprintf("\nFiles ran sequentially (union %s). Consolidated rates use per-group windows.",
			FormatRuntime(ov.UnionEnd.Sub(ov.UnionStart)))
	default:
		return fmt.Sprintf("\nFiles overlap %s of %s (%.1f%%, %s).",
			FormatRuntime(ov.Duration()), FormatRuntime(ov.UnionEnd.Sub(ov.UnionStart)), ov.Ratio*100, run.Mode)
	}
}

// RejectSummary lists rejection counts by reason.
func RejectSummary(r *oplog.Rejects) string {
	parts := make([]string, 0, len(r.ByReason))
	for _, reason := range r.Reasons() {
		parts = append(parts, reason+"="+strconv.Itoa(r.ByReason[reason]))
	}
	return strings.Join(parts, " ")
}

// Inspect writes the basic statistics of a decoded input without
// aggregating it.
func Inspect(w io.Writer, s *ingest.Stream) error {
	fmt.Fprintf(w, "File:     %s\n", s.Path)
	fmt.Fprintf(w, "Format:   %s\n", s.Format)
	fmt.Fprintf(w, "Rows:     %s\n", Number(float64(s.Rows), 0))
	fmt.Fprintf(w, "Valid:    %s\n", Number(float64(len(s.Records)), 0))
	fmt.Fprintf(w, "Rejected: %s\n", Number(float64(s.Rejects.Total), 0))
	if s.Rejects.Total > 0 {
		fmt.Fprintf(w, "          %s\n", RejectSummary(&s.Rejects))
		for _, err := range s.Rejects.First {
			fmt.Fprintf(w, "          %v\n", err)
		}
	}

	batch := oplog.Batch{Records: s.Records}
	if first, last, ok := batch.Span(); ok {
		fmt.Fprintf(w, "Span:     %s .. %s (%s)\n", stamp(first), stamp(last), FormatRuntime(last.Sub(first)))
	}

	fmt.Fprintf(w, "Columns:  %s\n\n", strings.Join(s.Columns, ", "))

	if len(s.Sample) == 0 {
		return nil
	}
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(s.Columns)
	for _, row := range s.Sample {
		tw.Append(pad(row, len(s.Columns)))
	}
	tw.Render()
	return nil
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
