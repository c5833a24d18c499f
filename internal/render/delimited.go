package render

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/report"
)

// ExportHeader is the column layout of delimited and xlsx exports.
var ExportHeader = []string{
	"source", "dimension", "op", "bucket", "bucket_num", "endpoint", "client", "summary",
	"mean_us", "median_us", "p90_us", "p95_us", "p99_us", "max_us", "avg_object_kib",
	"ops_per_sec", "mib_per_sec", "count", "threads", "runtime_s",
}

// exportRecord flattens one row. Undefined rates are written as the marker.
func exportRecord(t *report.Table, r *report.Row, precision int) []string {
	return []string{
		t.Source,
		string(t.Dim),
		r.Op,
		r.Bucket,
		strconv.Itoa(r.BucketNum),
		r.Endpoint,
		r.Client,
		strconv.FormatBool(r.Summary),
		plain(r.Mean, precision),
		plain(r.Median, precision),
		plain(r.P90, precision),
		plain(r.P95, precision),
		plain(r.P99, precision),
		plain(r.Max, precision),
		plain(r.AvgObjectKiB, precision),
		plainRate(r.OpsPerSec, precision),
		plainRate(r.MiBPerSec, precision),
		strconv.FormatInt(r.Count, 10),
		strconv.Itoa(r.Threads),
		plain(r.Runtime, precision),
	}
}

// Delimited writes all tables as one delimited stream with a single header.
func Delimited(w io.Writer, tables []report.Table, comma rune, precision int) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for i := range tables {
		t := &tables[i]
		for j := range t.Rows {
			if err := cw.Write(exportRecord(t, &t.Rows[j], precision)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDelimited exports tables to path. A .tsv suffix selects tabs.
func WriteDelimited(path string, tables []report.Table, precision int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}

	comma := ','
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		comma = '\t'
	}

	if err := Delimited(f, tables, comma, precision); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
