// Package testutil provides fixtures and goroutine-safe helpers for polarwarp tests.
package testutil

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/xtxerr/polarwarp/internal/oplog"
)

// Epoch is the start instant of generated fixtures.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Header is the column layout written by warp.
var Header = []string{
	"idx", "thread", "op", "client_id", "n_objects", "bytes", "endpoint",
	"file", "error", "start", "first_byte", "end", "duration_ns",
}

// Op describes one operation for the fixture builder.
type Op struct {
	Op       oplog.Op
	Bytes    int64
	At       time.Duration // start offset from Epoch
	Latency  time.Duration
	Endpoint string
	Client   string
	Thread   string
}

// Record converts the fixture into a validated record.
func (o Op) Record() oplog.Record {
	endpoint := o.Endpoint
	if endpoint == "" {
		endpoint = "http://127.0.0.1:9000"
	}
	client := o.Client
	if client == "" {
		client = "client-1"
	}
	thread := o.Thread
	if thread == "" {
		thread = "1"
	}
	start := Epoch.Add(o.At)
	return oplog.Record{
		Op:       o.Op,
		Bytes:    o.Bytes,
		Endpoint: endpoint,
		Client:   client,
		Thread:   thread,
		Start:    start,
		End:      start.Add(o.Latency),
		Duration: o.Latency,
	}
}

// Records converts fixtures into records.
func Records(ops ...Op) []oplog.Record {
	out := make([]oplog.Record, len(ops))
	for i, o := range ops {
		out[i] = o.Record()
	}
	return out
}

// Series generates n operations of one kind, one per interval, with latencies
// cycling through lat.
func Series(op oplog.Op, bytes int64, n int, interval time.Duration, lat ...time.Duration) []oplog.Record {
	if len(lat) == 0 {
		lat = []time.Duration{time.Millisecond}
	}
	out := make([]oplog.Record, n)
	for i := 0; i < n; i++ {
		out[i] = Op{
			Op:      op,
			Bytes:   bytes,
			At:      time.Duration(i) * interval,
			Latency: lat[i%len(lat)],
			Thread:  strconv.Itoa(i%4 + 1),
		}.Record()
	}
	return out
}

// FileOptions controls how WriteOplog encodes a fixture file.
type FileOptions struct {
	// Comma is the field separator, tab if zero.
	Comma rune
	// Zstd compresses the file.
	Zstd bool
	// Extra rows are appended verbatim after the records.
	Extra [][]string
}

// WriteOplog writes records as a warp-style oplog into dir and returns its path.
func WriteOplog(t *testing.T, dir, name string, records []oplog.Record, opts FileOptions) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var enc *zstd.Encoder
	if opts.Zstd {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		w = enc
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}

	if err := cw.Write(Header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i := range records {
		if err := cw.Write(Row(i, &records[i])); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	for _, row := range opts.Extra {
		if err := cw.Write(row); err != nil {
			t.Fatalf("write extra row: %v", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			t.Fatalf("close zstd: %v", err)
		}
	}
	return path
}

// Row formats one record in the warp column layout.
func Row(idx int, r *oplog.Record) []string {
	return []string{
		strconv.Itoa(idx),
		r.Thread,
		string(r.Op),
		r.Client,
		"1",
		strconv.FormatInt(r.Bytes, 10),
		r.Endpoint,
		"obj/" + strconv.Itoa(idx),
		"",
		r.Start.Format(time.RFC3339Nano),
		r.Start.Format(time.RFC3339Nano),
		r.End.Format(time.RFC3339Nano),
		strconv.FormatInt(int64(r.Duration), 10),
	}
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

// Lines splits s into non-empty lines.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
