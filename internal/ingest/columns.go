package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// Column names of the warp oplog layout.
const (
	ColThread   = "thread"
	ColOp       = "op"
	ColClient   = "client_id"
	ColBytes    = "bytes"
	ColEndpoint = "endpoint"
	ColStart    = "start"
	ColEnd      = "end"
	ColDuration = "duration_ns"
)

// aliases maps alternative header names onto the canonical ones.
var aliases = map[string]string{
	"client":      ColClient,
	"size":        ColBytes,
	"duration":    ColDuration,
	"operation":   ColOp,
	"thread_id":   ColThread,
	"start_time":  ColStart,
	"end_time":    ColEnd,
	"endpoint_id": ColEndpoint,
}

// columns locates the fields of one row by header position.
type columns struct {
	thread, op, client, bytes, endpoint, start, end, duration int
}

// mapColumns resolves a header. A file without the columns needed to build a
// record cannot be decoded at all.
func mapColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	get := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	c := columns{
		thread:   get(ColThread),
		op:       get(ColOp),
		client:   get(ColClient),
		bytes:    get(ColBytes),
		endpoint: get(ColEndpoint),
		start:    get(ColStart),
		end:      get(ColEnd),
		duration: get(ColDuration),
	}

	var errs []error
	required := []struct {
		name string
		idx  int
	}{
		{ColOp, c.op},
		{ColBytes, c.bytes},
		{ColEndpoint, c.endpoint},
		{ColStart, c.start},
	}
	for _, col := range required {
		if col.idx < 0 {
			errs = append(errs, errors.NewMissingColumn(col.name))
		}
	}
	if c.end < 0 && c.duration < 0 {
		errs = append(errs, errors.NewMissingColumn(ColEnd+" or "+ColDuration))
	}
	if c.thread < 0 && c.client < 0 {
		errs = append(errs, errors.NewMissingColumn(ColThread+" or "+ColClient))
	}
	if len(errs) > 0 {
		return c, errors.Join(errs...)
	}
	return c, nil
}

// raw extracts one row. Absent trailing fields read as empty.
func (c columns) raw(fields []string) (oplog.Raw, error) {
	field := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	r := oplog.Raw{
		Op:       field(c.op),
		Endpoint: field(c.endpoint),
		Client:   field(c.client),
		Thread:   field(c.thread),
	}

	var err error
	if r.Bytes, err = parseInt(ColBytes, field(c.bytes)); err != nil {
		return r, err
	}
	if r.Start, err = ParseTimestamp(field(c.start)); err != nil {
		return r, errors.Wrap(err, ColStart)
	}
	if r.End, err = ParseTimestamp(field(c.end)); err != nil {
		return r, errors.Wrap(err, ColEnd)
	}

	ns, err := parseInt(ColDuration, field(c.duration))
	if err != nil {
		return r, err
	}
	if ns != nil {
		d := time.Duration(*ns)
		r.Duration = &d
	}
	return r, nil
}

func parseInt(name, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some exporters write integral floats ("4096.0").
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return nil, errors.Wrapf(errors.ErrInvalidNumber, "%s=%q", name, s)
		}
		v = int64(f)
	}
	return &v, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an oplog timestamp. RFC 3339 with a trailing Z or a
// numeric offset is the warp format; timestamps without a zone are UTC.
// An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Wrapf(errors.ErrInvalidTimestamp, "%q", s)
}

// Separator resolves the configured separator for a header line.
// "auto" picks tab when the line has more tabs than commas, comma when it has
// any commas, and tab otherwise.
func Separator(mode, headerLine string) rune {
	switch mode {
	case "tab":
		return '\t'
	case "comma":
		return ','
	}
	tabs := strings.Count(headerLine, "\t")
	commas := strings.Count(headerLine, ",")
	switch {
	case tabs > commas:
		return '\t'
	case commas > 0:
		return ','
	default:
		return '\t'
	}
}
