package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// OplogRow is the parquet layout of an oplog. Columns are matched by name;
// columns absent from a file read as null.
type OplogRow struct {
	Thread     string    `parquet:"thread,optional"`
	Op         string    `parquet:"op"`
	Client     string    `parquet:"client_id,optional"`
	Bytes      *int64    `parquet:"bytes,optional"`
	Endpoint   string    `parquet:"endpoint"`
	Start      time.Time `parquet:"start,timestamp(nanosecond)"`
	End        time.Time `parquet:"end,optional,timestamp(nanosecond)"`
	DurationNs *int64    `parquet:"duration_ns,optional"`
}

// raw converts the row for validation.
func (r *OplogRow) raw() oplog.Raw {
	raw := oplog.Raw{
		Op:       r.Op,
		Bytes:    r.Bytes,
		Endpoint: r.Endpoint,
		Client:   r.Client,
		Thread:   r.Thread,
		Start:    r.Start,
		End:      r.End,
	}
	if r.DurationNs != nil {
		d := time.Duration(*r.DurationNs)
		raw.Duration = &d
	}
	return raw
}

func (r *OplogRow) fields() []string {
	num := func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	}
	ts := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	return []string{r.Thread, r.Op, r.Client, num(r.Bytes), r.Endpoint, ts(r.Start), ts(r.End), num(r.DurationNs)}
}

var parquetColumns = []string{ColThread, ColOp, ColClient, ColBytes, ColEndpoint, ColStart, ColEnd, ColDuration}

type parquetDecoder struct{}

func (parquetDecoder) decode(ctx context.Context, path string, opts Options) (*Stream, error) {
	src, size, closeFn, err := openParquet(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	file, err := parquet.OpenFile(src, size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnsupportedFormat, err.Error())
	}

	schema := file.Schema()
	var header []string
	for _, f := range schema.Fields() {
		header = append(header, f.Name())
	}
	if _, err := mapColumns(header); err != nil {
		return nil, err
	}

	s := &Stream{
		Path:    path,
		Format:  FormatParquet,
		Columns: parquetColumns,
	}

	reader := parquet.NewGenericReader[OplogRow](file)
	defer reader.Close()

	rows := make([]OplogRow, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			if len(s.Sample) < opts.SampleRows {
				s.sample(rows[i].fields(), opts.SampleRows)
			}
			s.accept(s.Rows+1, rows[i].raw(), nil, opts.Tolerance)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read parquet rows")
		}
		if n == 0 {
			break
		}
	}

	return s, nil
}

// openParquet returns random access to a parquet file. Objects in S3 are
// buffered in memory since the footer is read first.
func openParquet(ctx context.Context, path string, opts Options) (io.ReaderAt, int64, func(), error) {
	if !IsS3(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, nil, errors.Wrapf(err, "open %s", path)
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, nil, errors.Wrapf(err, "stat %s", path)
		}
		return f, st.Size(), func() { f.Close() }, nil
	}

	body, err := openS3(ctx, path, opts.S3)
	if err != nil {
		return nil, 0, nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, nil, errors.Wrapf(err, "read %s", path)
	}
	return bytes.NewReader(data), int64(len(data)), func() {}, nil
}
