package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/xtxerr/polarwarp/internal/errors"
)

// csvDecoder reads tab or comma separated oplogs.
type csvDecoder struct{}

func (csvDecoder) decode(ctx context.Context, path string, opts Options) (*Stream, error) {
	in, err := Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	return decodeDelimited(ctx, path, in, opts)
}

// decodeDelimited parses a header line followed by data rows.
func decodeDelimited(ctx context.Context, path string, in io.Reader, opts Options) (*Stream, error) {
	br := bufio.NewReaderSize(in, 256*1024)

	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read header")
	}
	if strings.TrimSpace(headerLine) == "" {
		return nil, errors.Wrap(errors.ErrEmptyInput, "no header line")
	}

	sep := Separator(opts.Separator, headerLine)

	r := csv.NewReader(io.MultiReader(strings.NewReader(headerLine), br))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "parse header")
	}

	s := &Stream{
		Path:    path,
		Format:  FormatCSV,
		Columns: append([]string(nil), header...),
	}
	if sep == '\t' {
		s.Format = FormatTSV
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	for {
		if s.Rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		line, _ := r.FieldPos(0)
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				s.Rows++
				s.Rejects.Add(errors.NewRowError(perr.Line, errors.Wrap(errors.ErrMalformedRow, perr.Err.Error())))
				continue
			}
			return nil, errors.Wrap(err, "read row")
		}
		if isBlank(fields) {
			continue
		}

		s.sample(fields, opts.SampleRows)
		raw, perr := cols.raw(fields)
		s.accept(line, raw, perr, opts.Tolerance)
	}

	return s, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
