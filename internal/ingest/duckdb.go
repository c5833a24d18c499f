package ingest

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// duckdbDecoder reads delimited oplogs through DuckDB's read_csv. All columns
// are read as text so that validation is identical to the built-in reader.
// Short rows are padded with NULLs and rejected as missing fields; rows DuckDB
// cannot parse at all are collected from its reject table and counted as
// malformed.
type duckdbDecoder struct{}

// rejectedLine is one line DuckDB refused to parse.
type rejectedLine struct {
	line int
	msg  string
}

func (duckdbDecoder) decode(ctx context.Context, path string, opts Options) (*Stream, error) {
	headerLine, err := firstLine(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	sep := Separator(opts.Separator, headerLine)

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(err, "open duckdb")
	}
	defer db.Close()

	// Temporary tables live on one connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "duckdb connection")
	}
	defer conn.Close()

	load := fmt.Sprintf(
		"CREATE TEMP TABLE oplog AS SELECT * FROM read_csv(%s, header = true, all_varchar = true, "+
			"null_padding = true, store_rejects = true, delim = %s)",
		quote(path), quote(string(sep)))
	if _, err := conn.ExecContext(ctx, load); err != nil {
		return nil, errors.Wrap(err, "read_csv")
	}

	rejected, err := rejectedLines(ctx, conn)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, "SELECT * FROM oplog")
	if err != nil {
		return nil, errors.Wrap(err, "scan oplog")
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns")
	}

	s := &Stream{
		Path:    path,
		Format:  FormatCSV,
		Columns: header,
	}
	if sep == '\t' {
		s.Format = FormatTSV
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range values {
		dest[i] = &values[i]
	}
	fields := make([]string, len(header))

	// Header is line 1. Accepted rows take the line numbers the reject
	// table leaves free.
	next := 2
	ri := 0
	flush := func(all bool) {
		for ri < len(rejected) && (all || rejected[ri].line <= next) {
			r := rejected[ri]
			s.accept(r.line, oplog.Raw{}, errors.Wrap(errors.ErrMalformedRow, r.msg), opts.Tolerance)
			if r.line == next {
				next++
			}
			ri++
		}
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		for i, v := range values {
			fields[i] = v.String
		}
		if isBlank(fields) {
			continue
		}

		flush(false)
		line := next
		next++

		s.sample(fields, opts.SampleRows)
		raw, perr := cols.raw(fields)
		s.accept(line, raw, perr, opts.Tolerance)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read rows")
	}
	flush(true)

	return s, nil
}

// rejectedLines returns the lines of the last read_csv scan that DuckDB
// rejected, one entry per line, in file order.
func rejectedLines(ctx context.Context, conn *sql.Conn) ([]rejectedLine, error) {
	rows, err := conn.QueryContext(ctx,
		"SELECT line, string_agg(error_message, '; ') FROM reject_errors GROUP BY line ORDER BY line")
	if err != nil {
		return nil, errors.Wrap(err, "reject_errors")
	}
	defer rows.Close()

	var out []rejectedLine
	for rows.Next() {
		var r rejectedLine
		var line int64
		if err := rows.Scan(&line, &r.msg); err != nil {
			return nil, errors.Wrap(err, "scan reject")
		}
		r.line = int(line)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read rejects")
	}
	return out, nil
}

func firstLine(ctx context.Context, path string, opts Options) (string, error) {
	in, err := Open(ctx, path, opts)
	if err != nil {
		return "", err
	}
	defer in.Close()

	line, _ := bufio.NewReader(in).ReadString('\n')
	if strings.TrimSpace(line) == "" {
		return "", errors.Wrap(errors.ErrEmptyInput, "no header line")
	}
	return line, nil
}

// quote renders s as a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
