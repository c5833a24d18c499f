package ingest

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/xtxerr/polarwarp/internal/errors"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Open returns the decompressed content of a local path or s3:// URL.
// Zstandard input is recognized by its magic number, so the .zst suffix is
// optional.
func Open(ctx context.Context, path string, opts Options) (io.ReadCloser, error) {
	var raw io.ReadCloser
	if IsS3(path) {
		r, err := openS3(ctx, path, opts.S3)
		if err != nil {
			return nil, err
		}
		raw = r
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		raw = f
	}

	return decompress(raw)
}

// decompress wraps raw in a zstd decoder when the stream starts with the
// zstd magic number.
func decompress(raw io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(raw, 64*1024)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		raw.Close()
		return nil, errors.Wrap(err, "read header")
	}

	if !bytes.Equal(head, zstdMagic) {
		return &readCloser{Reader: br, closer: raw}, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		raw.Close()
		return nil, errors.Wrap(err, "zstd reader")
	}
	return &readCloser{Reader: dec, closer: raw, release: dec.Close}, nil
}

type readCloser struct {
	io.Reader
	closer  io.Closer
	release func()
}

func (r *readCloser) Close() error {
	if r.release != nil {
		r.release()
	}
	return r.closer.Close()
}

// IsS3 reports whether path is an s3:// URL.
func IsS3(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// IsParquet reports whether path names a parquet file.
func IsParquet(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".parquet")
}
