package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/oplog"
	"github.com/xtxerr/polarwarp/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeRun(t *testing.T, dir string) string {
	t.Helper()
	recs := append(
		testutil.Series(oplog.OpGet, 4096, 20, 100*time.Millisecond, time.Millisecond, 2*time.Millisecond),
		testutil.Series(oplog.OpPut, 2<<20, 10, 200*time.Millisecond, 10*time.Millisecond)...,
	)
	return testutil.WriteOplog(t, dir, "warp.tsv", recs, testutil.FileOptions{})
}

func TestRun_Table(t *testing.T) {
	path := writeRun(t, t.TempDir())

	code, out, stderr := runCLI(t, path)
	if code != errors.CodeOK {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{path + " (overall)", "GET", "PUT", "ALL", "Total: 30 ops"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
}

func TestRun_CSVAndExports(t *testing.T) {
	dir := t.TempDir()
	a := writeRun(t, dir)
	b := testutil.WriteOplog(t, dir, "b.csv",
		testutil.Series(oplog.OpGet, 4096, 10, 100*time.Millisecond), testutil.FileOptions{Comma: ','})

	csvPath := filepath.Join(dir, "out", "results.csv")
	xlsxPath := filepath.Join(dir, "out", "results.xlsx")
	parquetPath := filepath.Join(dir, "out", "results.parquet")
	promPath := filepath.Join(dir, "polarwarp.prom")

	code, out, stderr := runCLI(t,
		"--format", "csv", "--per-endpoint", "--skip", "0.5",
		"--csv", csvPath, "--xlsx", xlsxPath, "--parquet", parquetPath, "--metrics-file", promPath,
		a, b)
	if code != errors.CodeOK {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}

	if !strings.HasPrefix(out, "source,dimension,op") {
		t.Errorf("stdout is not csv:\n%s", out)
	}
	if !strings.Contains(out, "consolidated,overall") || !strings.Contains(out, "consolidated,endpoint") {
		t.Errorf("consolidated tables missing:\n%s", out)
	}

	for _, p := range []string{csvPath, xlsxPath, parquetPath, promPath} {
		st, err := os.Stat(p)
		if err != nil {
			t.Errorf("export %s: %v", p, err)
			continue
		}
		if st.Size() == 0 {
			t.Errorf("export %s is empty", p)
		}
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeRun(t, dir)
	cfgPath := filepath.Join(dir, "polarwarp.yaml")
	cfg := "analysis:\n  per_client: true\noutput:\n  format: tsv\n  precision: 1\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, stderr := runCLI(t, "--config", cfgPath, path)
	if code != errors.CodeOK {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(out, "\tclient\t") {
		t.Errorf("per-client rows missing from tsv:\n%s", out)
	}

	// Flags override the file.
	code, out, _ = runCLI(t, "--config", cfgPath, "--format", "csv", path)
	if code != errors.CodeOK || !strings.HasPrefix(out, "source,") {
		t.Errorf("flag did not override config format (exit %d):\n%s", code, out)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeRun(t, dir)

	code, out, _ := runCLI(t, path, filepath.Join(dir, "missing.tsv"))
	if code != errors.CodePartial {
		t.Errorf("exit = %d, want %d", code, errors.CodePartial)
	}
	if !strings.Contains(out, "Failed files (1)") {
		t.Errorf("failed file not reported:\n%s", out)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	path := writeRun(t, dir)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no files", nil, errors.CodeUsage},
		{"unknown flag", []string{"--bogus", path}, errors.CodeUsage},
		{"negative skip", []string{"--skip", "-5s", path}, errors.CodeUsage},
		{"bad percentile mode", []string{"--percentile", "median", path}, errors.CodeUsage},
		{"missing config", []string{"--config", filepath.Join(dir, "nope.yaml"), path}, errors.CodeUsage},
		{"nothing decoded", []string{filepath.Join(dir, "missing.tsv")}, errors.CodeNoData},
		{"fail fast", []string{"--fail-fast", path, filepath.Join(dir, "missing.tsv")}, errors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			if code != tt.want {
				t.Errorf("exit = %d, want %d; stderr:\n%s", code, tt.want, stderr)
			}
		})
	}
}

func TestRun_Inspect(t *testing.T) {
	dir := t.TempDir()
	recs := testutil.Series(oplog.OpGet, 4096, 8, time.Second)
	bad := testutil.Row(8, &recs[0])
	bad[5] = "-1"
	path := testutil.WriteOplog(t, dir, "warp.tsv", recs, testutil.FileOptions{Extra: [][]string{bad}})

	code, out, stderr := runCLI(t, "inspect", "-n", "3", path)
	if code != errors.CodeOK {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	for _, want := range []string{"Rows:     9", "Valid:    8", "negative_size=1", "duration_ns"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != errors.CodeOK || !strings.Contains(out, "polarwarp dev") {
		t.Errorf("version: exit %d, %q", code, out)
	}
}
