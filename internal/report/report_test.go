package report

import (
	"testing"
	"time"

	"github.com/xtxerr/polarwarp/internal/aggregate"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/oplog"
	"github.com/xtxerr/polarwarp/internal/testutil"
)

func results(t *testing.T, b group.Builder, recs []oplog.Record) []aggregate.Result {
	t.Helper()
	set := aggregate.NewSet(b, aggregate.DefaultOptions())
	if err := set.AddBatch(recs); err != nil {
		t.Fatal(err)
	}
	return set.Finalize()
}

func TestAssemble_Order(t *testing.T) {
	recs := testutil.Records(
		testutil.Op{Op: oplog.OpPut, Bytes: 2 << 20, Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpGet, Bytes: 100 << 20, At: time.Second, Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpGet, Bytes: 4096, At: 2 * time.Second, Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpStat, Bytes: 0, At: 3 * time.Second, Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpDelete, Bytes: 0, At: 4 * time.Second, Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpPut, Bytes: 4096, At: 5 * time.Second, Latency: time.Millisecond},
	)

	tbl := Assemble("a.csv.zst", group.Overall, results(t, group.Builder{}, recs), Options{Precision: 2, Runtime: 5 * time.Second})

	want := []struct {
		op  string
		num int
	}{
		{"META", 97},
		{"GET", 98},
		{"PUT", 99},
		{"DELETE", 0},
		{"STAT", 0},
		{"GET", 1},
		{"PUT", 1},
		{"PUT", 4},
		{"GET", 6},
	}

	if len(tbl.Rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(tbl.Rows), len(want))
	}
	for i, w := range want {
		r := tbl.Rows[i]
		if r.Op != w.op || r.BucketNum != w.num {
			t.Errorf("row %d = %s/%d, want %s/%d", i, r.Op, r.BucketNum, w.op, w.num)
		}
	}
	if tbl.Rows[0].Bucket != "ALL" || tbl.Rows[3].Bucket != "zero" {
		t.Errorf("labels: %q %q", tbl.Rows[0].Bucket, tbl.Rows[3].Bucket)
	}

	if tbl.Total.Ops != 6 {
		t.Errorf("total ops = %d", tbl.Total.Ops)
	}
	if tbl.Total.OpsPerSec == nil || *tbl.Total.OpsPerSec != 1.2 {
		t.Errorf("total ops/s = %v", tbl.Total.OpsPerSec)
	}
}

func TestAssemble_GetPutScenario(t *testing.T) {
	recs := testutil.Records(
		testutil.Op{Op: oplog.OpGet, Bytes: 4096, Latency: 100 * time.Microsecond},
		testutil.Op{Op: oplog.OpPut, Bytes: 2 << 20, At: time.Second, Latency: 500 * time.Microsecond},
	)

	tbl := Assemble("x", group.Overall, results(t, group.Builder{}, recs), Options{Precision: 2})

	var details []Row
	for _, r := range tbl.Rows {
		if r.Op == "META" {
			t.Error("unexpected META row")
		}
		if !r.Summary {
			details = append(details, r)
		}
	}
	if len(details) != 2 {
		t.Fatalf("got %d detail rows", len(details))
	}
	if details[0].Op != "GET" || details[0].BucketNum != 1 || details[0].Count != 1 {
		t.Errorf("GET row = %+v", details[0])
	}
	if details[1].Op != "PUT" || details[1].BucketNum != 4 || details[1].Count != 1 {
		t.Errorf("PUT row = %+v", details[1])
	}
	if details[0].Mean != 100 || details[1].Max != 500 {
		t.Errorf("latencies: %f %f", details[0].Mean, details[1].Max)
	}
	if details[0].OpsPerSec == nil || *details[0].OpsPerSec != 10000 {
		t.Errorf("GET ops/s over a 100µs window = %v, want 10000", details[0].OpsPerSec)
	}
	if tbl.Total.OpsPerSec != nil {
		t.Error("total rate should be undefined without runtime")
	}
}

func TestAssemble_Rounding(t *testing.T) {
	recs := testutil.Records(
		testutil.Op{Op: oplog.OpGet, Bytes: 1000, Latency: 1234567 * time.Nanosecond},
		testutil.Op{Op: oplog.OpGet, Bytes: 1001, At: 3 * time.Second, Latency: 1 * time.Microsecond},
	)

	tbl := Assemble("x", group.Overall, results(t, group.Builder{}, recs), Options{Precision: 2})
	r := tbl.Rows[len(tbl.Rows)-1]

	if r.Max != 1234.57 {
		t.Errorf("max = %v, want 1234.57", r.Max)
	}
	if r.AvgObjectKiB != 0.98 {
		t.Errorf("avg KiB = %v, want 0.98", r.AvgObjectKiB)
	}
	if r.OpsPerSec == nil || *r.OpsPerSec != 0.67 {
		t.Errorf("ops/s = %v, want 0.67", r.OpsPerSec)
	}
}

func TestAssemble_PerEndpointSlices(t *testing.T) {
	var recs []oplog.Record
	for i, ep := range []string{"http://b:9000", "http://a:9000", "http://b:9000"} {
		recs = append(recs, testutil.Op{
			Op:       oplog.OpGet,
			Bytes:    4096,
			At:       time.Duration(i) * time.Second,
			Latency:  time.Millisecond,
			Endpoint: ep,
		}.Record())
	}

	res := results(t, group.Builder{PerEndpoint: true}, recs)
	tbl := Assemble("x", group.ByEndpoint, res, Options{Precision: 2})

	if len(tbl.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(tbl.Rows))
	}
	if tbl.Rows[0].Endpoint != "http://a:9000" || !tbl.Rows[0].Summary {
		t.Errorf("first row = %+v", tbl.Rows[0])
	}
	if tbl.Rows[2].Endpoint != "http://b:9000" || tbl.Rows[2].Count != 2 {
		t.Errorf("third row = %+v", tbl.Rows[2])
	}

	overall := Assemble("x", group.Overall, res, Options{Precision: 2})
	if overall.Total.Ops != tbl.Total.Ops {
		t.Errorf("slice total %d != overall total %d", tbl.Total.Ops, overall.Total.Ops)
	}
}

func TestAssemble_DegenerateStaysNil(t *testing.T) {
	recs := testutil.Records(testutil.Op{Op: oplog.OpHead, Latency: 0})

	tbl := Assemble("x", group.Overall, results(t, group.Builder{}, recs), Options{Precision: 2})
	for _, r := range tbl.Rows {
		if !r.Degenerate() || r.MiBPerSec != nil {
			t.Errorf("%s/%s: rates should be undefined, got %v %v", r.Op, r.Bucket, r.OpsPerSec, r.MiBPerSec)
		}
	}
}

func TestAssemble_Empty(t *testing.T) {
	tbl := Assemble("empty.csv", group.Overall, nil, Options{Precision: 2})
	if len(tbl.Rows) != 0 || tbl.Total.Ops != 0 {
		t.Errorf("expected empty table, got %+v", tbl)
	}
}
