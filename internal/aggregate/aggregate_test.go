package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/xtxerr/polarwarp/internal/bucket"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/oplog"
	"github.com/xtxerr/polarwarp/internal/testutil"
)

var getKey = group.Key{
	Op:       "GET",
	Bucket:   bucket.UpTo8KiB,
	Endpoint: group.Wildcard,
	Client:   group.Wildcard,
	Dim:      group.Overall,
}

func newGroup(t *testing.T, opts Options) *Group {
	t.Helper()
	g, err := New(getKey, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func addAll(t *testing.T, g *Group, recs []oplog.Record) {
	t.Helper()
	for i := range recs {
		if err := g.Add(&recs[i]); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
}

func TestGroup_Basic(t *testing.T) {
	g := newGroup(t, DefaultOptions())

	if !g.IsEmpty() {
		t.Error("new group should be empty")
	}

	// Latencies 10..50µs, one per second.
	var recs []oplog.Record
	for i, us := range []int{30, 10, 50, 20, 40} {
		recs = append(recs, testutil.Op{
			Op:      oplog.OpGet,
			Bytes:   4096,
			At:      time.Duration(i) * time.Second,
			Latency: time.Duration(us) * time.Microsecond,
		}.Record())
	}
	addAll(t, g, recs)

	r := g.Finalize()

	if r.Count != 5 {
		t.Errorf("expected count=5, got %d", r.Count)
	}
	if r.Median != 30 {
		t.Errorf("expected median=30, got %f", r.Median)
	}
	if r.Max != 50 {
		t.Errorf("expected max=50, got %f", r.Max)
	}
	if math.Abs(r.Mean-30) > 1e-9 {
		t.Errorf("expected mean=30, got %f", r.Mean)
	}
	if math.Abs(r.AvgObjectKiB-4) > 1e-9 {
		t.Errorf("expected avg object 4 KiB, got %f", r.AvgObjectKiB)
	}
	if r.Threads != 1 {
		t.Errorf("expected 1 thread, got %d", r.Threads)
	}
}

func TestGroup_Percentiles(t *testing.T) {
	g := newGroup(t, DefaultOptions())

	// 1..100µs
	for i := 1; i <= 100; i++ {
		rec := testutil.Op{
			Op:      oplog.OpGet,
			Bytes:   100,
			At:      time.Duration(i) * time.Millisecond,
			Latency: time.Duration(i) * time.Microsecond,
		}.Record()
		if err := g.Add(&rec); err != nil {
			t.Fatal(err)
		}
	}

	r := g.Finalize()

	// h = q*(n-1): p50 -> 50.5, p90 -> 90.1, p95 -> 95.05, p99 -> 99.01
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"median", r.Median, 50.5},
		{"p90", r.P90, 90.1},
		{"p95", r.P95, 95.05},
		{"p99", r.P99, 99.01},
		{"max", r.Max, 100},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-9 {
			t.Errorf("%s: got %f, want %f", tt.name, tt.got, tt.want)
		}
	}
}

func TestGroup_Rates(t *testing.T) {
	g := newGroup(t, DefaultOptions())

	// Two 1MiB operations spanning exactly 2 seconds.
	recs := testutil.Records(
		testutil.Op{Op: oplog.OpGet, Bytes: 1 << 20, At: 0, Latency: time.Second},
		testutil.Op{Op: oplog.OpGet, Bytes: 1 << 20, At: time.Second, Latency: time.Second},
	)
	addAll(t, g, recs)

	r := g.Finalize()
	if r.Degenerate() {
		t.Fatal("rates should be defined")
	}
	if r.Runtime != 2 {
		t.Errorf("runtime = %f, want 2", r.Runtime)
	}
	if *r.OpsPerSec != 1 {
		t.Errorf("ops/s = %f, want 1", *r.OpsPerSec)
	}
	if *r.MiBPerSec != 1 {
		t.Errorf("MiB/s = %f, want 1", *r.MiBPerSec)
	}
}

func TestGroup_RuntimeIsPerGroup(t *testing.T) {
	set := NewSet(group.Builder{}, DefaultOptions())

	// GETs over 100s, a burst of PUTs over 1s in the middle.
	recs := append(
		testutil.Series(oplog.OpGet, 4096, 101, time.Second),
		testutil.Records(
			testutil.Op{Op: oplog.OpPut, Bytes: 4096, At: 50 * time.Second, Latency: 0},
			testutil.Op{Op: oplog.OpPut, Bytes: 4096, At: 51 * time.Second, Latency: 0},
		)...,
	)
	if err := set.AddBatch(recs); err != nil {
		t.Fatal(err)
	}

	for _, r := range set.Results(group.Overall) {
		if r.Key.Op == "PUT" && !r.Key.Summary {
			if r.Runtime != 1 {
				t.Errorf("PUT runtime = %f, want 1", r.Runtime)
			}
			if *r.OpsPerSec != 2 {
				t.Errorf("PUT ops/s = %f, want 2", *r.OpsPerSec)
			}
		}
	}
}

func TestGroup_Degenerate(t *testing.T) {
	g := newGroup(t, DefaultOptions())

	rec := testutil.Op{Op: oplog.OpGet, Bytes: 4096, Latency: 0}.Record()
	if err := g.Add(&rec); err != nil {
		t.Fatal(err)
	}

	r := g.Finalize()
	if r.Count != 1 {
		t.Errorf("count = %d", r.Count)
	}
	if !r.Degenerate() || r.OpsPerSec != nil || r.MiBPerSec != nil {
		t.Errorf("expected undefined rates, got ops=%v mibps=%v", r.OpsPerSec, r.MiBPerSec)
	}
	if r.Runtime != 0 {
		t.Errorf("runtime = %f", r.Runtime)
	}
}

func TestGroup_DistinctThreads(t *testing.T) {
	g := newGroup(t, DefaultOptions())

	recs := testutil.Records(
		testutil.Op{Op: oplog.OpGet, Bytes: 1, Client: "a", Thread: "1", Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpGet, Bytes: 1, Client: "a", Thread: "1", Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpGet, Bytes: 1, Client: "a", Thread: "2", Latency: time.Millisecond},
		testutil.Op{Op: oplog.OpGet, Bytes: 1, Client: "b", Thread: "1", Latency: time.Millisecond},
	)
	addAll(t, g, recs)

	if r := g.Finalize(); r.Threads != 3 {
		t.Errorf("threads = %d, want 3", r.Threads)
	}
}

func TestGroup_StateMachine(t *testing.T) {
	g := newGroup(t, DefaultOptions())
	rec := testutil.Op{Op: oplog.OpGet, Bytes: 10, Latency: time.Millisecond}.Record()
	if err := g.Add(&rec); err != nil {
		t.Fatal(err)
	}

	if g.State() != Writable {
		t.Errorf("state = %s, want writable", g.State())
	}

	first := g.Finalize()
	if g.State() != Finalized {
		t.Errorf("state = %s, want finalized", g.State())
	}

	if err := g.Add(&rec); !errors.Is(err, errors.ErrGroupFinalized) {
		t.Errorf("Add after finalize: got %v, want ErrGroupFinalized", err)
	}

	other := newGroup(t, DefaultOptions())
	if err := g.Merge(other); !errors.Is(err, errors.ErrGroupFinalized) {
		t.Errorf("Merge into finalized: got %v", err)
	}
	if err := other.Merge(g); !errors.Is(err, errors.ErrGroupFinalized) {
		t.Errorf("Merge from finalized: got %v", err)
	}

	if second := g.Finalize(); second.Count != first.Count || second.Median != first.Median {
		t.Error("second Finalize returned a different result")
	}
}

func TestGroup_MergeLeavesSourceUntouched(t *testing.T) {
	a := newGroup(t, DefaultOptions())
	b := newGroup(t, DefaultOptions())

	addAll(t, a, testutil.Series(oplog.OpGet, 10, 3, time.Second, 10*time.Microsecond))
	addAll(t, b, testutil.Series(oplog.OpGet, 10, 2, time.Second, 90*time.Microsecond))

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Count() != 5 || b.Count() != 2 {
		t.Errorf("counts after merge: a=%d b=%d", a.Count(), b.Count())
	}
	if b.State() != Writable {
		t.Error("merge must not finalize the source")
	}
	if r := b.Finalize(); r.Max != 90 {
		t.Errorf("source max = %f", r.Max)
	}
}

func TestGroup_MergeKeyMismatch(t *testing.T) {
	a := newGroup(t, DefaultOptions())
	otherKey := getKey
	otherKey.Op = "PUT"
	b, err := New(otherKey, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	rec := testutil.Op{Op: oplog.OpPut, Bytes: 10, Latency: time.Millisecond}.Record()
	_ = b.Add(&rec)

	if err := a.Merge(b); !errors.Is(err, errors.ErrInvariant) {
		t.Errorf("got %v, want ErrInvariant", err)
	}
}

func TestNew_InvalidKey(t *testing.T) {
	key := getKey
	key.Bucket = bucket.ID(11)
	if _, err := New(key, DefaultOptions()); !errors.Is(err, errors.ErrInvariant) {
		t.Errorf("got %v, want ErrInvariant", err)
	}
}

func TestNew_InvalidMode(t *testing.T) {
	if _, err := New(getKey, Options{Mode: "histogram"}); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestGroup_SketchMode(t *testing.T) {
	opts := Options{Mode: ModeSketch, Accuracy: 0.01}
	g := newGroup(t, opts)

	for i := 1; i <= 1000; i++ {
		rec := testutil.Op{
			Op:      oplog.OpGet,
			Bytes:   100,
			At:      time.Duration(i) * time.Millisecond,
			Latency: time.Duration(i) * time.Microsecond,
		}.Record()
		if err := g.Add(&rec); err != nil {
			t.Fatal(err)
		}
	}

	r := g.Finalize()

	if r.Max != 1000 {
		t.Errorf("max must be exact in sketch mode, got %f", r.Max)
	}
	if math.Abs(r.Median-500)/500 > 0.02 {
		t.Errorf("median = %f, want ~500", r.Median)
	}
	if math.Abs(r.P99-990)/990 > 0.02 {
		t.Errorf("p99 = %f, want ~990", r.P99)
	}
}

func TestGroup_MixedModesRejected(t *testing.T) {
	exact := newGroup(t, DefaultOptions())
	sketch := newGroup(t, Options{Mode: ModeSketch, Accuracy: 0.01})
	rec := testutil.Op{Op: oplog.OpGet, Bytes: 10, Latency: time.Millisecond}.Record()
	_ = sketch.Add(&rec)

	if err := exact.Merge(sketch); !errors.Is(err, errors.ErrInvariant) {
		t.Errorf("got %v, want ErrInvariant", err)
	}
}

func TestGroup_SketchRejectsNegativeLatency(t *testing.T) {
	g := newGroup(t, Options{Mode: ModeSketch, Accuracy: 0.01})

	// Records built directly skip oplog validation.
	rec := testutil.Op{Op: oplog.OpGet, Bytes: 10, Latency: time.Millisecond}.Record()
	rec.Duration = -time.Millisecond

	if err := g.Add(&rec); !errors.Is(err, errors.ErrInvariant) {
		t.Fatalf("got %v, want ErrInvariant", err)
	}
	if !g.IsEmpty() || g.Count() != 0 {
		t.Errorf("rejected observation changed the group: count=%d", g.Count())
	}
}
