package consolidate

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/xtxerr/polarwarp/internal/aggregate"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/group"
	"github.com/xtxerr/polarwarp/internal/oplog"
	"github.com/xtxerr/polarwarp/internal/testutil"
)

func randomRecords(rng *rand.Rand, n int) []oplog.Record {
	ops := []oplog.Op{oplog.OpGet, oplog.OpPut, oplog.OpHead, oplog.OpList, oplog.OpDelete}
	sizes := []int64{0, 100, 8192, 8193, 1 << 20, 5 << 20, 300 << 20}
	endpoints := []string{"http://a:9000", "http://b:9000"}

	recs := make([]oplog.Record, n)
	for i := range recs {
		recs[i] = testutil.Op{
			Op:       ops[rng.Intn(len(ops))],
			Bytes:    sizes[rng.Intn(len(sizes))],
			At:       time.Duration(rng.Intn(600_000)) * time.Millisecond,
			Latency:  time.Duration(1+rng.Intn(50_000)) * time.Microsecond,
			Endpoint: endpoints[rng.Intn(len(endpoints))],
			Client:   []string{"c1", "c2", "c3"}[rng.Intn(3)],
			Thread:   []string{"1", "2", "3", "4"}[rng.Intn(4)],
		}.Record()
	}
	return recs
}

func build(t *testing.T, b group.Builder, recs []oplog.Record) *aggregate.Set {
	t.Helper()
	s := aggregate.NewSet(b, aggregate.DefaultOptions())
	if err := s.AddBatch(recs); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	return s
}

func index(results []aggregate.Result) map[group.Key]aggregate.Result {
	m := make(map[group.Key]aggregate.Result, len(results))
	for _, r := range results {
		m[r.Key] = r
	}
	return m
}

func equalRate(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) <= 1e-9*math.Max(1, math.Abs(*a))
}

func TestMerge_EquivalentToSinglePass(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := group.Builder{PerEndpoint: true, PerClient: true}

	for trial := 0; trial < 5; trial++ {
		recs := randomRecords(rng, 2000)
		split := rng.Intn(len(recs) + 1)

		single := index(build(t, b, recs).Finalize())

		merged, err := Merge(build(t, b, recs[:split]), build(t, b, recs[split:]))
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		got := index(merged.Finalize())

		if len(got) != len(single) {
			t.Fatalf("trial %d: %d groups, single pass has %d", trial, len(got), len(single))
		}

		for k, want := range single {
			r, ok := got[k]
			if !ok {
				t.Errorf("trial %d: missing group %s", trial, k)
				continue
			}
			if r.Count != want.Count || r.Bytes != want.Bytes || r.Threads != want.Threads {
				t.Errorf("trial %d %s: count/bytes/threads %d/%d/%d vs %d/%d/%d",
					trial, k, r.Count, r.Bytes, r.Threads, want.Count, want.Bytes, want.Threads)
			}
			if r.Median != want.Median || r.P90 != want.P90 || r.P95 != want.P95 || r.P99 != want.P99 || r.Max != want.Max {
				t.Errorf("trial %d %s: percentiles differ: %+v vs %+v", trial, k, r, want)
			}
			if math.Abs(r.Mean-want.Mean) > 1e-6 {
				t.Errorf("trial %d %s: mean %f vs %f", trial, k, r.Mean, want.Mean)
			}
			if !r.Start.Equal(want.Start) || !r.End.Equal(want.End) {
				t.Errorf("trial %d %s: window differs", trial, k)
			}
			if !equalRate(r.OpsPerSec, want.OpsPerSec) || !equalRate(r.MiBPerSec, want.MiBPerSec) {
				t.Errorf("trial %d %s: rates differ", trial, k)
			}
		}
	}
}

func TestMerge_SourcesUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := build(t, group.Builder{}, randomRecords(rng, 100))
	b := build(t, group.Builder{}, randomRecords(rng, 50))

	if _, err := Merge(a, b); err != nil {
		t.Fatal(err)
	}

	if a.IsFinalized() || b.IsFinalized() {
		t.Error("sources must stay writable")
	}
	if a.Stats().RecordsProcessed != 100 || b.Stats().RecordsProcessed != 50 {
		t.Errorf("sources modified: %+v %+v", a.Stats(), b.Stats())
	}
}

func TestMerge_RejectsFinalized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := build(t, group.Builder{}, randomRecords(rng, 10))
	b := build(t, group.Builder{}, randomRecords(rng, 10))
	b.Finalize()

	if _, err := Merge(a, b); !errors.Is(err, errors.ErrGroupFinalized) {
		t.Errorf("got %v, want ErrGroupFinalized", err)
	}
}

func TestMerge_SkipsNil(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := build(t, group.Builder{}, randomRecords(rng, 10))

	out, err := Merge(nil, a, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Stats().RecordsProcessed != 10 {
		t.Errorf("records = %d", out.Stats().RecordsProcessed)
	}

	if _, err := Merge(nil, nil); !errors.Is(err, errors.ErrNoRecords) {
		t.Errorf("got %v, want ErrNoRecords", err)
	}
}

func TestMerge_ParallelFiles(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	files := make([][]oplog.Record, 4)
	for i := range files {
		files[i] = randomRecords(rng, 500)
	}

	sets := make([]*aggregate.Set, len(files))
	gt := testutil.NewGoroutineTest(t)
	for i := range files {
		gt.Go(func() error {
			s := aggregate.NewSet(group.Builder{}, aggregate.DefaultOptions())
			if err := s.AddBatch(files[i]); err != nil {
				return err
			}
			sets[i] = s
			return nil
		})
	}
	gt.Wait()

	results, _, err := Finalize(sets...)
	if err != nil {
		t.Fatal(err)
	}

	var total int64
	for _, r := range results {
		if r.Key.Summary {
			total += r.Count
		}
	}
	if err := testutil.AssertEqual(total, int64(2000), "consolidated count"); err != nil {
		t.Error(err)
	}
}
