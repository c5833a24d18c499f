package group

import (
	"testing"
	"time"

	"github.com/xtxerr/polarwarp/internal/bucket"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

func record(op oplog.Op, size int64) *oplog.Record {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &oplog.Record{
		Op:       op,
		Bytes:    size,
		Endpoint: "http://s3-b:9000",
		Client:   "client-7",
		Thread:   "3",
		Start:    start,
		End:      start.Add(time.Millisecond),
		Duration: time.Millisecond,
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		op   oplog.Op
		want Class
	}{
		{oplog.OpList, ClassMeta},
		{oplog.OpHead, ClassMeta},
		{oplog.OpDelete, ClassMeta},
		{oplog.OpStat, ClassMeta},
		{oplog.OpGet, ClassGet},
		{oplog.OpPut, ClassPut},
		{oplog.Op("RETENTION"), ClassOther},
	}

	for _, tt := range tests {
		if got := ClassOf(tt.op); got != tt.want {
			t.Errorf("ClassOf(%s) = %s, want %s", tt.op, got, tt.want)
		}
	}
}

func TestClassNumbers(t *testing.T) {
	if ClassMeta.Number() != 97 || ClassGet.Number() != 98 || ClassPut.Number() != 99 || ClassOther.Number() != 96 {
		t.Error("unexpected summary numbers")
	}
	if !(ClassMeta.Rank() < ClassGet.Rank() && ClassGet.Rank() < ClassPut.Rank() && ClassPut.Rank() < ClassOther.Rank()) {
		t.Error("summary ranks out of order")
	}
}

func TestBuilder_Dimensions(t *testing.T) {
	tests := []struct {
		b    Builder
		want []Dimension
	}{
		{Builder{}, []Dimension{Overall}},
		{Builder{PerEndpoint: true}, []Dimension{Overall, ByEndpoint}},
		{Builder{PerClient: true}, []Dimension{Overall, ByClient}},
		{Builder{PerEndpoint: true, PerClient: true}, []Dimension{Overall, ByEndpoint, ByClient}},
	}

	for _, tt := range tests {
		got := tt.b.Dimensions()
		if len(got) != len(tt.want) {
			t.Errorf("%+v: got %v, want %v", tt.b, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%+v: got %v, want %v", tt.b, got, tt.want)
			}
		}
	}
}

func TestBuilder_Keys(t *testing.T) {
	b := Builder{PerEndpoint: true, PerClient: true}
	rec := record(oplog.OpHead, 0)

	detail, summary := b.Keys(rec, Overall)
	if detail.Op != "HEAD" || detail.Bucket != bucket.Zero || detail.Summary {
		t.Errorf("detail = %+v", detail)
	}
	if detail.Endpoint != Wildcard || detail.Client != Wildcard {
		t.Errorf("overall detail should be wildcarded: %+v", detail)
	}
	if summary.Op != "META" || !summary.Summary || summary.Number() != 97 || summary.Label() != "ALL" {
		t.Errorf("summary = %+v", summary)
	}

	detail, summary = b.Keys(rec, ByEndpoint)
	if detail.Endpoint != rec.Endpoint || detail.Client != Wildcard {
		t.Errorf("endpoint detail = %+v", detail)
	}
	if summary.Endpoint != rec.Endpoint || summary.Client != Wildcard {
		t.Errorf("endpoint summary = %+v", summary)
	}
	if detail.Slice(ByEndpoint) != rec.Endpoint {
		t.Errorf("Slice(ByEndpoint) = %q", detail.Slice(ByEndpoint))
	}

	detail, _ = b.Keys(rec, ByClient)
	if detail.Client != rec.Client || detail.Endpoint != Wildcard {
		t.Errorf("client detail = %+v", detail)
	}
}

func TestBuilder_KeysIgnoreDisabledFields(t *testing.T) {
	var b Builder
	r1 := record(oplog.OpGet, 4096)
	r2 := record(oplog.OpGet, 4000)
	r2.Endpoint = "http://other:9000"
	r2.Client = "client-2"

	d1, s1 := b.Keys(r1, Overall)
	d2, s2 := b.Keys(r2, Overall)
	if d1 != d2 || s1 != s2 {
		t.Errorf("overall keys differ: %v %v / %v %v", d1, s1, d2, s2)
	}
}

func TestKey_Valid(t *testing.T) {
	tests := []struct {
		k    Key
		want bool
	}{
		{Key{Op: "GET", Bucket: bucket.UpTo4MiB}, true},
		{Key{Op: "GET", Bucket: bucket.ID(12)}, false},
		{Key{Op: "", Bucket: bucket.Zero}, false},
		{Key{Op: "META", Summary: true}, true},
		{Key{Op: "LIST", Summary: true}, false},
	}

	for _, tt := range tests {
		if got := tt.k.Valid(); got != tt.want {
			t.Errorf("%v.Valid() = %v, want %v", tt.k, got, tt.want)
		}
	}
}
