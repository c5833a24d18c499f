// Package group derives the aggregation keys of operation records.
//
// Every record contributes to exactly one detail group (its own operation
// code and size bucket) and exactly one summary group (its operation class
// across all buckets) per slicing dimension.
package group

import (
	"fmt"

	"github.com/xtxerr/polarwarp/internal/bucket"
	"github.com/xtxerr/polarwarp/internal/oplog"
)

// Wildcard replaces endpoint and client values that do not belong to the
// dimension being aggregated.
const Wildcard = "*"

// Class is the summary category of an operation.
type Class string

const (
	ClassMeta  Class = "META"
	ClassGet   Class = "GET"
	ClassPut   Class = "PUT"
	ClassOther Class = "OTHER"
)

var classes = map[oplog.Op]Class{
	oplog.OpList:   ClassMeta,
	oplog.OpHead:   ClassMeta,
	oplog.OpDelete: ClassMeta,
	oplog.OpStat:   ClassMeta,
	oplog.OpGet:    ClassGet,
	oplog.OpPut:    ClassPut,
}

// ClassOf returns the summary class of op.
func ClassOf(op oplog.Op) Class {
	if c, ok := classes[op]; ok {
		return c
	}
	return ClassOther
}

// Number is the pseudo bucket number printed on summary rows.
func (c Class) Number() int {
	switch c {
	case ClassMeta:
		return 97
	case ClassGet:
		return 98
	case ClassPut:
		return 99
	default:
		return 96
	}
}

// Rank orders summary rows: META, GET, PUT, then OTHER.
func (c Class) Rank() int {
	switch c {
	case ClassMeta:
		return 0
	case ClassGet:
		return 1
	case ClassPut:
		return 2
	default:
		return 3
	}
}

// Dimension selects how groups are sliced.
type Dimension string

const (
	Overall    Dimension = "overall"
	ByEndpoint Dimension = "endpoint"
	ByClient   Dimension = "client"
)

// Key identifies one output row's aggregation scope.
type Key struct {
	// Op is the operation code for detail keys and the class name for summary keys.
	Op       string
	Bucket   bucket.ID
	Endpoint string
	Client   string
	Summary  bool
	Dim      Dimension
}

// Class returns the operation class of the key.
func (k Key) Class() Class {
	if k.Summary {
		return Class(k.Op)
	}
	return ClassOf(oplog.Op(k.Op))
}

// Number is the bucket number shown in output: 0-8 for details, 96-99 for summaries.
func (k Key) Number() int {
	if k.Summary {
		return k.Class().Number()
	}
	return int(k.Bucket)
}

// Label is the bucket label shown in output.
func (k Key) Label() string {
	if k.Summary {
		return bucket.SummaryLabel
	}
	return k.Bucket.Label()
}

// Valid reports whether the key can be aggregated.
func (k Key) Valid() bool {
	if k.Op == "" {
		return false
	}
	if k.Summary {
		switch Class(k.Op) {
		case ClassMeta, ClassGet, ClassPut, ClassOther:
			return true
		}
		return false
	}
	return k.Bucket.Valid()
}

// Slice returns the endpoint or client value the key is sliced by, or "" for
// the overall dimension.
func (k Key) Slice(dim Dimension) string {
	switch dim {
	case ByEndpoint:
		return k.Endpoint
	case ByClient:
		return k.Client
	}
	return ""
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Op, k.Label(), k.Endpoint, k.Client)
}

// Builder builds keys according to the enabled breakdowns.
type Builder struct {
	PerEndpoint bool
	PerClient   bool
}

// Dimensions lists the dimensions to aggregate: always Overall, then the
// enabled breakdowns.
func (b Builder) Dimensions() []Dimension {
	dims := []Dimension{Overall}
	if b.PerEndpoint {
		dims = append(dims, ByEndpoint)
	}
	if b.PerClient {
		dims = append(dims, ByClient)
	}
	return dims
}

// Keys returns the detail and summary key of rec for dim.
func (b Builder) Keys(rec *oplog.Record, dim Dimension) (detail, summary Key) {
	endpoint, client := Wildcard, Wildcard
	switch dim {
	case ByEndpoint:
		endpoint = rec.Endpoint
	case ByClient:
		client = rec.Client
	}

	detail = Key{
		Op:       string(rec.Op),
		Bucket:   bucket.For(rec.Bytes),
		Endpoint: endpoint,
		Client:   client,
		Dim:      dim,
	}
	summary = Key{
		Op:       string(ClassOf(rec.Op)),
		Endpoint: endpoint,
		Client:   client,
		Summary:  true,
		Dim:      dim,
	}
	return detail, summary
}
