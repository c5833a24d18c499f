// Package bucket maps object sizes to the nine fixed size ranges used for grouping.
//
// Ranges are lower-exclusive and upper-inclusive: exactly 8 KiB belongs to
// "1B-8KiB", one byte more belongs to "8KiB-64KiB". Bucket identity depends
// only on the size, so buckets from different files line up for consolidation.
package bucket

import "fmt"

// ID identifies a size bucket. Detail buckets are 0-8; summary rows carry
// the pseudo numbers assigned per operation class in package group.
type ID int

const (
	Zero ID = iota
	UpTo8KiB
	UpTo64KiB
	UpTo512KiB
	UpTo4MiB
	UpTo32MiB
	UpTo256MiB
	UpTo2GiB
	Over2GiB

	// Count is the number of detail buckets.
	Count = 9
)

const (
	KiB = int64(1) << 10
	MiB = int64(1) << 20
	GiB = int64(1) << 30
)

// upper holds the inclusive upper bound of buckets 0-7. Bucket 8 is unbounded.
var upper = [Count - 1]int64{
	0,
	8 * KiB,
	64 * KiB,
	512 * KiB,
	4 * MiB,
	32 * MiB,
	256 * MiB,
	2 * GiB,
}

var labels = [Count]string{
	"zero",
	"1B-8KiB",
	"8KiB-64KiB",
	"64KiB-512KiB",
	"512KiB-4MiB",
	"4MiB-32MiB",
	"32MiB-256MiB",
	"256MiB-2GiB",
	">2GiB",
}

// For returns the bucket of an object of size bytes. Negative sizes are
// rejected upstream and land in Zero.
func For(size int64) ID {
	for i, bound := range upper {
		if size <= bound {
			return ID(i)
		}
	}
	return Over2GiB
}

// Valid reports whether id is a detail bucket.
func (id ID) Valid() bool {
	return id >= Zero && id <= Over2GiB
}

// Label returns the human-readable range of the bucket.
func (id ID) Label() string {
	if !id.Valid() {
		return fmt.Sprintf("bucket(%d)", int(id))
	}
	return labels[id]
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Label()
}

// Bounds returns the exclusive lower and inclusive upper byte bound.
// hi is -1 for the unbounded last bucket; lo is -1 for Zero.
func (id ID) Bounds() (lo, hi int64) {
	switch {
	case id == Zero:
		return -1, 0
	case id == Over2GiB:
		return upper[Count-2], -1
	case id.Valid():
		return upper[id-1], upper[id]
	}
	return 0, 0
}

// All returns the detail buckets in ascending order.
func All() []ID {
	ids := make([]ID, Count)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// SummaryLabel is the bucket label carried by summary rows.
const SummaryLabel = "ALL"
