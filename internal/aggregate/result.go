package aggregate

import (
	"time"

	"github.com/xtxerr/polarwarp/internal/group"
)

// Result is the finalized statistics of one group. Latencies are microseconds.
type Result struct {
	Key group.Key

	Count   int64
	Bytes   int64
	Threads int

	Mean   float64
	Median float64
	P90    float64
	P95    float64
	P99    float64
	Max    float64

	AvgObjectKiB float64

	// Start and End bound the operations of this group only.
	Start   time.Time
	End     time.Time
	Runtime float64 // seconds

	// Rates are nil when the runtime window is zero.
	OpsPerSec *float64
	MiBPerSec *float64
}

// Degenerate returns true if the rates are undefined.
func (r *Result) Degenerate() bool {
	return r.OpsPerSec == nil
}
