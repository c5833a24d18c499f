package oplog

import (
	"sort"

	"github.com/xtxerr/polarwarp/internal/errors"
)

// Rejects counts rows dropped by validation, keyed by reason.
type Rejects struct {
	Total    int
	ByReason map[string]int

	// First keeps the earliest few rejections for diagnostics.
	First []error
}

const maxKeptRejects = 5

// Add records one rejected row.
func (r *Rejects) Add(err error) {
	if err == nil {
		return
	}
	if r.ByReason == nil {
		r.ByReason = make(map[string]int)
	}
	r.Total++
	r.ByReason[errors.Reason(err)]++
	if len(r.First) < maxKeptRejects {
		r.First = append(r.First, err)
	}
}

// Merge adds the counts of other into r.
func (r *Rejects) Merge(other Rejects) {
	if other.Total == 0 {
		return
	}
	if r.ByReason == nil {
		r.ByReason = make(map[string]int)
	}
	r.Total += other.Total
	for reason, n := range other.ByReason {
		r.ByReason[reason] += n
	}
	for _, err := range other.First {
		if len(r.First) >= maxKeptRejects {
			break
		}
		r.First = append(r.First, err)
	}
}

// Reasons returns the reasons in sorted order.
func (r *Rejects) Reasons() []string {
	reasons := make([]string, 0, len(r.ByReason))
	for reason := range r.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
