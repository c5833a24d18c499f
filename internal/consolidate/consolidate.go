// Package consolidate merges per-file aggregation sets into one.
//
// Merging unions the raw latency observations of each group, so the
// consolidated percentiles equal those of a single pass over all rows. Sets
// must still be writable: finalized percentiles are never combined.
package consolidate

import (
	"github.com/xtxerr/polarwarp/internal/aggregate"
	"github.com/xtxerr/polarwarp/internal/errors"
	"github.com/xtxerr/polarwarp/internal/logging"
)

// Merge folds the given sets into a fresh writable set. The sources are not
// modified and can still be finalized individually afterwards. Nil sets are
// skipped (files that produced no record stream).
func Merge(sets ...*aggregate.Set) (*aggregate.Set, error) {
	var first *aggregate.Set
	for _, s := range sets {
		if s != nil {
			first = s
			break
		}
	}
	if first == nil {
		return nil, errors.Wrap(errors.ErrNoRecords, "no sets to consolidate")
	}

	out := aggregate.NewSet(first.Builder(), first.Options())
	for i, s := range sets {
		if s == nil {
			continue
		}
		if err := out.Merge(s); err != nil {
			return nil, errors.Wrapf(err, "consolidate set %d", i)
		}
	}

	logging.Component("consolidate").Debug("sets merged",
		"sets", out.Stats().MergedSets,
		"groups", out.Len(),
		"records", out.Stats().RecordsProcessed)

	return out, nil
}

// Finalize merges and finalizes in one step.
func Finalize(sets ...*aggregate.Set) ([]aggregate.Result, *aggregate.Set, error) {
	out, err := Merge(sets...)
	if err != nil {
		return nil, nil, err
	}
	return out.Finalize(), out, nil
}
