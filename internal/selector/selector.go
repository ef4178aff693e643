// Package selector picks a fixed-size subset of agents whose historical
// traces maximize spatiotemporal coverage. Strategies are interchangeable
// behind the Selector interface; every strategy is deterministic for
// identical inputs (Random is deterministic per seed).
package selector

import (
	"github.com/rotisserie/eris"

	"github.com/urbansense/fleetcover/internal/model"
)

// Selector selects up to k agents from an incidence table. Each call is a
// pure function of its inputs; no state is carried across calls.
type Selector interface {
	Select(table *model.IncidenceTable, k int) (*model.Selection, error)
}

// validateCount rejects requests that exceed the candidate pool.
func validateCount(table *model.IncidenceTable, k int) error {
	if k <= 0 {
		return eris.Wrapf(model.ErrInvalidArgument, "selector: count must be positive, got %d", k)
	}
	if n := table.NumAgents(); k > n {
		return eris.Wrapf(model.ErrInvalidArgument,
			"selector: cannot select %d agents, only %d available", k, n)
	}
	return nil
}

// SplitByTime partitions tagged records into train and test by temporal
// bucket: buckets starting at or before splitTS train the selection, later
// buckets hold out for evaluation. Records without a temporal tag land in
// neither partition; they would be dropped by aggregation regardless.
func SplitByTime(records []model.TaggedRecord, splitTS int64) (train, test []model.TaggedRecord) {
	for _, r := range records {
		if !r.HasTemporal {
			continue
		}
		if r.TemporalID <= splitTS {
			train = append(train, r)
		} else {
			test = append(test, r)
		}
	}
	return train, test
}

// coverageSteps replays a pick order over the table, returning the union of
// covered segments and the cumulative covered-segment count after each pick.
// Used by the strategies that do not track coverage while selecting.
func coverageSteps(table *model.IncidenceTable, agents []int64) (map[model.Segment]struct{}, []int) {
	covered := make(map[model.Segment]struct{})
	steps := make([]int, 0, len(agents))
	for _, id := range agents {
		for seg := range table.Segments(id) {
			covered[seg] = struct{}{}
		}
		steps = append(steps, len(covered))
	}
	return covered, steps
}
