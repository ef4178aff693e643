package selector

import (
	"sort"

	"github.com/urbansense/fleetcover/internal/model"
)

// TopCount selects the k agents with the largest total sample counts,
// ignoring coverage overlap. Ties break by agent ID ascending.
type TopCount struct{}

// NewTopCount returns a TopCount selector.
func NewTopCount() *TopCount {
	return &TopCount{}
}

// Select picks the top-k agents by sample count.
func (t *TopCount) Select(table *model.IncidenceTable, k int) (*model.Selection, error) {
	if err := validateCount(table, k); err != nil {
		return nil, err
	}

	agents := table.Agents()
	sort.SliceStable(agents, func(i, j int) bool {
		return table.TotalSamples(agents[i]) > table.TotalSamples(agents[j])
	})

	picked := agents[:k]
	covered, steps := coverageSteps(table, picked)
	return &model.Selection{
		Agents:     picked,
		Covered:    covered,
		StepCounts: steps,
	}, nil
}
