package selector

import (
	"math/rand"

	"github.com/urbansense/fleetcover/internal/model"
)

// Random selects k agents uniformly without replacement. A fixed seed makes
// the selection reproducible, which keeps it usable as a baseline in
// experiments.
type Random struct {
	seed int64
}

// NewRandom returns a Random selector with the given seed.
func NewRandom(seed int64) *Random {
	return &Random{seed: seed}
}

// Select samples k agents without replacement.
func (r *Random) Select(table *model.IncidenceTable, k int) (*model.Selection, error) {
	if err := validateCount(table, k); err != nil {
		return nil, err
	}

	agents := table.Agents() // ascending, so the permutation is seed-stable
	rng := rand.New(rand.NewSource(r.seed))

	picked := make([]int64, 0, k)
	for _, idx := range rng.Perm(len(agents))[:k] {
		picked = append(picked, agents[idx])
	}

	covered, steps := coverageSteps(table, picked)
	return &model.Selection{
		Agents:     picked,
		Covered:    covered,
		StepCounts: steps,
	}, nil
}
