package selector

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbansense/fleetcover/internal/model"
)

// Greedy approximates the NP-hard Maximum Coverage Problem with the classic
// greedy algorithm. Submodularity of the coverage objective guarantees a
// (1 - 1/e) ~= 0.632 approximation ratio.
//
// The first pick is the agent covering the most distinct segments, which is
// equivalent to (but cheaper than) one general step over an empty covered
// set. Every subsequent step picks the agent maximizing the union of covered
// segments. All ties break by agent ID ascending so that identical inputs
// always yield identical output; map iteration order is never relied on.
type Greedy struct {
	// Parallelism bounds the marginal-gain fan-out. Zero means GOMAXPROCS.
	Parallelism int
}

// NewGreedy returns a greedy selector with default parallelism.
func NewGreedy() *Greedy {
	return &Greedy{}
}

// Select picks up to k agents. When no remaining agent adds new coverage the
// selection stops early and Exhausted is set; the short selection is a
// documented outcome, not an error.
func (g *Greedy) Select(table *model.IncidenceTable, k int) (*model.Selection, error) {
	if err := validateCount(table, k); err != nil {
		return nil, err
	}

	pool := table.Agents() // ascending, so first strict improvement wins ties

	first := pool[0]
	bestSegments := len(table.Segments(first))
	for _, id := range pool[1:] {
		if n := len(table.Segments(id)); n > bestSegments {
			first, bestSegments = id, n
		}
	}

	covered := make(map[model.Segment]struct{})
	for seg := range table.Segments(first) {
		covered[seg] = struct{}{}
	}

	sel := &model.Selection{
		Agents:     []int64{first},
		StepCounts: []int{len(covered)},
	}
	pool = removeAgent(pool, first)

	for len(sel.Agents) < k && len(pool) > 0 {
		gains := g.marginalGains(table, pool, covered)

		best := -1
		bestGain := 0
		for i, gain := range gains {
			if gain > bestGain {
				best, bestGain = i, gain
			}
		}
		if best < 0 {
			sel.Exhausted = true
			zap.L().Debug("greedy selection exhausted: no remaining agent adds coverage",
				zap.Int("selected", len(sel.Agents)),
				zap.Int("requested", k),
			)
			break
		}

		picked := pool[best]
		for seg := range table.Segments(picked) {
			covered[seg] = struct{}{}
		}
		sel.Agents = append(sel.Agents, picked)
		sel.StepCounts = append(sel.StepCounts, len(covered))
		pool = removeAgent(pool, picked)
	}

	sel.Covered = covered
	return sel, nil
}

// marginalGains computes, for each candidate, how many uncovered segments it
// would add. Candidates are independent, so the scan fans out; covered is
// read-only during the fan-out and the deterministic reduction happens in
// Select over the index-ordered result slice.
func (g *Greedy) marginalGains(table *model.IncidenceTable, pool []int64, covered map[model.Segment]struct{}) []int {
	gains := make([]int, len(pool))

	limit := g.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var eg errgroup.Group
	eg.SetLimit(limit)
	for i, id := range pool {
		eg.Go(func() error {
			gain := 0
			for seg := range table.Segments(id) {
				if _, ok := covered[seg]; !ok {
					gain++
				}
			}
			gains[i] = gain
			return nil
		})
	}
	_ = eg.Wait() // workers never fail

	return gains
}

// removeAgent drops one ID from an ordered pool, preserving order.
func removeAgent(pool []int64, id int64) []int64 {
	out := make([]int64, 0, len(pool)-1)
	for _, a := range pool {
		if a != id {
			out = append(out, a)
		}
	}
	return out
}
