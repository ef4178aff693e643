package ingest

import (
	"math/rand"

	"github.com/urbansense/fleetcover/internal/model"
)

// Anonymize replaces agent IDs with shuffled integers in [0, n) where n is
// the number of distinct agents. It returns the rewritten records and the
// original-to-anonymized mapping; the caller is responsible for storing the
// mapping somewhere safe. The same seed always produces the same mapping for
// the same input order.
func Anonymize(records []model.Record, seed int64) ([]model.Record, map[int64]int64) {
	// Distinct agent IDs in first-appearance order.
	var order []int64
	seen := make(map[int64]bool)
	for _, r := range records {
		if !seen[r.AgentID] {
			seen[r.AgentID] = true
			order = append(order, r.AgentID)
		}
	}

	anon := make([]int64, len(order))
	for i := range anon {
		anon[i] = int64(i)
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(anon), func(i, j int) { anon[i], anon[j] = anon[j], anon[i] })

	mapping := make(map[int64]int64, len(order))
	for i, id := range order {
		mapping[id] = anon[i]
	}

	out := make([]model.Record, len(records))
	for i, r := range records {
		r.AgentID = mapping[r.AgentID]
		out[i] = r
	}
	return out, mapping
}
