package model

import (
	"fmt"
	"sort"
)

// Segment is the composite (stratum, time bucket) unit of coverage.
type Segment struct {
	StratumID  int   `json:"stratum_id"`
	TemporalID int64 `json:"temporal_id"`
}

// Key returns the canonical "<stratum>_<temporal>" form used for grouping
// and for the serialized hand-off format.
func (s Segment) Key() string {
	return fmt.Sprintf("%d_%d", s.StratumID, s.TemporalID)
}

// IncidenceRow is one serialized row of an IncidenceTable. The row stream is
// the canonical hand-off artifact between the aggregator and the selector and
// evaluator, and may cross a process boundary as CSV.
type IncidenceRow struct {
	AgentID    int64 `csv:"agent_id" json:"agent_id"`
	StratumID  int   `csv:"stratum_id" json:"stratum_id"`
	TemporalID int64 `csv:"temporal_id" json:"temporal_id"`
	Count      int   `csv:"count" json:"count"`
}

// IncidenceTable maps (agent, segment) to the number of samples the agent
// placed in that segment. It is immutable once built; selection and
// evaluation use segment presence, not magnitude, as the coverage predicate.
type IncidenceTable struct {
	counts map[int64]map[Segment]int
}

// NewIncidenceTable returns an empty table.
func NewIncidenceTable() *IncidenceTable {
	return &IncidenceTable{counts: make(map[int64]map[Segment]int)}
}

// Add accumulates n samples for the given agent and segment.
func (t *IncidenceTable) Add(agentID int64, seg Segment, n int) {
	m, ok := t.counts[agentID]
	if !ok {
		m = make(map[Segment]int)
		t.counts[agentID] = m
	}
	m[seg] += n
}

// Agents returns the distinct agent IDs in ascending order.
func (t *IncidenceTable) Agents() []int64 {
	agents := make([]int64, 0, len(t.counts))
	for id := range t.counts {
		agents = append(agents, id)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i] < agents[j] })
	return agents
}

// NumAgents returns the number of distinct agents.
func (t *IncidenceTable) NumAgents() int {
	return len(t.counts)
}

// Segments returns the per-segment sample counts for one agent.
// The returned map is shared; callers must not mutate it.
func (t *IncidenceTable) Segments(agentID int64) map[Segment]int {
	return t.counts[agentID]
}

// TotalSamples returns the total sample count reported by one agent.
func (t *IncidenceTable) TotalSamples(agentID int64) int {
	total := 0
	for _, n := range t.counts[agentID] {
		total += n
	}
	return total
}

// AllSegments returns the set of segments covered by any agent.
func (t *IncidenceTable) AllSegments() map[Segment]struct{} {
	set := make(map[Segment]struct{})
	for _, m := range t.counts {
		for seg := range m {
			set[seg] = struct{}{}
		}
	}
	return set
}

// NumSegments returns the number of distinct segments covered by any agent.
func (t *IncidenceTable) NumSegments() int {
	return len(t.AllSegments())
}

// Rows returns the table as serializable rows, ordered by agent ID, then
// stratum ID, then temporal ID.
func (t *IncidenceTable) Rows() []IncidenceRow {
	var rows []IncidenceRow
	for _, agentID := range t.Agents() {
		segs := make([]Segment, 0, len(t.counts[agentID]))
		for seg := range t.counts[agentID] {
			segs = append(segs, seg)
		}
		sort.Slice(segs, func(i, j int) bool {
			if segs[i].StratumID != segs[j].StratumID {
				return segs[i].StratumID < segs[j].StratumID
			}
			return segs[i].TemporalID < segs[j].TemporalID
		})
		for _, seg := range segs {
			rows = append(rows, IncidenceRow{
				AgentID:    agentID,
				StratumID:  seg.StratumID,
				TemporalID: seg.TemporalID,
				Count:      t.counts[agentID][seg],
			})
		}
	}
	return rows
}

// FromRows rebuilds a table from serialized rows.
func FromRows(rows []IncidenceRow) *IncidenceTable {
	t := NewIncidenceTable()
	for _, r := range rows {
		t.Add(r.AgentID, Segment{StratumID: r.StratumID, TemporalID: r.TemporalID}, r.Count)
	}
	return t
}

// Selection is the outcome of one selector run: the chosen agents in pick
// order, the union of segments they cover on the training partition, and the
// cumulative covered-segment count after each pick. Exhausted is set when the
// greedy selector stopped early because no remaining agent added coverage,
// in which case len(Agents) may be less than the requested count.
type Selection struct {
	Agents     []int64              `json:"agents"`
	Covered    map[Segment]struct{} `json:"-"`
	StepCounts []int                `json:"step_counts"`
	Exhausted  bool                 `json:"exhausted"`
}

// CoverageResult reports the evaluated coverage of a selection against the
// held-out partition. Empty is set when the test partition covered zero
// segments, in which case the score is 0 by convention.
type CoverageResult struct {
	SelectedAgents []int64 `json:"selected_agents"`
	CoverageScore  float64 `json:"coverage_score"`
	Empty          bool    `json:"empty,omitempty"`
}
