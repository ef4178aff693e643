// Package segment aggregates tagged records into the per-agent incidence
// table consumed by selection and evaluation.
package segment

import (
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// Aggregate groups tagged records by (agent, stratum, temporal bucket) and
// counts members. Records missing either tag are dropped; that is a
// documented loss, not an error, but an entirely empty result is logged so
// callers can detect silent misconfiguration.
func Aggregate(records []model.TaggedRecord) *model.IncidenceTable {
	table := model.NewIncidenceTable()

	dropped := 0
	for _, r := range records {
		if !r.Tagged() {
			dropped++
			continue
		}
		table.Add(r.AgentID, r.Segment(), 1)
	}

	log := zap.L().With(zap.String("component", "segment.aggregate"))
	if len(records) > 0 && table.NumAgents() == 0 {
		log.Warn("aggregation produced no segments; all records were untagged",
			zap.Int("records", len(records)),
		)
	} else if dropped > 0 {
		log.Debug("dropped untagged records",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(records)-dropped),
		)
	}

	return table
}
