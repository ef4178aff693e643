package model

import "github.com/rotisserie/eris"

// Record is a single raw location sample reported by an agent.
// Records are immutable once ingested.
type Record struct {
	AgentID   int64   `json:"agent_id" csv:"agent_id"`
	Latitude  float64 `json:"latitude" csv:"latitude"`
	Longitude float64 `json:"longitude" csv:"longitude"`
	Timestamp int64   `json:"timestamp" csv:"timestamp"` // unix seconds
}

// Validate checks the coordinate invariants.
func (r Record) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return eris.Wrapf(ErrValidation, "record: latitude %f out of range [-90, 90]", r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return eris.Wrapf(ErrValidation, "record: longitude %f out of range [-180, 180]", r.Longitude)
	}
	return nil
}

// TaggedRecord is a Record annotated with the spatial stratum and temporal
// bucket it falls into. Either annotation may be absent: a point outside all
// strata has no stratum, a timestamp outside the bucketized range has no
// bucket. Records missing either tag are excluded from aggregation.
type TaggedRecord struct {
	Record
	StratumID   int   `json:"stratum_id"`
	TemporalID  int64 `json:"temporal_id"`
	HasStratum  bool  `json:"has_stratum"`
	HasTemporal bool  `json:"has_temporal"`
}

// Tagged reports whether both annotations are present.
func (t TaggedRecord) Tagged() bool {
	return t.HasStratum && t.HasTemporal
}

// Segment returns the spatiotemporal segment of a fully tagged record.
func (t TaggedRecord) Segment() Segment {
	return Segment{StratumID: t.StratumID, TemporalID: t.TemporalID}
}
