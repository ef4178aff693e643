package model

import "github.com/twpayne/go-geom"

// Stratum is one spatial partition of the area-of-interest. IDs are assigned
// by insertion order in the source stratification (0-based, contiguous) and
// are stable for the life of a deployment.
type Stratum struct {
	ID      int           `json:"stratum_id"`
	Polygon *geom.Polygon `json:"-"`
}

// TemporalBucket is a fixed-width half-open time interval [Start, End),
// identified by its start timestamp.
type TemporalBucket struct {
	ID    int64 `json:"temporal_id"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the bucket.
func (b TemporalBucket) Contains(ts int64) bool {
	return ts >= b.Start && ts < b.End
}
