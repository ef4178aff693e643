// Package stratify partitions a geographic area-of-interest into disjoint
// polygonal strata and classifies points into them.
//
// Containment tests treat geographic coordinates as planar. This is
// acceptable only because strata are expected to be small relative to earth
// curvature (city-scale grids, not continents).
package stratify

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/urbansense/fleetcover/internal/model"
)

// Stratifier produces an ordered stratum sequence. Stratum IDs are assigned
// at construction by walking the sequence once (0-based, contiguous); the
// ordering is a construction-time contract and is never re-derived.
type Stratifier interface {
	Strata() []model.Stratum
}

// Classifier answers point-in-stratum queries over a stratum sequence.
type Classifier struct {
	strata []model.Stratum
}

// NewClassifier builds a classifier over the given strata.
func NewClassifier(strata []model.Stratum) *Classifier {
	return &Classifier{strata: strata}
}

// Classify returns the ID of the stratum containing the point, or false if
// the point lies outside all strata. Strata are required to be
// non-overlapping; if a malformed input has a point inside several strata,
// the first match in stratum order wins. That tie-break is deterministic but
// is not a correctness guarantee over overlapping geometry.
func (c *Classifier) Classify(lng, lat float64) (int, bool) {
	p := geom.Coord{lng, lat}
	for _, s := range c.strata {
		if polygonContains(s.Polygon, p) {
			return s.ID, true
		}
	}
	return 0, false
}

// polygonContains reports planar containment of p in poly: inside the
// exterior ring and outside every hole.
func polygonContains(poly *geom.Polygon, p geom.Coord) bool {
	if poly == nil || poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// assignIDs labels strata with their index in input order.
func assignIDs(polygons []*geom.Polygon) []model.Stratum {
	strata := make([]model.Stratum, len(polygons))
	for i, poly := range polygons {
		strata[i] = model.Stratum{ID: i, Polygon: poly}
	}
	return strata
}
