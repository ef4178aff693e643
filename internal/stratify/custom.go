package stratify

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/urbansense/fleetcover/internal/model"
)

// Custom stratifies the area-of-interest into caller-supplied polygons.
// Construction fails if any geometry is not a polygon; only the Polygon type
// is supported. The caller is responsible for supplying non-overlapping
// strata (see Classifier.Classify for the behavior over overlaps).
type Custom struct {
	strata []model.Stratum
}

// NewCustom validates the geometries and assigns stratum IDs in input order.
func NewCustom(geometries []geom.T) (*Custom, error) {
	polygons := make([]*geom.Polygon, 0, len(geometries))
	for i, g := range geometries {
		poly, ok := g.(*geom.Polygon)
		if !ok {
			return nil, eris.Wrapf(model.ErrValidation,
				"stratify: geometry %d is %T, only Polygon types are supported", i, g)
		}
		polygons = append(polygons, poly)
	}
	return &Custom{strata: assignIDs(polygons)}, nil
}

// Strata returns the strata in ID order.
func (c *Custom) Strata() []model.Stratum {
	return c.strata
}
