package stratify

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// LoadShapefile reads polygon records from an ESRI shapefile and builds a
// Custom stratification from them. Each polygon part becomes its own
// stratum; record order (then part order) determines stratum IDs. Non-polygon
// shapes fail construction.
func LoadShapefile(path string) (*Custom, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stratify: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "stratify.shapefile"), zap.String("path", path))

	var geometries []geom.T
	records := 0
	for reader.Next() {
		_, shape := reader.Shape()
		if shape == nil {
			continue
		}
		records++

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, eris.Wrapf(model.ErrValidation,
				"stratify: shapefile record %d is %T, only polygon shapes are supported", records-1, shape)
		}

		for _, ring := range shapePolygonRings(poly) {
			geometries = append(geometries, ring)
		}
	}

	log.Debug("shapefile strata loaded",
		zap.Int("records", records),
		zap.Int("strata", len(geometries)),
	)
	return NewCustom(geometries)
}

// shapePolygonRings converts each part of a shapefile polygon to a go-geom
// polygon. Hole parts are not distinguished from exterior rings; strata
// sourced from shapefiles are expected to be simple polygons.
func shapePolygonRings(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	polygons := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least 4 points
			zap.L().Debug("stratify: skipping degenerate polygon part", zap.Int32("part", i))
			continue
		}
		polygons = append(polygons, geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}))
	}
	return polygons
}
