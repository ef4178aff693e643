package stratify

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// DegreesPerKM is an approximate conversion factor for kilometers to degrees
// of latitude. At mid-latitudes, 1 degree of latitude is approximately 111 km.
const DegreesPerKM = 1.0 / 111.0

// Grid stratifies a bounding box into square cells of a fixed side length.
// Cells are generated in-process, row-major from the southwest corner, with
// edge cells clipped to the bounding box. IDs follow generation order.
type Grid struct {
	cellKM float64
	minLng float64
	minLat float64
	maxLng float64
	maxLat float64
	strata []model.Stratum
}

// NewGrid validates the bounding box and cell size and generates the grid.
func NewGrid(cellKM, minLng, minLat, maxLng, maxLat float64) (*Grid, error) {
	if cellKM <= 0 {
		return nil, eris.Wrap(model.ErrValidation, "stratify: cell side length must be greater than 0")
	}
	if minLat >= maxLat {
		return nil, eris.Wrap(model.ErrValidation, "stratify: minimum latitude must be smaller than maximum latitude")
	}
	if minLng >= maxLng {
		return nil, eris.Wrap(model.ErrValidation, "stratify: minimum longitude must be smaller than maximum longitude")
	}
	if minLat < -90 || maxLat > 90 {
		return nil, eris.Wrap(model.ErrValidation, "stratify: latitude must be within [-90, 90]")
	}
	if minLng < -180 || maxLng > 180 {
		return nil, eris.Wrap(model.ErrValidation, "stratify: longitude must be within [-180, 180]")
	}

	g := &Grid{
		cellKM: cellKM,
		minLng: minLng,
		minLat: minLat,
		maxLng: maxLng,
		maxLat: maxLat,
	}
	g.generate()

	zap.L().Debug("grid stratification generated",
		zap.Float64("cell_km", cellKM),
		zap.Int("cells", len(g.strata)),
	)
	return g, nil
}

// generate tiles the bounding box with square cells.
func (g *Grid) generate() {
	cellDeg := g.cellKM * DegreesPerKM

	var polygons []*geom.Polygon
	for swLat := g.minLat; swLat < g.maxLat; swLat += cellDeg {
		neLat := swLat + cellDeg
		if neLat > g.maxLat {
			neLat = g.maxLat
		}
		for swLng := g.minLng; swLng < g.maxLng; swLng += cellDeg {
			neLng := swLng + cellDeg
			if neLng > g.maxLng {
				neLng = g.maxLng
			}
			polygons = append(polygons, cellPolygon(swLng, swLat, neLng, neLat))
		}
	}
	g.strata = assignIDs(polygons)
}

// cellPolygon builds a closed rectangular ring in (lng, lat) order.
func cellPolygon(swLng, swLat, neLng, neLat float64) *geom.Polygon {
	flat := []float64{
		swLng, swLat,
		neLng, swLat,
		neLng, neLat,
		swLng, neLat,
		swLng, swLat,
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// Strata returns the grid cells in ID order.
func (g *Grid) Strata() []model.Stratum {
	return g.strata
}
