package stratify

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urbansense/fleetcover/internal/model"
)

func TestNewGrid_Validation(t *testing.T) {
	tests := []struct {
		name   string
		cellKM float64
		bbox   [4]float64 // minLng, minLat, maxLng, maxLat
	}{
		{"zero cell", 0, [4]float64{-74, 40, -73, 41}},
		{"negative cell", -1, [4]float64{-74, 40, -73, 41}},
		{"inverted latitude", 1, [4]float64{-74, 41, -73, 40}},
		{"inverted longitude", 1, [4]float64{-73, 40, -74, 41}},
		{"latitude out of range", 1, [4]float64{-74, -91, -73, 41}},
		{"longitude out of range", 1, [4]float64{-74, 40, 181, 41}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.cellKM, tt.bbox[0], tt.bbox[1], tt.bbox[2], tt.bbox[3])
			assert.True(t, eris.Is(err, model.ErrValidation))
		})
	}
}

func TestNewGrid_CellCountAndIDs(t *testing.T) {
	// A 2x2 degree box with 111km cells (1 degree) tiles into 4 cells.
	g, err := NewGrid(111, 0, 0, 2, 2)
	require.NoError(t, err)

	strata := g.Strata()
	require.Len(t, strata, 4)
	for i, s := range strata {
		assert.Equal(t, i, s.ID)
		require.NotNil(t, s.Polygon)
	}
}

func TestNewGrid_EdgeCellsClipped(t *testing.T) {
	// 1.5 degrees with 1-degree cells: 2 columns, the second clipped.
	g, err := NewGrid(111, 0, 0, 1.5, 1)
	require.NoError(t, err)

	strata := g.Strata()
	require.Len(t, strata, 2)

	bounds := strata[1].Polygon.Bounds()
	assert.InDelta(t, 1.5, bounds.Max(0), 1e-9)
	assert.InDelta(t, 1.0, bounds.Min(0), 1e-9)
}

func TestClassifier_GridClassify(t *testing.T) {
	g, err := NewGrid(111, 0, 0, 2, 2)
	require.NoError(t, err)
	c := NewClassifier(g.Strata())

	// Row-major from the southwest corner: (0.5, 0.5) is cell 0,
	// (1.5, 0.5) is cell 1, (0.5, 1.5) is cell 2.
	id, ok := c.Classify(0.5, 0.5)
	require.True(t, ok)
	assert.Equal(t, 0, id)

	id, ok = c.Classify(1.5, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1, id)

	id, ok = c.Classify(0.5, 1.5)
	require.True(t, ok)
	assert.Equal(t, 2, id)

	_, ok = c.Classify(5, 5)
	assert.False(t, ok)

	_, ok = c.Classify(-0.1, 0.5)
	assert.False(t, ok)
}

func TestClassifier_OverlapFirstMatchWins(t *testing.T) {
	// Two identical polygons: a contained point reports the lower ID.
	square := cellPolygon(0, 0, 1, 1)
	custom, err := NewCustom([]geom.T{square, cellPolygon(0, 0, 1, 1)})
	require.NoError(t, err)

	c := NewClassifier(custom.Strata())
	id, ok := c.Classify(0.5, 0.5)
	require.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestClassifier_PolygonWithHole(t *testing.T) {
	outer := []float64{0, 0, 4, 0, 4, 4, 0, 4, 0, 0}
	hole := []float64{1, 1, 3, 1, 3, 3, 1, 3, 1, 1}
	flat := append(append([]float64{}, outer...), hole...)
	poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(outer), len(flat)})

	c := NewClassifier([]model.Stratum{{ID: 0, Polygon: poly}})

	_, ok := c.Classify(2, 2) // inside the hole
	assert.False(t, ok)

	id, ok := c.Classify(0.5, 0.5) // inside the ring, outside the hole
	require.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestNewCustom_RejectsNonPolygon(t *testing.T) {
	point := geom.NewPointFlat(geom.XY, []float64{1, 1})
	_, err := NewCustom([]geom.T{point})
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestEncodeDecodeStrata_RoundTrip(t *testing.T) {
	g, err := NewGrid(111, 0, 0, 2, 1)
	require.NoError(t, err)

	data, err := EncodeStrata(g.Strata())
	require.NoError(t, err)
	assert.Contains(t, string(data), "stratum_id")

	custom, err := DecodeStrata(data)
	require.NoError(t, err)

	decoded := custom.Strata()
	require.Len(t, decoded, len(g.Strata()))
	for i, s := range decoded {
		assert.Equal(t, i, s.ID)
		assert.Equal(t, g.Strata()[i].Polygon.FlatCoords(), s.Polygon.FlatCoords())
	}
}

func TestDecodeStrata_InvalidJSON(t *testing.T) {
	_, err := DecodeStrata([]byte(`{not json`))
	assert.True(t, eris.Is(err, model.ErrValidation))
}
