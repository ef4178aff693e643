package stratify

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/urbansense/fleetcover/internal/model"
)

// EncodeStrata renders strata as a GeoJSON FeatureCollection with the
// stratum ID written into each feature's properties. This is the interchange
// format for a stratification once it has been generated.
func EncodeStrata(strata []model.Stratum) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(strata))}
	for _, s := range strata {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: s.Polygon,
			Properties: map[string]interface{}{
				"stratum_id": s.ID,
			},
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "stratify: encode strata GeoJSON")
	}
	return data, nil
}

// DecodeStrata parses a GeoJSON FeatureCollection into a Custom
// stratification. Feature order determines stratum IDs; any stratum_id
// already present in properties is ignored in favor of the ordering contract.
func DecodeStrata(data []byte) (*Custom, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "stratify: parse GeoJSON: %v", err)
	}

	geometries := make([]geom.T, 0, len(fc.Features))
	for _, f := range fc.Features {
		geometries = append(geometries, f.Geometry)
	}
	return NewCustom(geometries)
}
