// Package export renders store records as GeoJSON.
package export

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/kass/go-store-map/pkg/models"
)

// FeatureCollection builds a collection with one Point feature per resolved
// record. Unresolved records are left out.
func FeatureCollection(records []*models.LocationRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for _, rec := range records {
		pos, ok := rec.Position()
		if !ok {
			continue
		}

		props := map[string]any{
			"key":   rec.Key,
			"title": rec.Title,
		}
		if rec.Address != "" {
			props["address"] = rec.Address
		}
		if rec.Icon != "" {
			props["icon"] = rec.Icon
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         rec.Key,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{pos.Lng, pos.Lat}),
			Properties: props,
		})
	}

	return fc
}

// MarshalGeoJSON encodes records as a GeoJSON FeatureCollection
func MarshalGeoJSON(records []*models.LocationRecord) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(records))
	if err != nil {
		return nil, eris.Wrap(err, "export: encode geojson")
	}
	return data, nil
}
