package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"tourweave/pkg/model"
)

// ExportGeoJSON serializes a computed timeline into a FeatureCollection: one
// LineString feature tracing the visit order, plus one Point feature per
// stop carrying its timeline attributes. coords must be parallel to
// timeline.Entries in visit order (the caller resolves poi_id -> lat/lon
// before calling this).
func ExportGeoJSON(timeline model.Timeline, coords []Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(coords) > 1 {
		line := make(orb.LineString, len(coords))
		for i, c := range coords {
			line[i] = orb.Point{c.Lon, c.Lat}
		}
		routeFeature := geojson.NewFeature(line)
		routeFeature.Properties["kind"] = "route"
		routeFeature.Properties["num_pois"] = timeline.NumPOIs
		fc.Append(routeFeature)
	}

	for i, entry := range timeline.Entries {
		if i >= len(coords) {
			break
		}
		pt := orb.Point{coords[i].Lon, coords[i].Lat}
		f := geojson.NewFeature(pt)
		f.Properties["kind"] = "stop"
		f.Properties["poi_id"] = entry.POIID
		f.Properties["arrival_minute"] = entry.ArrivalMinute
		f.Properties["departure_minute"] = entry.DepartureMinute
		f.Properties["category"] = entry.Category
		f.Properties["district"] = entry.District
		fc.Append(f)
	}

	return fc
}
