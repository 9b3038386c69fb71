package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rendis/yelptap/internal/model"
)

// FeatureCollection turns aggregation rows into point features.
// Rows without coordinates are skipped.
func FeatureCollection(entries []model.Entry) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range entries {
		if !e.HasCoords() {
			continue
		}
		f := geojson.NewFeature(orb.Point{e.Lng, e.Lat})
		f.Properties["name"] = e.Name
		f.Properties["url"] = e.URL
		f.Properties["count"] = e.Count
		if e.Rating > 0 {
			f.Properties["rating"] = e.Rating
		}
		if e.Categories != "" {
			f.Properties["categories"] = e.Categories
		}
		fc.Append(f)
	}
	return fc
}

// Points extracts plottable coordinates.
func Points(entries []model.Entry) []orb.Point {
	var pts []orb.Point
	for _, e := range entries {
		if e.HasCoords() {
			pts = append(pts, orb.Point{e.Lng, e.Lat})
		}
	}
	return pts
}
