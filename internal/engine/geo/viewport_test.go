package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/rendis/yelptap/internal/model"
)

func TestParseViewport(t *testing.T) {
	b, err := ParseViewport("-122.38,37.80,-122.46,37.74")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.NE != (orb.Point{-122.38, 37.80}) || b.SW != (orb.Point{-122.46, 37.74}) {
		t.Fatalf("corners = %v %v", b.NE, b.SW)
	}

	bad := []string{
		"",
		"1,2,3",
		"1,2,3,4,5",
		"a,2,3,4",
		"1,2,NaN,4",
		"1,Inf,3,4",
	}
	for _, s := range bad {
		if _, err := ParseViewport(s); err == nil {
			t.Errorf("ParseViewport(%q): expected error", s)
		}
	}
}

func TestCircleCenterIsMean(t *testing.T) {
	boxes := []BoundingBox{
		{NE: orb.Point{-122.38, 37.80}, SW: orb.Point{-122.46, 37.74}},
		{NE: orb.Point{2.40, 48.90}, SW: orb.Point{2.25, 48.80}},
		{NE: orb.Point{151.3, -33.8}, SW: orb.Point{151.1, -33.95}},
		{NE: orb.Point{10, 10}, SW: orb.Point{10, 10}},
	}
	for _, b := range boxes {
		c := b.Circle()
		wantLat := (b.NE.Lat() + b.SW.Lat()) / 2
		wantLng := (b.NE.Lon() + b.SW.Lon()) / 2
		if math.Abs(c.Lat-wantLat) > 1e-12 || math.Abs(c.Lng-wantLng) > 1e-12 {
			t.Errorf("center = %v,%v want %v,%v", c.Lat, c.Lng, wantLat, wantLng)
		}
		if c.Radius < 0 || c.Radius > MaxRadiusMeters {
			t.Errorf("radius %d out of range", c.Radius)
		}
	}
}

func TestCircleRadius(t *testing.T) {
	tests := []struct {
		name     string
		box      BoundingBox
		min, max int
	}{
		{"san francisco", BoundingBox{NE: orb.Point{-122.38, 37.80}, SW: orb.Point{-122.46, 37.74}}, 4800, 4900},
		{"degenerate", BoundingBox{NE: orb.Point{5, 5}, SW: orb.Point{5, 5}}, 0, 0},
		{"capped", BoundingBox{NE: orb.Point{-70, 45}, SW: orb.Point{-80, 35}}, MaxRadiusMeters, MaxRadiusMeters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.box.Circle().Radius
			if r < tt.min || r > tt.max {
				t.Fatalf("radius = %d, want [%d, %d]", r, tt.min, tt.max)
			}
		})
	}
}

func TestHaversineOneDegreeOfLatitude(t *testing.T) {
	d := HaversineMeters(orb.Point{0, 0}, orb.Point{0, 1})
	want := EarthRadiusMeters * math.Pi / 180
	if math.Abs(d-want) > 0.001 {
		t.Fatalf("distance = %f, want %f", d, want)
	}
}

func TestFeatureCollectionSkipsMissingCoords(t *testing.T) {
	entries := []model.Entry{
		{Business: model.Business{Name: "A", URL: "u/a", Lat: 1, Lng: 2}, Count: 3},
		{Business: model.Business{Name: "B", URL: "u/b"}, Count: 1},
	}
	fc := FeatureCollection(entries)
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Properties["name"] != "A" || f.Properties["count"] != 3 {
		t.Fatalf("properties = %v", f.Properties)
	}
	if p := f.Geometry.(orb.Point); p != (orb.Point{2, 1}) {
		t.Fatalf("point = %v", p)
	}
	if n := len(Points(entries)); n != 1 {
		t.Fatalf("points = %d", n)
	}
}

func TestCircleRingVerticesAreOnTheCircle(t *testing.T) {
	c := Circle{Lat: 37.77, Lng: -122.42, Radius: 5000}
	ring := c.Ring(16)
	if len(ring) != 17 {
		t.Fatalf("vertices = %d, want 17", len(ring))
	}
	if !ring.Closed() {
		t.Fatal("ring is not closed")
	}
	center := orb.Point{c.Lng, c.Lat}
	for i, p := range ring {
		if d := HaversineMeters(center, p); math.Abs(d-5000) > 1 {
			t.Errorf("vertex %d at %.2fm, want 5000m", i, d)
		}
	}
}
