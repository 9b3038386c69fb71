package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	// EarthRadiusMeters is the mean radius used for viewport circles.
	EarthRadiusMeters = 6371000.0
	// MaxRadiusMeters is the largest radius the search API accepts.
	MaxRadiusMeters = 40000
)

// BoundingBox is a map viewport given by its northeast and southwest corners.
type BoundingBox struct {
	NE orb.Point // orb.Point is [lng, lat]
	SW orb.Point
}

// Circle is the search area derived from a viewport.
type Circle struct {
	Lat    float64
	Lng    float64
	Radius int // meters
}

// ParseViewport reads "lonNE,latNE,lonSW,latSW" as used by the web map.
func ParseViewport(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("viewport %q: want 4 coordinates, got %d", s, len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("viewport %q: coordinate %d: %w", s, i, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return BoundingBox{}, fmt.Errorf("viewport %q: coordinate %d is not finite", s, i)
		}
		v[i] = f
	}

	return BoundingBox{
		NE: orb.Point{v[0], v[1]},
		SW: orb.Point{v[2], v[3]},
	}, nil
}

// Center is the arithmetic mean of the two corners.
func (b BoundingBox) Center() orb.Point {
	return orb.Bound{Min: b.SW, Max: b.NE}.Center()
}

// Circle returns the center of the box and the distance from it to the
// northeast corner, rounded to whole meters and capped at MaxRadiusMeters.
func (b BoundingBox) Circle() Circle {
	c := b.Center()
	r := int(math.Round(HaversineMeters(c, b.NE)))
	if r > MaxRadiusMeters {
		r = MaxRadiusMeters
	}
	if r < 0 {
		r = 0
	}
	return Circle{Lat: c.Lat(), Lng: c.Lon(), Radius: r}
}

// HaversineMeters is the great-circle distance between two points.
func HaversineMeters(p1, p2 orb.Point) float64 {
	lat1 := p1.Lat() * math.Pi / 180.0
	lat2 := p2.Lat() * math.Pi / 180.0
	dLat := (p2.Lat() - p1.Lat()) * math.Pi / 180.0
	dLng := (p2.Lon() - p1.Lon()) * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Ring approximates the circle with n vertices for plotting.
func (c Circle) Ring(n int) orb.Ring {
	if n < 3 {
		n = 3
	}
	lat := c.Lat * math.Pi / 180
	lng := c.Lng * math.Pi / 180
	d := float64(c.Radius) / EarthRadiusMeters

	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		brg := 2 * math.Pi * float64(i) / float64(n)
		lat2 := math.Asin(math.Sin(lat)*math.Cos(d) + math.Cos(lat)*math.Sin(d)*math.Cos(brg))
		lng2 := lng + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat), math.Cos(d)-math.Sin(lat)*math.Sin(lat2))
		ring = append(ring, orb.Point{lng2 * 180 / math.Pi, lat2 * 180 / math.Pi})
	}
	return append(ring, ring[0])
}
