package components

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestMapViewFitsPointsAndOutline(t *testing.T) {
	m := NewMapView(20, 5)
	m.SetPoints([]orb.Point{{-122.40, 37.78}, {-122.41, 37.79}})
	m.SetOutline(orb.Ring{{-122.50, 37.70}, {-122.30, 37.70}, {-122.30, 37.90}, {-122.50, 37.90}, {-122.50, 37.70}})

	b := m.Bound()
	for _, p := range []orb.Point{{-122.50, 37.70}, {-122.30, 37.90}, {-122.40, 37.78}} {
		if !b.Contains(p) {
			t.Errorf("viewport %v does not contain %v", b, p)
		}
	}
}

func TestMapViewZoomShrinksViewport(t *testing.T) {
	m := NewMapView(20, 5)
	m.SetPoints([]orb.Point{{0, 0}, {1, 1}})
	before := m.Bound()
	m.ZoomIn()
	after := m.Bound()
	if after.Max.Lon()-after.Min.Lon() >= before.Max.Lon()-before.Min.Lon() {
		t.Errorf("zoom in did not shrink: %v -> %v", before, after)
	}
	m.ZoomReset()
	if m.Bound() != before {
		t.Errorf("reset = %v, want %v", m.Bound(), before)
	}
}

func TestMapViewRendersGrid(t *testing.T) {
	m := NewMapView(10, 3)
	m.SetPoints([]orb.Point{{0, 0}, {1, 1}})
	lines := strings.Split(m.View(), "\n")
	if len(lines) != 3 {
		t.Fatalf("rows = %d, want 3", len(lines))
	}
	if !strings.ContainsFunc(m.View(), func(r rune) bool { return r > 0x2800 && r <= 0x28FF }) {
		t.Error("no braille dots rendered")
	}
}

func TestMapViewEmpty(t *testing.T) {
	m := NewMapView(4, 2)
	if got := m.View(); got != "    \n    " {
		t.Errorf("view = %q, want blank grid", got)
	}
}
