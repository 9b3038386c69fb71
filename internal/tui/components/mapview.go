package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/yelptap/internal/tui/styles"
)

// MapView renders result locations as a Braille scatter plot, with an
// optional outline such as the search circle.
type MapView struct {
	width    int
	height   int
	points   []orb.Point
	outline  orb.Ring
	selected int // index into points, -1 if none
	base     orb.Bound
	view     orb.Bound
	zoom     float64 // 1.0 = fit, >1 = zoomed in
	pan      orb.Point
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:    width,
		height:   height,
		selected: -1,
		zoom:     1.0,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetOutline draws r and includes it when fitting the viewport.
func (m *MapView) SetOutline(r orb.Ring) {
	m.outline = r
	m.fit()
}

func (m *MapView) SetPoints(points []orb.Point) {
	m.points = points
	if m.selected >= len(points) {
		m.selected = -1
	}
	m.fit()
}

func (m *MapView) SetSelected(idx int) {
	m.selected = idx
}

func (m *MapView) ZoomIn() {
	m.zoom = math.Min(m.zoom*1.5, 20)
	m.apply()
}

func (m *MapView) ZoomOut() {
	m.zoom = math.Max(m.zoom/1.5, 0.5)
	m.apply()
}

func (m *MapView) ZoomReset() {
	m.zoom = 1.0
	m.pan = orb.Point{}
	m.apply()
}

// Pan moves the viewport by a tenth of its span per step.
func (m *MapView) Pan(dLat, dLng float64) {
	m.pan[1] += dLat * (m.base.Max.Lat() - m.base.Min.Lat()) * 0.1 / m.zoom
	m.pan[0] += dLng * (m.base.Max.Lon() - m.base.Min.Lon()) * 0.1 / m.zoom
	m.apply()
}

// Bound is the current viewport.
func (m MapView) Bound() orb.Bound {
	return m.view
}

func (m *MapView) fit() {
	var b orb.Bound
	switch {
	case len(m.outline) > 0:
		b = m.outline.Bound()
		for _, p := range m.points {
			b = b.Extend(p)
		}
	case len(m.points) > 0:
		b = orb.MultiPoint(m.points).Bound()
	default:
		m.base, m.view = orb.Bound{}, orb.Bound{}
		return
	}

	latPad := (b.Max.Lat() - b.Min.Lat()) * 0.05
	lngPad := (b.Max.Lon() - b.Min.Lon()) * 0.05
	if latPad == 0 {
		latPad = 0.01
	}
	if lngPad == 0 {
		lngPad = 0.01
	}
	m.base = orb.Bound{
		Min: orb.Point{b.Min.Lon() - lngPad, b.Min.Lat() - latPad},
		Max: orb.Point{b.Max.Lon() + lngPad, b.Max.Lat() + latPad},
	}
	m.apply()
}

func (m *MapView) apply() {
	c := m.base.Center()
	c[0] += m.pan[0]
	c[1] += m.pan[1]
	halfLng := (m.base.Max.Lon() - m.base.Min.Lon()) / 2 / m.zoom
	halfLat := (m.base.Max.Lat() - m.base.Min.Lat()) / 2 / m.zoom
	m.view = orb.Bound{
		Min: orb.Point{c[0] - halfLng, c[1] - halfLat},
		Max: orb.Point{c[0] + halfLng, c[1] + halfLat},
	}
}

// Each braille char is a 2x4 dot grid; bit i raises dot i:
//
//	0 3
//	1 4
//	2 5
//	6 7
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols, rows := m.width, m.height
	dotW, dotH := cols*2, rows*4

	latRange := m.view.Max.Lat() - m.view.Min.Lat()
	lngRange := m.view.Max.Lon() - m.view.Min.Lon()
	if latRange == 0 || lngRange == 0 {
		return strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", cols)+"\n", rows), "\n")
	}

	// Braille dots are roughly square on screen, so only longitude needs
	// shrinking by cos(lat).
	cosLat := math.Cos(m.view.Center().Lat() * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effW, effH := dotW, dotH
	offX, offY := 0, 0
	if geoAspect < dotAspect {
		effW = max(int(float64(dotH)*geoAspect), 4)
		offX = (dotW - effW) / 2
	} else {
		effH = max(int(float64(dotW)/geoAspect), 4)
		offY = (dotH - effH) / 2
	}

	toDot := func(p orb.Point) (int, int) {
		x := offX + int((p.Lon()-m.view.Min.Lon())/lngRange*float64(effW-1))
		y := offY + int((m.view.Max.Lat()-p.Lat())/latRange*float64(effH-1))
		return x, y
	}

	outlineGrid := newGrid(dotW, dotH)
	pointGrid := newGrid(dotW, dotH)
	selGrid := newGrid(dotW, dotH)

	for i := 0; i+1 < len(m.outline); i++ {
		x0, y0 := toDot(m.outline[i])
		x1, y1 := toDot(m.outline[i+1])
		drawLine(outlineGrid, x0, y0, x1, y1, dotW, dotH)
	}
	for i, p := range m.points {
		x, y := toDot(p)
		if x < 0 || x >= dotW || y < 0 || y >= dotH {
			continue
		}
		if i == m.selected {
			selGrid[y][x] = true
		} else {
			pointGrid[y][x] = true
		}
	}

	outlineStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	pointStyle := lipgloss.NewStyle().Foreground(styles.Success)
	selStyle := lipgloss.NewStyle().Foreground(styles.Warning).Bold(true)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			sel := cell(selGrid, row, col)
			pt := cell(pointGrid, row, col)
			ol := cell(outlineGrid, row, col)
			switch {
			case sel != 0x2800:
				sb.WriteString(selStyle.Render(string(sel | pt)))
			case pt != 0x2800:
				sb.WriteString(pointStyle.Render(string(pt)))
			case ol != 0x2800:
				sb.WriteString(outlineStyle.Render(string(ol)))
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

func newGrid(w, h int) [][]bool {
	g := make([][]bool, h)
	for i := range g {
		g[i] = make([]bool, w)
	}
	return g
}

// cell packs the 2x4 dots under a character into a braille rune.
func cell(grid [][]bool, row, col int) rune {
	var r rune = 0x2800
	for dot, pos := range dotPositions {
		dy := row*4 + pos[0]
		dx := col*2 + pos[1]
		if dy < len(grid) && dx < len(grid[dy]) && grid[dy][dx] {
			r |= brailleDots[dot]
		}
	}
	return r
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
