package views

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/yelptap/internal/engine/geo"
	"github.com/rendis/yelptap/internal/engine/storage"
	"github.com/rendis/yelptap/internal/engine/translate"
	"github.com/rendis/yelptap/internal/engine/yelp"
	"github.com/rendis/yelptap/internal/model"
	"github.com/rendis/yelptap/internal/report"
	"github.com/rendis/yelptap/internal/tui/components"
	"github.com/rendis/yelptap/internal/tui/styles"
)

type focusArea int

const (
	focusTable focusArea = iota
	focusFilter
	focusCard
	focusJSON
	focusMap
)

// ExplorerModel shows a stored run: ranked table, detail card and either
// the raw JSON or a map of the results.
type ExplorerModel struct {
	dbPath    string
	run       *model.Run
	entries   []model.Entry
	filtered  []model.Entry
	table     table.Model
	filter    textinput.Model
	mapView   components.MapView
	focus     focusArea
	showMap   bool
	selected  int
	width     int
	height    int
	err       error
	exportMsg string

	cardScrollY int
	cardLines   []string
	jsonScrollY int
	jsonScrollX int
	jsonLines   []string
	jsonRaw     string
}

type dbLoadedMsg struct {
	Run     *model.Run
	Entries []model.Entry
	Err     error
}

func NewExplorerModel(dbPath string) ExplorerModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	return ExplorerModel{
		dbPath:   dbPath,
		filter:   filter,
		mapView:  components.NewMapView(30, 8),
		selected: -1,
	}
}

func (m ExplorerModel) Init() tea.Cmd {
	path := m.dbPath
	return func() tea.Msg {
		run, entries, err := loadRun(path)
		return dbLoadedMsg{Run: run, Entries: entries, Err: err}
	}
}

func loadRun(dbPath string) (*model.Run, []model.Entry, error) {
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()
	return store.LoadLatest(context.Background())
}

func (m ExplorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "1":
				m.focusPanel(focusCard)
				return m, nil
			case "2":
				m.showMap = false
				m.focusPanel(focusJSON)
				return m, nil
			case "3":
				m.showMap = true
				m.focusPanel(focusMap)
				return m, nil
			case "e":
				m.export(report.FormatCSV)
				return m, nil
			case "g":
				m.export(report.FormatGeoJSON)
				return m, nil
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusCard:
			switch key {
			case "esc":
				m.focusPanel(focusTable)
			case "up", "k":
				m.cardScrollY = max(m.cardScrollY-1, 0)
			case "down", "j":
				m.cardScrollY = min(m.cardScrollY+1, max(len(m.cardLines)-m.panelHeight(), 0))
			}
			return m, nil

		case focusJSON:
			switch key {
			case "esc":
				m.focusPanel(focusTable)
			case "up", "k":
				m.jsonScrollY = max(m.jsonScrollY-1, 0)
			case "down", "j":
				m.jsonScrollY = min(m.jsonScrollY+1, max(len(m.jsonLines)-m.panelHeight(), 0))
			case "left", "h":
				m.jsonScrollX = max(m.jsonScrollX-4, 0)
			case "right", "l":
				m.jsonScrollX += 4
			case "c":
				m.copyToClipboard()
			}
			return m, nil

		case focusMap:
			switch key {
			case "esc":
				m.focusPanel(focusTable)
			case "+", "=":
				m.mapView.ZoomIn()
			case "-":
				m.mapView.ZoomOut()
			case "0":
				m.mapView.ZoomReset()
			case "up", "k":
				m.mapView.Pan(1, 0)
			case "down", "j":
				m.mapView.Pan(-1, 0)
			case "left", "h":
				m.mapView.Pan(0, -1)
			case "right", "l":
				m.mapView.Pan(0, 1)
			}
			return m, nil
		}

	case dbLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.run = msg.Run
		m.entries = msg.Entries
		m.filtered = msg.Entries
		m.showMap = len(geo.Points(m.entries)) > 0
		if ring, ok := searchArea(m.run.APIQuery); ok {
			m.mapView.SetOutline(ring)
			m.showMap = true
		}
		m.refresh()
		m.updateLayout()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		if cursor := m.table.Cursor(); cursor != m.selected && cursor < len(m.filtered) {
			m.selected = cursor
			m.cardScrollY, m.jsonScrollY, m.jsonScrollX = 0, 0, 0
			m.cacheDetailContent()
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}
	return m, cmd
}

// searchArea outlines the latitude/longitude/radius circle of an API
// query, when it has one.
func searchArea(apiQuery string) (orb.Ring, bool) {
	p, err := translate.ParseParams(yelp.QueryPart(apiQuery))
	if err != nil {
		return nil, false
	}
	lat, okLat := floatParam(p, "latitude")
	lng, okLng := floatParam(p, "longitude")
	radius, okR := floatParam(p, "radius")
	if !okLat || !okLng || !okR || radius <= 0 {
		return nil, false
	}
	return geo.Circle{Lat: lat, Lng: lng, Radius: int(radius)}.Ring(48), true
}

func floatParam(p *translate.Params, name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func (m *ExplorerModel) focusPanel(f focusArea) {
	m.focus = f
	if f == focusTable {
		m.table.SetStyles(m.focusedTableStyles())
	} else {
		m.table.SetStyles(m.unfocusedTableStyles())
	}
}

// refresh rebuilds the table, map points and selection after the visible
// rows change.
func (m *ExplorerModel) refresh() {
	m.buildTable(m.filtered)
	m.mapView.SetPoints(geo.Points(m.filtered))
	if len(m.filtered) > 0 {
		m.selected = 0
	} else {
		m.selected = -1
	}
	m.cacheDetailContent()
}

func (m *ExplorerModel) cacheDetailContent() {
	m.mapView.SetSelected(m.pointIndex())
	if m.selected < 0 || m.selected >= len(m.filtered) {
		m.cardLines = nil
		m.jsonLines = nil
		m.jsonRaw = ""
		return
	}

	e := m.filtered[m.selected]
	m.cardLines = m.buildCardLines(e)

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		m.jsonLines = []string{"JSON error"}
		m.jsonRaw = ""
		return
	}
	m.jsonRaw = string(data)
	m.jsonLines = strings.Split(m.jsonRaw, "\n")
}

// pointIndex maps the selected row to its position in geo.Points.
func (m ExplorerModel) pointIndex() int {
	if m.selected < 0 || m.selected >= len(m.filtered) || !m.filtered[m.selected].HasCoords() {
		return -1
	}
	idx := 0
	for _, e := range m.filtered[:m.selected] {
		if e.HasCoords() {
			idx++
		}
	}
	return idx
}

func (m ExplorerModel) buildCardLines(e model.Entry) []string {
	var lines []string

	lines = append(lines, e.Name)
	lines = append(lines, fmt.Sprintf("%s: %d", report.CountHeader(m.mode()), e.Count))
	if e.Rating > 0 {
		r := fmt.Sprintf("%.1f", e.Rating)
		if e.ReviewCount > 0 {
			r += fmt.Sprintf(" (%d reviews)", e.ReviewCount)
		}
		lines = append(lines, r)
	}
	if e.Categories != "" {
		lines = append(lines, e.Categories)
	}
	lines = append(lines, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-10s %s", label, value))
		}
	}
	addRow("Address:", e.Address)
	addRow("Phone:", e.Phone)
	addRow("Price:", e.Price)
	addRow("Link:", e.URL)
	if e.HasCoords() {
		addRow("Coords:", fmt.Sprintf("%.6f, %.6f", e.Lat, e.Lng))
	}
	if e.Distance > 0 {
		addRow("Distance:", fmt.Sprintf("%.0f m", e.Distance))
	}
	addRow("Services:", e.Transactions)
	addRow("ID:", e.ID)
	return lines
}

func (m ExplorerModel) mode() model.Mode {
	if m.run == nil {
		return model.ModeVariants
	}
	return m.run.Mode
}

func (m *ExplorerModel) buildTable(entries []model.Entry) {
	rankW := 4
	countW := 8
	nameW := 28
	catW := 24
	ratingW := 6
	if m.width > 100 {
		extra := m.width - 100
		nameW += extra / 2
		catW += extra / 2
	}

	columns := []table.Column{
		{Title: "#", Width: rankW},
		{Title: "Count", Width: countW},
		{Title: "Name", Width: nameW},
		{Title: "Categories", Width: catW},
		{Title: "Rating", Width: ratingW},
	}

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rating := ""
		if e.Rating > 0 {
			rating = fmt.Sprintf("%.1f", e.Rating)
		}
		rows[i] = table.Row{
			strconv.Itoa(i + 1),
			strconv.Itoa(e.Count),
			truncate(e.Name, nameW),
			truncate(e.Categories, catW),
			rating,
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height/2-4, 5)),
	)
	if m.focus == focusTable || m.focus == focusFilter {
		t.SetStyles(m.focusedTableStyles())
	} else {
		t.SetStyles(m.unfocusedTableStyles())
	}
	m.table = t
}

func (m ExplorerModel) focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func (m ExplorerModel) unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m ExplorerModel) panelHeight() int {
	return max(m.height/2-6, 6)
}

func (m *ExplorerModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	m.buildTable(m.filtered)
	detailW := max(m.width-2, 40)
	rightW := detailW - detailW*2/5 - 1
	m.mapView.SetSize(max(rightW-6, 10), m.panelHeight())
}

// normalize removes accents/diacritics and lowercases text for fuzzy matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

// filterEntries keeps entries whose name, categories or address contain
// every word of query, ignoring case and accents.
func filterEntries(entries []model.Entry, query string) []model.Entry {
	words := strings.Fields(normalize(query))
	if len(words) == 0 {
		return entries
	}
	var out []model.Entry
	for _, e := range entries {
		haystack := normalize(strings.Join([]string{e.Name, e.Categories, e.Address}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}

func (m *ExplorerModel) applyFilter() {
	m.filtered = filterEntries(m.entries, m.filter.Value())
	m.refresh()
}

func (m ExplorerModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error loading DB: %v", m.err)) + "\n\n" +
			styles.StatusBar.Render("esc back")
	}

	var b strings.Builder

	title := fmt.Sprintf("Explorer: %d businesses", len(m.entries))
	if m.run != nil && m.run.Term != "" {
		title += fmt.Sprintf(" for %q", m.run.Term)
	}
	b.WriteString(styles.Title.Render(title))
	if len(m.filtered) != len(m.entries) {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d)", len(m.filtered))))
	}
	b.WriteString("\n")
	if m.run != nil && len(m.run.Keywords) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("%s • keywords: %s", report.CountHeader(m.run.Mode), strings.Join(m.run.Keywords, ", "))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	detailW := max(m.width-2, 40)
	panelH := m.panelHeight()
	cardOuterW := detailW * 2 / 5
	rightOuterW := detailW - cardOuterW - 1

	cardBox := m.panel("[1] Details", m.focus == focusCard, cardOuterW, panelH,
		m.viewCardPanel(max(cardOuterW-4, 20), panelH))

	var rightBox string
	if m.showMap {
		rightBox = m.panel("[3] Map", m.focus == focusMap, rightOuterW, panelH, m.mapView.View())
	} else {
		rightBox = m.panel("[2] JSON", m.focus == focusJSON, rightOuterW, panelH,
			m.viewJSONPanel(max(rightOuterW-4, 20), panelH))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cardBox, " ", rightBox))
	b.WriteString("\n\n")

	if m.exportMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.exportMsg))
		b.WriteString("\n")
	}

	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • 1 details • 2 json • 3 map • / filter • e csv • g geojson • esc back"
	case focusFilter:
		statusText = "type to filter • esc back"
	case focusCard:
		statusText = "↑↓ scroll • esc back to table"
	case focusJSON:
		statusText = "↑↓ scroll • ←→ pan • c copy json • esc back to table"
	case focusMap:
		statusText = "arrows pan • +/- zoom • 0 reset • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m ExplorerModel) panel(label string, focused bool, outerW, h int, content string) string {
	color := styles.Muted
	if focused {
		color = styles.Primary
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(outerW - 2).
		Height(h).
		Render(content)
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(label) + "\n" + box
}

func (m ExplorerModel) viewCardPanel(w, h int) string {
	if m.selected < 0 || m.selected >= len(m.filtered) || len(m.cardLines) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Select a business\nto view details")
	}

	lines := m.cardLines
	scrollY := max(min(m.cardScrollY, len(lines)-h), 0)
	end := min(scrollY+h, len(lines))
	visible := lines[scrollY:end]

	var sb strings.Builder
	label := lipgloss.NewStyle().Foreground(styles.Muted)
	valStyle := lipgloss.NewStyle().Foreground(styles.Text)

	for i, line := range visible {
		switch {
		case scrollY+i == 0:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).Render(truncate(line, w)))
		case scrollY+i == 1:
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true).Render(truncate(line, w)))
		case strings.Contains(line, "reviews)"):
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render(truncate(line, w)))
		case strings.HasPrefix(line, "Link:"):
			val := strings.TrimSpace(strings.TrimPrefix(line, "Link:"))
			sb.WriteString(label.Render(fmt.Sprintf("%-10s ", "Link:")))
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render(truncate(val, w-11)))
		default:
			sb.WriteString(valStyle.Render(truncate(line, w)))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if scrollY > 0 {
		sb.WriteString("\n" + label.Render("  ▲ more above"))
	}
	if end < len(lines) {
		sb.WriteString("\n" + label.Render("  ▼ more below"))
	}
	return sb.String()
}

func (m ExplorerModel) viewJSONPanel(w, h int) string {
	if m.selected < 0 || m.selected >= len(m.filtered) || len(m.jsonLines) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Select a business\nto view JSON")
	}

	lines := m.jsonLines
	jsonStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	strStyle := lipgloss.NewStyle().Foreground(styles.Success)

	scrollY := max(min(m.jsonScrollY, len(lines)-h), 0)
	end := min(scrollY+h, len(lines))
	visible := lines[scrollY:end]

	var sb strings.Builder
	for i, line := range visible {
		display := line
		if m.jsonScrollX > 0 {
			if m.jsonScrollX < len(display) {
				display = display[m.jsonScrollX:]
			} else {
				display = ""
			}
		}
		display = truncate(display, w)

		trimmed := strings.TrimSpace(display)
		if colon := strings.Index(display, "\":"); strings.HasPrefix(trimmed, "\"") && colon > 0 {
			sb.WriteString(keyStyle.Render(display[:colon+1]))
			sb.WriteString(strStyle.Render(display[colon+1:]))
		} else {
			sb.WriteString(jsonStyle.Render(display))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if scrollY > 0 || end < len(lines) {
		indicator := fmt.Sprintf("  [%d/%d]", scrollY+1, len(lines))
		if m.jsonScrollX > 0 {
			indicator += fmt.Sprintf(" ←%d", m.jsonScrollX)
		}
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(styles.Muted).Render(indicator))
	}
	return sb.String()
}

func (m *ExplorerModel) copyToClipboard() {
	if m.jsonRaw == "" {
		return
	}
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(m.jsonRaw)
	if err := cmd.Run(); err != nil {
		m.exportMsg = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.exportMsg = "JSON copied to clipboard"
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// export writes the visible rows next to the database.
func (m *ExplorerModel) export(f report.Format) {
	data := m.filtered
	if len(data) == 0 {
		data = m.entries
	}
	base := strings.TrimSuffix(m.dbPath, filepath.Ext(m.dbPath))
	path := base + f.Ext()
	if err := report.WriteFile(path, f, data); err != nil {
		m.exportMsg = fmt.Sprintf("Export error: %v", err)
		return
	}
	m.exportMsg = fmt.Sprintf("Exported %d rows to %s", len(data), path)
}
