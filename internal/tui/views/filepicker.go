package views

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/yelptap/internal/tui/styles"
)

type FilePickerModel struct {
	dir    string
	files  []os.DirEntry
	cursor int
	err    error
}

func NewFilePickerModel() FilePickerModel {
	cwd, _ := os.Getwd()
	m := FilePickerModel{dir: cwd}
	m.loadDir()
	return m
}

func (m *FilePickerModel) loadDir() {
	m.files, m.err = listSessions(m.dir)
	m.cursor = 0
}

// listSessions returns the visible subdirectories of dir followed by its
// .db files, newest session name first.
func listSessions(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs, dbs []os.DirEntry
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, "."):
		case e.IsDir():
			dirs = append(dirs, e)
		case strings.HasSuffix(name, ".db"):
			dbs = append(dbs, e)
		}
	}
	// yelptap_YYYYMMDD_HHMMSS.db sorts chronologically by name.
	sort.Slice(dbs, func(i, j int) bool { return dbs[i].Name() > dbs[j].Name() })
	return append(dirs, dbs...), nil
}

func (m FilePickerModel) Init() tea.Cmd {
	return nil
}

func (m FilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.files) {
				entry := m.files[m.cursor]
				fullPath := filepath.Join(m.dir, entry.Name())
				if entry.IsDir() {
					m.dir = fullPath
					m.loadDir()
					return m, nil
				}
				return m, func() tea.Msg {
					return NavigateToExplorer{DBPath: fullPath}
				}
			}
		case "backspace":
			parent := filepath.Dir(m.dir)
			if parent != m.dir {
				m.dir = parent
				m.loadDir()
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m FilePickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Load Session"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(m.dir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		return styles.Border.Render(b.String())
	}

	if len(m.files) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No .db files or directories found"))
	}

	// Show max 15 items
	start := max(m.cursor-12, 0)
	end := min(start+15, len(m.files))

	for i := start; i < end; i++ {
		entry := m.files[i]
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		icon := "💾 "
		if entry.IsDir() {
			icon = "📁 "
		}

		b.WriteString(fmt.Sprintf("%s%s%s\n", cursor, icon, style.Render(entry.Name())))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • backspace parent dir • esc back"))

	return styles.Border.Render(b.String())
}
