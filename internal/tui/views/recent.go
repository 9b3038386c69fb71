package views

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/yelptap/internal/tui/styles"
)

type RecentEntry struct {
	Path     string
	Query    string
	OpenedAt time.Time
}

type RecentModel struct {
	entries []RecentEntry
	cursor  int
}

func NewRecentModel(entries []RecentEntry) RecentModel {
	return RecentModel{entries: entries}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				e := m.entries[m.cursor]
				return m, func() tea.Msg {
					return NavigateToExplorer{DBPath: e.Path, Query: e.Query}
				}
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recent Sessions"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No recent sessions"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	muted := lipgloss.NewStyle().Foreground(styles.Muted)
	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		label := filepath.Base(entry.Path)
		if entry.Query != "" {
			label = truncate(entry.Query, 60)
		}
		detail := fmt.Sprintf("  %s  %s", entry.Path, timeAgo(entry.OpenedAt))

		b.WriteString(fmt.Sprintf("%s%s\n%s\n", cursor, style.Render(label), muted.Render(truncate(detail, 80))))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • esc back"))

	return styles.Border.Render(b.String())
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// NavigateToRecent signals navigation to recent sessions view.
type NavigateToRecent struct{}
