// Package report renders and ships aggregation tables.
package report

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rendis/yelptap/internal/model"
	"github.com/rendis/yelptap/internal/tui/styles"
)

// CountHeader names the count column for a run mode.
func CountHeader(mode model.Mode) string {
	if mode == model.ModeReviews {
		return "Review hits"
	}
	return "Variants"
}

// Table renders entries, already ordered, as a bordered terminal table.
func Table(entries []model.Entry, mode model.Mode) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	countStyle := cellStyle.Align(lipgloss.Right)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Muted)).
		Headers("#", "Name", "URL", CountHeader(mode)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || col == 3:
				return countStyle
			default:
				return cellStyle
			}
		})

	for i, e := range entries {
		t.Row(strconv.Itoa(i+1), e.Name, e.URL, strconv.Itoa(e.Count))
	}
	return t.Render()
}
