package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/session"
	"github.com/rendis/yelptap/internal/engine/translate"
	"github.com/rendis/yelptap/internal/model"
	"github.com/rendis/yelptap/internal/tui/styles"
)

// Field indices; fieldMode is a virtual field (not a textinput).
const (
	fieldMode = iota
	fieldURL
	fieldKeywords
	fieldConcurrency
	fieldOutput
	fieldCount
)

type SearchModel struct {
	cfg        *config.Config
	translator *translate.Translator
	inputs     []textinput.Model
	mode       model.Mode
	focused    int
	preview    string
	previewErr string
	err        string
}

func NewSearchModel(cfg *config.Config) SearchModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldMode] = textinput.New() // placeholder, never used
	inputs[fieldURL] = newInput("https://www.yelp.com/search?find_desc=...&find_loc=...", "", 70)
	inputs[fieldURL].CharLimit = 2048
	inputs[fieldKeywords] = newInput("vegan, halal, kosher", "", 50)
	inputs[fieldConcurrency] = newInput("1", "", 5)
	inputs[fieldOutput] = newInput("./runs", "", 50)

	m := SearchModel{
		cfg:     cfg,
		inputs:  inputs,
		mode:    model.ModeVariants,
		focused: fieldMode,
	}
	if tr, err := session.NewTranslator(cfg, time.Now); err == nil {
		m.translator = tr
	} else {
		m.previewErr = err.Error()
	}
	return m
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func (m SearchModel) Init() tea.Cmd {
	return nil
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		case "up", "shift+tab":
			m.err = ""
			return m, m.focusPrev()
		case "down", "tab":
			m.err = ""
			return m, m.focusNext()
		case "enter":
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}
			return m, nil
		case "left":
			if m.focused == fieldMode {
				m.mode = model.ModeVariants
				return m, nil
			}
		case "right":
			if m.focused == fieldMode {
				m.mode = model.ModeReviews
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.focused != fieldMode {
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}
	if m.focused == fieldURL {
		m.updatePreview()
	}
	return m, cmd
}

func (m *SearchModel) updatePreview() {
	raw := strings.TrimSpace(m.inputs[fieldURL].Value())
	if raw == "" || m.translator == nil {
		m.preview = ""
		return
	}
	out, err := m.translator.Translate(raw)
	if err != nil {
		m.preview, m.previewErr = "", err.Error()
		return
	}
	m.preview, m.previewErr = out, ""
}

func (m *SearchModel) focusNext() tea.Cmd {
	return m.focusTo(m.step(m.focused, 1))
}

func (m *SearchModel) focusPrev() tea.Cmd {
	return m.focusTo(m.step(m.focused, -1))
}

// step moves through fields with wraparound, skipping concurrency in
// reviews mode where scanning is always sequential.
func (m *SearchModel) step(idx, dir int) int {
	for {
		idx = (idx + dir + fieldCount) % fieldCount
		if m.mode == model.ModeReviews && idx == fieldConcurrency {
			continue
		}
		return idx
	}
}

func (m *SearchModel) focusTo(idx int) tea.Cmd {
	if m.focused != fieldMode {
		m.inputs[m.focused].Blur()
	}
	m.focused = idx
	if idx == fieldMode {
		return nil
	}
	m.inputs[idx].Focus()
	return textinput.Blink
}

func (m *SearchModel) submit() tea.Cmd {
	webURL := strings.TrimSpace(m.inputs[fieldURL].Value())
	if webURL == "" {
		m.err = "Search URL is required"
		return nil
	}
	if m.translator != nil {
		if _, err := m.translator.Translate(webURL); err != nil {
			m.err = err.Error()
			return nil
		}
	}
	if m.cfg.APIKey == "" {
		m.err = "YELP_API_KEY is not set"
		return nil
	}

	output := strings.TrimSpace(m.inputs[fieldOutput].Value())
	if output == "" {
		output = m.inputs[fieldOutput].Placeholder
	}

	concurrency := 1
	if s := strings.TrimSpace(m.inputs[fieldConcurrency].Value()); s != "" && m.mode == model.ModeVariants {
		c, err := strconv.Atoi(s)
		if err != nil || c < 1 {
			m.err = "Concurrency must be a positive number"
			return nil
		}
		concurrency = c
	}

	params := model.SearchParams{
		WebURL:      webURL,
		Keywords:    config.SplitList(m.inputs[fieldKeywords].Value()),
		Mode:        m.mode,
		Concurrency: concurrency,
		OutputDir:   output,
	}
	return func() tea.Msg { return StartSearchMsg{Params: params} }
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("New Search") + "\n\n")
	b.WriteString(m.renderMode())
	b.WriteString("\n")

	b.WriteString(m.renderField("Search URL:", fieldURL))
	hint := lipgloss.NewStyle().Foreground(styles.Muted).Italic(true)
	switch {
	case m.preview != "":
		b.WriteString(hint.Render("  → "+m.preview) + "\n")
	case m.previewErr != "" && m.inputs[fieldURL].Value() != "":
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render("  "+m.previewErr) + "\n")
	}

	b.WriteString(m.renderField("Keywords:", fieldKeywords))
	if m.focused == fieldKeywords {
		if m.mode == model.ModeReviews {
			b.WriteString(hint.Render("  empty uses "+strings.Join(m.cfg.ReviewKeywords, ", ")) + "\n")
		} else {
			b.WriteString(hint.Render("  each keyword is appended to the search term") + "\n")
		}
	}
	if m.mode == model.ModeVariants {
		b.WriteString(m.renderField("Concurrency:", fieldConcurrency))
	}
	b.WriteString(m.renderField("Output:", fieldOutput))

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("enter start • tab next • esc back"))

	return styles.Border.Render(b.String())
}

func (m SearchModel) renderMode() string {
	label := styles.Label.Render("Mode:")

	active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(styles.Muted)

	var variantsStr, reviewsStr string
	if m.mode == model.ModeVariants {
		variantsStr = active.Render("< Keyword variants >")
		reviewsStr = inactive.Render("Review hits")
	} else {
		variantsStr = inactive.Render("Keyword variants")
		reviewsStr = active.Render("< Review hits >")
	}

	line := fmt.Sprintf("%s  %s   %s", label, variantsStr, reviewsStr)
	if m.focused == fieldMode {
		line += lipgloss.NewStyle().Foreground(styles.Secondary).Render(" ←→")
	}
	return line + "\n"
}

func (m SearchModel) renderField(label string, idx int) string {
	l := styles.Label.Render(label)
	v := m.inputs[idx].View()
	return fmt.Sprintf("%s %s\n", l, v)
}

// Messages
type NavigateToHome struct{}

// StartSearchMsg asks the app to run a session.
type StartSearchMsg struct {
	Params model.SearchParams
}
