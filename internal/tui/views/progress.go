package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/yelptap/internal/config"
	"github.com/rendis/yelptap/internal/engine/reviews"
	"github.com/rendis/yelptap/internal/engine/session"
	"github.com/rendis/yelptap/internal/engine/yelp"
	"github.com/rendis/yelptap/internal/model"
	"github.com/rendis/yelptap/internal/tui/styles"
)

// sharedState holds data shared between the session goroutine and TUI.
// Lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	lastItem string
}

// ProgressModel runs a session and shows its counters.
type ProgressModel struct {
	cfg         *config.Config
	params      model.SearchParams
	paths       session.Paths
	apiStats    *yelp.Stats
	reviewStats *reviews.Stats
	progress    progress.Model
	startTime   time.Time
	done        bool
	confirmQuit bool
	err         error
	result      *session.Result
	width       int
	height      int
	shared      *sharedState
}

// Messages
type progressTickMsg time.Time

type sessionCompleteMsg struct {
	Result *session.Result
	Err    error
}

func NewProgressModel(cfg *config.Config, msg StartSearchMsg) ProgressModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	params := msg.Params
	if params.Concurrency <= 0 {
		params.Concurrency = 1
	}
	now := time.Now()
	paths := session.NewPaths(params.OutputDir, now)
	params.DBPath = paths.DB
	params.CSVPath = paths.CSV

	return ProgressModel{
		cfg:         cfg,
		params:      params,
		paths:       paths,
		apiStats:    &yelp.Stats{},
		reviewStats: &reviews.Stats{},
		progress:    p,
		startTime:   now,
		shared:      &sharedState{},
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.startSession(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m ProgressModel) startSession() tea.Cmd {
	shared := m.shared
	cfg := m.cfg
	params := m.params
	logPath := m.paths.Log
	apiStats := m.apiStats
	reviewStats := m.reviewStats

	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := os.MkdirAll(params.OutputDir, 0755); err != nil {
			return sessionCompleteMsg{Err: fmt.Errorf("creating output dir: %w", err)}
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return sessionCompleteMsg{Err: err}
		}
		defer logFile.Close()
		logger := log.New(logFile, "", log.LstdFlags)

		shared.mu.Lock()
		shared.cancel = cancel
		shared.mu.Unlock()

		res, err := session.Run(ctx, cfg, params, session.Options{
			Logger:      logger,
			APIStats:    apiStats,
			ReviewStats: reviewStats,
			OnVariant: func(v yelp.Variant, found int) {
				shared.setLast(fmt.Sprintf("%q → %d", v.Keyword, found))
			},
			OnBusiness: func(b model.Business, count int) {
				shared.setLast(fmt.Sprintf("%s → %d", b.Name, count))
			},
		})
		if err != nil {
			logger.Printf("ERROR %v", err)
		}
		return sessionCompleteMsg{Result: res, Err: err}
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, m.leave()
			}
			if m.confirmQuit {
				if cancel := m.shared.getCancel(); cancel != nil {
					cancel()
				}
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			m.confirmQuit = true
			return m, nil
		case "enter":
			if m.done {
				return m, m.leave()
			}
			if m.confirmQuit {
				m.confirmQuit = false
				return m, nil
			}
		}
		if m.confirmQuit {
			m.confirmQuit = false
		}
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case sessionCompleteMsg:
		m.done = true
		m.err = msg.Err
		m.result = msg.Result
		return m, nil
	}

	var cmd tea.Cmd
	var pModel tea.Model
	pModel, cmd = m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

// leave opens the results when the session wrote any, otherwise goes home.
func (m ProgressModel) leave() tea.Cmd {
	if m.err != nil || m.result == nil {
		return func() tea.Msg { return NavigateToHome{} }
	}
	res := m.result
	return func() tea.Msg {
		return NavigateToExplorer{DBPath: res.DBPath, Query: res.Run.WebQuery}
	}
}

func (m ProgressModel) View() string {
	var b strings.Builder

	title := "Keyword variants"
	if m.params.Mode == model.ModeReviews {
		title = "Review hits"
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(truncate(m.params.WebURL, 70)))
	b.WriteString("\n\n")

	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(36).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.fraction()))
	b.WriteString("\n")
	if last := m.shared.getLast(); last != "" && !m.done {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render(truncate(last, 60)))
	}
	b.WriteString("\n\n")

	switch {
	case m.done:
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
			b.WriteString(styles.StatusBar.Render("esc back"))
			break
		}
		if m.result == nil {
			b.WriteString(styles.ErrorText.Render("Cancelled"))
			b.WriteString("\n\n")
			b.WriteString(styles.StatusBar.Render("esc back"))
			break
		}
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
			Render(fmt.Sprintf("Complete! %d businesses ranked", len(m.result.Entries))))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("Database: %s", m.result.DBPath)))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter explore results • esc back"))
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the search and go back"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc cancel • ctrl+c quit"))
	}

	return b.String()
}

// fraction is variant progress, or business progress once a review scan
// has started.
func (m ProgressModel) fraction() float64 {
	if m.done {
		return 1
	}
	if m.params.Mode == model.ModeReviews {
		if total := m.reviewStats.BusinessesTotal.Load(); total > 0 {
			return float64(m.reviewStats.BusinessesDone.Load()) / float64(total)
		}
		return 0
	}
	if total := m.apiStats.VariantsTotal.Load(); total > 0 {
		return float64(m.apiStats.VariantsDone.Load()) / float64(total)
	}
	return 0
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label string, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	api := m.apiStats
	if m.params.Mode == model.ModeReviews {
		rev := m.reviewStats
		row("Pages:", fmt.Sprintf("%d", api.Pages.Load()))
		row("Businesses:", fmt.Sprintf("%d/%d", rev.BusinessesDone.Load(), rev.BusinessesTotal.Load()))
		row("Requests:", fmt.Sprintf("%d", rev.Requests.Load()))
		row("Hits:", fmt.Sprintf("%d", rev.Hits.Load()))
		if misses := rev.Misses.Load(); misses > 0 {
			sb.WriteString(statLabel.Render("Misses:"))
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).Render(fmt.Sprintf("%d", misses)))
			sb.WriteString("\n")
		}
	} else {
		row("Variants:", fmt.Sprintf("%d/%d", api.VariantsDone.Load(), api.VariantsTotal.Load()))
		row("Pages:", fmt.Sprintf("%d", api.Pages.Load()))
		row("Businesses:", fmt.Sprintf("%d", api.Businesses.Load()))
	}

	errStyle := statVal
	errCount := api.Errors.Load()
	if errCount > 0 {
		errStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	sb.WriteString(statLabel.Render("Errors:"))
	sb.WriteString(errStyle.Render(fmt.Sprintf("%d", errCount)))
	sb.WriteString("\n")

	if rateLimits := api.RateLimits.Load(); rateLimits > 0 {
		rlStyle := lipgloss.NewStyle().Foreground(styles.Warning).Bold(true)
		sb.WriteString(statLabel.Render("Rate Lim:"))
		sb.WriteString(rlStyle.Render(fmt.Sprintf("%d", rateLimits)))
		sb.WriteString("\n")
	}

	row("Elapsed:", elapsed.String())
	return sb.String()
}

func (s *sharedState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

func (s *sharedState) setLast(item string) {
	s.mu.Lock()
	s.lastItem = item
	s.mu.Unlock()
}

func (s *sharedState) getLast() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastItem
}

// NavigateToExplorer signals transition to explorer view.
type NavigateToExplorer struct {
	DBPath string
	Query  string
}
