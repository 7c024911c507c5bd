// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-orbit/internal/feed"
	"github.com/litescript/ls-orbit/internal/track"
	"github.com/litescript/ls-orbit/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewNow ViewMode = iota
	ViewEpochs
)

const viewCount = 2

// Reloader reloads the feed into the tracker's store.
type Reloader interface {
	Load(ctx context.Context) (feed.FetchResult, error)
}

// Msg types for Bubble Tea
type (
	// TickMsg triggers periodic UI updates.
	TickMsg time.Time

	// NowMsg carries a freshly computed "now" view.
	NowMsg struct {
		View  track.NowView
		Error error
	}

	// ReloadMsg reports the outcome of a feed reload.
	ReloadMsg struct {
		Result feed.FetchResult
		Error  error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	tracker *track.Tracker
	loader  Reloader

	// UI state
	viewMode  ViewMode
	width     int
	height    int
	ready     bool
	statusMsg string
	tick      int
	computing bool
	reloading bool

	// Sub-models
	now    NowPanel
	epochs EpochPager
}

// New creates a new root UI model. loader may be nil, which disables reload.
func New(tracker *track.Tracker, loader Reloader) Model {
	return Model{
		tracker:  tracker,
		loader:   loader,
		viewMode: ViewNow,
		now:      NewNowPanel(),
		epochs:   NewEpochPager(tracker),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.nowCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// nowCmd computes the "now" view off the UI goroutine; the geo lookup may block.
func (m Model) nowCmd() tea.Cmd {
	tracker := m.tracker
	return func() tea.Msg {
		v, err := tracker.Now(context.Background())
		return NowMsg{View: v, Error: err}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		res, err := loader.Load(context.Background())
		return ReloadMsg{Result: res, Error: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "1":
			m.viewMode = ViewNow
		case "2", "e":
			m.viewMode = ViewEpochs
		case "tab":
			m.viewMode = (m.viewMode + 1) % viewCount

		case "r":
			if m.loader == nil {
				m.statusMsg = "Reload unavailable"
			} else if !m.reloading {
				m.reloading = true
				m.statusMsg = "Reloading feed..."
				cmds = append(cmds, m.reloadCmd())
			}

		default:
			if m.viewMode == ViewEpochs {
				var cmd tea.Cmd
				m.epochs, cmd = m.epochs.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		contentHeight := msg.Height - 6
		m.now = m.now.SetSize(msg.Width, contentHeight)
		m.epochs = m.epochs.SetSize(msg.Width, contentHeight)

	case TickMsg:
		m.tick++
		cmds = append(cmds, tickCmd())
		m.epochs = m.epochs.Refresh(m.tracker.Store().Status().Records)
		if !m.computing {
			m.computing = true
			cmds = append(cmds, m.nowCmd())
		}

	case NowMsg:
		m.computing = false
		m.now = m.now.SetNow(msg.View, msg.Error)

	case ReloadMsg:
		m.reloading = false
		if msg.Error != nil {
			m.statusMsg = "Reload failed: " + msg.Error.Error()
		} else {
			m.statusMsg = fmt.Sprintf("Reloaded from %s at %s", msg.Result.Source, msg.Result.FetchedAt.UTC().Format("15:04:05"))
		}
		m.epochs = m.epochs.Refresh(m.tracker.Store().Status().Records)
		if !m.computing {
			m.computing = true
			cmds = append(cmds, m.nowCmd())
		}
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewNow:
		content = m.now.View()
	case ViewEpochs:
		content = m.epochs.View()
	}

	return m.renderHeader() + "\n" + content + "\n\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9D4EDD")).
		Render(fmt.Sprintf("  LS-ORBIT v%s", version.Version))
	return title + "  " + m.renderTabs() + "\n"
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Now", "[2] Epochs"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderFooter() string {
	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := spinnerFrames[m.tick%len(spinnerFrames)]

	st := m.tracker.Store().Status()
	var status string
	if st.Loaded {
		status = accentStyle.Render(spinner) + dimStyle.Render(fmt.Sprintf(" %d records · %s", st.Records, st.Source))
	} else {
		status = accentStyle.Render(spinner) + dimStyle.Render(" no data")
	}

	var help string
	switch m.viewMode {
	case ViewEpochs:
		help = dimStyle.Render("n/p: page | ↑↓: select | r: reload | q: quit")
	default:
		help = dimStyle.Render("tab: switch view | r: reload | q: quit")
	}

	footer := "  " + status + "  " + dimStyle.Render("|") + "  " + help
	if m.statusMsg != "" {
		footer += "\n  " + dimStyle.Render(m.statusMsg)
	}
	return footer
}

// Run starts the TUI and blocks until the user quits.
func Run(tracker *track.Tracker, loader Reloader) error {
	p := tea.NewProgram(New(tracker, loader), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
