// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/session"
	"github.com/verte-zerg/sprint/internal/stats"
)

// accuracyWarnBelow turns the accuracy figure red.
const accuracyWarnBelow = 98

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	statValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	statWarnStyle    = statValueStyle.Foreground(lipgloss.Color("#FF4D4F"))
	pillStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Padding(0, 1)
	activePillStyle  = pillStyle.Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	badgeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#C89A3A")).Padding(0, 1)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type keyMap struct {
	Restart    key.Binding
	Mode       key.Binding
	Difficulty key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Mode, k.Difficulty, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Restart:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "restart")),
	Mode:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mode")),
	Difficulty: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "difficulty")),
	Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// tickMsg carries the session id so ticks scheduled for a superseded
// session are dropped.
type tickMsg struct {
	sessionID string
	at        time.Time
}

type hideBadgeMsg struct {
	sessionID string
}

// StatusLog keeps the most recent best-effort failure for the footer, so
// errors do not get written over the alt screen.
type StatusLog struct {
	mu   sync.Mutex
	last string
}

// Logf records a message. It matches session.WithLogger.
func (l *StatusLog) Logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = strings.TrimSpace(fmt.Sprintf(format, args...))
}

// Last returns the most recent message.
func (l *StatusLog) Last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	ctx    context.Context
	engine *session.Engine
	config model.Config
	status *StatusLog
	help   help.Model

	width  int
	height int

	snap      model.Snapshot
	showBadge bool
	errMsg    string
}

// NewModel constructs a typing TUI model around an engine that has already
// been started.
func NewModel(ctx context.Context, engine *session.Engine, cfg model.Config, status *StatusLog) *Model {
	if status == nil {
		status = &StatusLog{}
	}
	return &Model{
		ctx:    ctx,
		engine: engine,
		config: cfg,
		status: status,
		help:   help.New(),
		snap:   engine.Snapshot(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case hideBadgeMsg:
		if msg.sessionID == m.snap.SessionID {
			m.showBadge = false
		}
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Restart):
			return m, m.restart()
		case key.Matches(msg, keys.Mode):
			next := model.ModeTimed
			if m.config.Mode == model.ModeTimed {
				next = model.ModePassage
			}
			return m, m.switchTo(next, m.config.Difficulty)
		case key.Matches(msg, keys.Difficulty):
			return m, m.switchTo(m.config.Mode, m.config.Difficulty.Next())
		}
		edit, ok := session.Classify(toSessionKey(msg))
		if !ok {
			return m, nil
		}
		return m, m.submit(edit)
	default:
		return m, nil
	}
}

// toSessionKey converts a Bubble Tea key into the engine's raw key form.
func toSessionKey(msg tea.KeyMsg) session.Key {
	k := session.Key{Alt: msg.Alt}
	switch msg.Type {
	case tea.KeyRunes:
		k.Type = session.KeyRunes
		k.Runes = msg.Runes
	case tea.KeySpace:
		k.Type = session.KeyRunes
		k.Runes = []rune{' '}
	case tea.KeyEnter:
		k.Type = session.KeyEnter
	case tea.KeyBackspace:
		k.Type = session.KeyBackspace
	default:
		k.Type = session.KeyOther
		// Bubble Tea reports ctrl chords as dedicated key types.
		k.Ctrl = strings.HasPrefix(msg.String(), "ctrl+")
	}
	return k
}

func (m *Model) submit(edit session.Edit) tea.Cmd {
	wasArmed := m.engine.Armed()
	if !m.engine.Submit(m.ctx, edit) {
		return nil
	}
	before := m.snap
	m.snap = m.engine.Snapshot()
	var cmds []tea.Cmd
	if !wasArmed && m.engine.Armed() {
		cmds = append(cmds, scheduleTick(m.snap.SessionID))
	}
	if cmd := m.badgeCmd(before); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return batch(cmds)
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if msg.sessionID != m.snap.SessionID {
		return nil
	}
	if !m.engine.Tick(m.ctx, msg.at) {
		return nil
	}
	before := m.snap
	m.snap = m.engine.Snapshot()
	var cmds []tea.Cmd
	if m.engine.Armed() {
		cmds = append(cmds, scheduleTick(m.snap.SessionID))
	}
	if cmd := m.badgeCmd(before); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return batch(cmds)
}

func (m *Model) badgeCmd(before model.Snapshot) tea.Cmd {
	if before.JustHitNewPB || !m.snap.JustHitNewPB {
		return nil
	}
	m.showBadge = true
	id := m.snap.SessionID
	return tea.Tick(session.PBBadgeDuration, func(time.Time) tea.Msg {
		return hideBadgeMsg{sessionID: id}
	})
}

func batch(cmds []tea.Cmd) tea.Cmd {
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

func scheduleTick(sessionID string) tea.Cmd {
	return tea.Tick(session.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg{sessionID: sessionID, at: t}
	})
}

func (m *Model) restart() tea.Cmd {
	if err := m.engine.Restart(m.ctx); err != nil {
		m.errMsg = err.Error()
	}
	m.snap = m.engine.Snapshot()
	m.showBadge = false
	return nil
}

func (m *Model) switchTo(mode model.Mode, difficulty model.Difficulty) tea.Cmd {
	if err := m.engine.Start(m.ctx, mode, difficulty, m.config.DurationSec); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.errMsg = ""
	m.config.Mode = mode
	m.config.Difficulty = difficulty
	m.snap = m.engine.Snapshot()
	m.showBadge = false
	return nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if len(m.snap.Passage) == 0 {
		return ""
	}
	cursorIndex := -1
	if m.snap.Phase != model.PhaseFinished {
		cursorIndex = m.snap.CurrentIndex()
	}
	styled := buildStyledRunes(m.snap.Passage, m.snap.Typed, cursorIndex)

	contentWidth := 0
	if m.width > 0 {
		contentWidth = max(1, int(float64(m.width)*0.70))
	}
	text := wrapStyledRunes(styled, contentWidth)
	blocks := []string{
		m.renderPills(),
		m.renderStats(),
		"",
		text,
		"",
		footerStyle.Render(m.hint()),
	}
	if msg := m.statusLine(); msg != "" {
		blocks = append(blocks, errorStyle.Render(msg))
	}
	blocks = append(blocks, m.help.View(keys))
	content := lipgloss.JoinVertical(lipgloss.Left, blocks...)
	if contentWidth > 0 {
		content = lipgloss.NewStyle().Width(contentWidth).Render(content)
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderPills() string {
	var parts []string
	for _, d := range model.Difficulties {
		parts = append(parts, pill(d.String(), d == m.snap.Difficulty))
	}
	parts = append(parts, footerStyle.Render("│"))
	for _, mode := range []model.Mode{model.ModeTimed, model.ModePassage} {
		parts = append(parts, pill(mode.String(), mode == m.snap.Mode))
	}
	sub := "one passage"
	if m.snap.Mode == model.ModeTimed {
		sub = fmt.Sprintf("%d seconds", m.config.DurationSec)
	}
	parts = append(parts, footerStyle.Render(sub))
	return strings.Join(parts, " ")
}

func pill(label string, active bool) string {
	if active {
		return activePillStyle.Render(label)
	}
	return pillStyle.Render(label)
}

func (m *Model) renderStats() string {
	accStyle := statValueStyle
	if m.snap.Metrics.Accuracy < accuracyWarnBelow {
		accStyle = statWarnStyle
	}
	segments := []string{
		statLabelStyle.Render("WPM ") + statValueStyle.Render(fmt.Sprintf("%d", m.snap.Metrics.WPM)),
		statLabelStyle.Render("Accuracy ") + accStyle.Render(fmt.Sprintf("%d%%", m.snap.Metrics.Accuracy)),
		statLabelStyle.Render("Time ") + statValueStyle.Render(m.timeLabel()),
		statLabelStyle.Render("Best ") + statValueStyle.Render(fmt.Sprintf("%d WPM", m.snap.BestWPM)),
	}
	if m.showBadge {
		segments = append(segments, badgeStyle.Render("New PB!"))
	}
	return strings.Join(segments, "   ")
}

func (m *Model) timeLabel() string {
	if m.snap.RemainingSec == nil {
		return "—"
	}
	return stats.FormatClock(*m.snap.RemainingSec)
}

func (m *Model) hint() string {
	switch m.snap.Phase {
	case model.PhaseRunning:
		if m.snap.Mode == model.ModeTimed {
			return "Typing… keep going!"
		}
		return "Typing… finish the passage!"
	case model.PhaseFinished:
		if m.snap.Reason == model.ReasonTime {
			return "Time's up! Press Esc to try again."
		}
		return "Completed! Press Esc to try again."
	default:
		return "Start typing to begin."
	}
}

func (m *Model) statusLine() string {
	if m.errMsg != "" {
		return m.errMsg
	}
	return m.status.Last()
}
