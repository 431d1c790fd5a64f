// Package statsui provides the Bubble Tea session history interface.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/stats"
	"github.com/verte-zerg/sprint/internal/store"
)

const (
	tabOverview = iota
	tabSessions
)

const (
	fieldMode = iota
	fieldDifficulty
	fieldSince
	fieldLast
	fieldWindow
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	trendStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea history UI.
type Model struct {
	store *store.Store
	cfg   model.HistoryConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	sessions  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a history UI model.
func NewModel(st *store.Store, cfg model.HistoryConfig) *Model {
	m := &Model{
		store:    st,
		cfg:      cfg,
		tabs:     []string{"Overview", "Sessions"},
		overview: viewport.New(0, 0),
		sessions: newSessionTable(),
	}
	m.initInputs()
	m.refreshReport()
	return m
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
		m.updateLayout()
		m.renderContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.Window = nextWindow(m.cfg.Window)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.Window = prevWindow(m.cfg.Window)
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabSessions {
				m.sessions.GotoTop()
			} else {
				m.overview.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSessions {
				m.sessions.GotoBottom()
			} else {
				m.overview.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabSessions {
			m.sessions, cmd = m.sessions.Update(msg)
		} else {
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Mode (timed/passage): "),
		newFilterInput("Difficulty (easy/medium/hard): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Trend window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	values := make([]string, len(m.filterInputs))
	if m.cfg.Mode != nil {
		values[fieldMode] = m.cfg.Mode.String()
	}
	if m.cfg.Difficulty != nil {
		values[fieldDifficulty] = m.cfg.Difficulty.String()
	}
	if m.cfg.Since != nil {
		values[fieldSince] = m.cfg.Since.Format("2006-01-02")
	}
	if m.cfg.Last > 0 {
		values[fieldLast] = strconv.Itoa(m.cfg.Last)
	}
	values[fieldWindow] = strconv.Itoa(m.cfg.Window)
	for i := range m.filterInputs {
		m.filterInputs[i].SetValue(values[i])
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(1, lipgloss.Height(activeNavStyle.Render("X")))
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	m.sessions.SetWidth(m.width)
	m.sessions.SetHeight(max(1, bodyHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabSessions {
		m.sessions.Focus()
	} else {
		m.sessions.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return m.renderTabs() + "\n" + m.renderFilterSummary()
}

func (m *Model) renderFilterSummary() string {
	mode, difficulty, since, last := "any", "any", "any", "all"
	if m.cfg.Mode != nil {
		mode = m.cfg.Mode.String()
	}
	if m.cfg.Difficulty != nil {
		difficulty = m.cfg.Difficulty.String()
	}
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Filters: mode=%s  difficulty=%s  since=%s  last=%s  window=%d",
		mode, difficulty, since, last, m.cfg.Window)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Window: -/=  Filters: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Filters (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabSessions {
		if len(m.report.Sessions) == 0 {
			return "No sessions found."
		}
		return tableMutedStyle.Render(m.sessions.View())
	}
	return m.overview.View()
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.overview.SetContent("Failed to load history.")
		m.sessions.SetRows(nil)
		return
	}
	m.errMsg = ""
	m.report = report
	m.sessions.SetRows(sessionRows(report.Sessions))
	m.sessions.GotoBottom()
	m.renderContents()
}

func (m *Model) renderContents() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.report, m.cfg.Window, width))
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Sessions) == 0 {
		return fmt.Sprintf("No sessions found.\n\nStored best: %d WPM", report.BestWPM)
	}
	sum := report.Summary
	cards := []string{
		metricCard("Sessions", strconv.Itoa(sum.Sessions)),
		metricCard("Avg WPM", fmt.Sprintf("%.1f", sum.AvgWPM)),
		metricCard("Avg CPM", fmt.Sprintf("%.1f", sum.AvgCPM)),
		metricCard("Best WPM", strconv.Itoa(sum.BestWPM)),
		metricCard("Stored Best", strconv.Itoa(report.BestWPM)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", sum.AvgAccuracy)),
		metricCard("Time Typed", sum.TotalTime.Round(time.Second).String()),
	}
	var block string
	if width < 80 {
		block = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2], cards[3])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[4], cards[5], cards[6])
		block = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	series := report.Trend
	if len(series) > width {
		series = series[len(series)-width:]
	}
	trend := headerStyle.Render(fmt.Sprintf("WPM trend (window %d)", window)) + "\n" +
		trendStyle.Render(stats.Sparkline(series))
	return block + "\n\n" + trend
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func newSessionTable() table.Model {
	columns := []table.Column{
		{Title: "Ended", Width: 16},
		{Title: "Mode", Width: 7},
		{Title: "Difficulty", Width: 10},
		{Title: "WPM", Width: 5},
		{Title: "Accuracy", Width: 8},
		{Title: "Duration", Width: 8},
		{Title: "Reason", Width: 6},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func sessionRows(sessions []model.SessionResult) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, table.Row(stats.HistoryRow(s)))
	}
	return rows
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case "enter":
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.refreshReport()
		return m, nil
	case "tab", "down":
		return m, m.setFilterIndex(m.filterIndex + 1)
	case "shift+tab", "up":
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	cfg, err := parseFilter(m.filterValues())
	if err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

func (m *Model) filterValues() []string {
	values := make([]string, len(m.filterInputs))
	for i, input := range m.filterInputs {
		values[i] = strings.TrimSpace(input.Value())
	}
	return values
}

// parseFilter turns the form fields into a HistoryConfig. Empty fields clear
// the corresponding filter.
func parseFilter(values []string) (model.HistoryConfig, error) {
	var cfg model.HistoryConfig
	if v := values[fieldMode]; v != "" {
		mode, err := model.ParseMode(v)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = &mode
	}
	if v := values[fieldDifficulty]; v != "" {
		d, err := model.ParseDifficulty(v)
		if err != nil {
			return cfg, err
		}
		cfg.Difficulty = &d
	}
	if v := values[fieldSince]; v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid since date %q (expected YYYY-MM-DD)", v)
		}
		cfg.Since = &t
	}
	if v := values[fieldLast]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid last %q (expected >= 0)", v)
		}
		cfg.Last = n
	}
	cfg.Window = 1
	if v := values[fieldWindow]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("invalid window %q (expected >= 1)", v)
		}
		cfg.Window = n
	}
	return cfg, nil
}

var windowSteps = []int{1, 3, 5, 10, 20}

func nextWindow(n int) int {
	for _, step := range windowSteps {
		if step > n {
			return step
		}
	}
	return windowSteps[len(windowSteps)-1]
}

func prevWindow(n int) int {
	for i := len(windowSteps) - 1; i >= 0; i-- {
		if windowSteps[i] < n {
			return windowSteps[i]
		}
	}
	return windowSteps[0]
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
