// Package tui is a terminal browser over a listing.Session.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"omahashows/internal/listing"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("250"))
	activeTab     = tabStyle.Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	countStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	todayStyle    = lipgloss.NewStyle().Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

// viewMsg carries a recomputed view from the session callback.
type viewMsg struct{ view listing.View }

// Model is the bubbletea model.
type Model struct {
	session *listing.Session
	updates chan listing.View

	view      listing.View
	input     textinput.Model
	searching bool
	// cursor indexes history month headers.
	cursor int

	width  int
	height int
}

// New wires a model to session. The session's change callback is taken
// over by the model.
func New(session *listing.Session) *Model {
	ti := textinput.New()
	ti.Placeholder = "search artists, venues"
	ti.Prompt = "/ "
	ti.CharLimit = 120

	m := &Model{
		session: session,
		updates: make(chan listing.View, 1),
		view:    session.View(),
		input:   ti,
	}
	session.OnChange(func(v listing.View) {
		// Keep only the newest view.
		for {
			select {
			case m.updates <- v:
				return
			default:
			}
			select {
			case <-m.updates:
			default:
			}
		}
	})
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.waitForView()
}

func (m *Model) waitForView() tea.Cmd {
	return func() tea.Msg {
		return viewMsg{view: <-m.updates}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case viewMsg:
		m.view = msg.view
		m.clampCursor()
		return m, m.waitForView()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "tab":
		m.session.CycleMode()
		m.cursor = 0
	case "shift+tab":
		modes := listing.Modes()
		cur := m.session.Filter().Mode
		m.session.SetMode(modes[(int(cur)+len(modes)-1)%len(modes)])
		m.cursor = 0
	case "/":
		m.searching = true
		m.input.SetValue(m.session.Typed())
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "n", "ctrl+n":
		m.session.LoadMore()
	case "t":
		m.session.CycleTimeFilter()
	case "p":
		if m.session.Filter().Direction == listing.DirectionPast {
			m.session.SetDirection(listing.DirectionUpcoming)
		} else {
			m.session.SetDirection(listing.DirectionPast)
		}
	case "a":
		m.session.SetVenues(listing.VenueSet{})
	case "[":
		m.session.ShiftMonth(-1)
	case "]":
		m.session.ShiftMonth(1)
	case "left", "h":
		if m.session.Filter().Mode == listing.ModeCalendar {
			m.session.SelectAdjacent(-1)
		}
	case "right", "l":
		if m.session.Filter().Mode == listing.ModeCalendar {
			m.session.SelectAdjacent(1)
		}
	case "esc":
		m.session.ClearSelection()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.cursor++
		m.clampCursor()
	case "enter", " ":
		if m.session.Filter().Mode == listing.ModeHistory && m.cursor < len(m.view.History) {
			m.session.ToggleCollapsed(m.view.History[m.cursor].Key)
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9", "0":
		n, _ := strconv.Atoi(key)
		if n == 0 {
			n = 10
		}
		if n-1 < len(m.view.Venues) {
			m.session.ToggleVenue(m.view.Venues[n-1].ID)
		}
	}
	m.view = m.session.View()
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.session.Close()
		return m, tea.Quit
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		m.session.FlushQuery()
		m.view = m.session.View()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		m.session.SetQuery("")
		m.input.SetValue("")
		m.view = m.session.View()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.session.TypeQuery(v)
	}
	return m, cmd
}

func (m *Model) clampCursor() {
	if n := len(m.view.History); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder
	filter := m.session.Filter()

	b.WriteString(titleStyle.Render("Omaha Shows") + "  " + m.renderTabs(filter.Mode) + "\n")
	b.WriteString(m.renderStatus(filter) + "\n")
	if m.searching {
		b.WriteString(m.input.View() + "\n")
	} else if typed := m.session.Typed(); typed != "" {
		b.WriteString(dimStyle.Render("search: "+typed) + "\n")
	}
	if filter.Mode != listing.ModeDashboard {
		b.WriteString(m.renderVenues() + "\n")
	}
	b.WriteString("\n")

	var body string
	switch filter.Mode {
	case listing.ModeEvents:
		body = m.renderEvents(m.view.Events)
	case listing.ModeHistory:
		body = m.renderHistory()
	case listing.ModeCalendar:
		body = m.renderCalendar()
	case listing.ModeDashboard:
		body = m.renderDashboard()
	}
	if m.view.Empty != "" {
		body = dimStyle.Render(m.view.Empty) + "\n" + body
	}
	b.WriteString(m.clip(body))

	b.WriteString("\n" + m.renderFooter(filter.Mode))
	return b.String()
}

func (m *Model) renderTabs(active listing.Mode) string {
	tabs := make([]string, 0, len(listing.Modes()))
	for _, mode := range listing.Modes() {
		style := tabStyle
		if mode == active {
			style = activeTab
		}
		tabs = append(tabs, style.Render(mode.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderStatus(f listing.FilterState) string {
	var parts []string
	switch f.Mode {
	case listing.ModeEvents:
		parts = append(parts, f.Time.Label())
		if f.Direction == listing.DirectionPast {
			parts = append(parts, "past")
		}
		if m.view.JustAdded > 0 {
			parts = append(parts, countStyle.Render(fmt.Sprintf("%d just added", m.view.JustAdded)))
		}
	case listing.ModeHistory:
		parts = append(parts, f.HistoryTime.Label())
	}
	if m.view.ActiveFilters > 0 {
		parts = append(parts, fmt.Sprintf("%d active filters", m.view.ActiveFilters))
	}
	if n := len(m.view.Unmapped); n > 0 && f.Mode == listing.ModeHistory {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d unmapped venues", n)))
	}
	return dimStyle.Render("today "+m.view.Today) + "  " + strings.Join(parts, " · ")
}

func (m *Model) renderVenues() string {
	chips := make([]string, 0, len(m.view.Venues))
	for i, v := range m.view.Venues {
		label := fmt.Sprintf("%s (%d)", v.Name, v.Count)
		if i < 10 {
			label = strconv.Itoa((i+1)%10) + " " + label
		}
		style := lipgloss.NewStyle()
		if v.Color != "" {
			style = style.Foreground(lipgloss.Color(v.Color))
		}
		if !v.Enabled {
			style = dimStyle.Strikethrough(true)
		}
		chips = append(chips, style.Render(label))
	}
	return strings.Join(chips, "  ")
}

func (m *Model) renderEvents(events []listing.EventEntry) string {
	var b strings.Builder
	lastDate := ""
	for _, e := range events {
		if e.Date != lastDate {
			b.WriteString(headingStyle.Render(e.Date) + "\n")
			lastDate = e.Date
		}
		line := fmt.Sprintf("  %-8s %s  %s", e.DisplayTime(), e.Title, dimStyle.Render("@ "+e.Venue))
		if len(e.SupportingArtists) > 0 {
			line += dimStyle.Render(" w/ " + strings.Join(e.SupportingArtists, ", "))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m *Model) renderHistory() string {
	var b strings.Builder
	for i, month := range m.view.History {
		marker := "▾"
		if month.Collapsed {
			marker = "▸"
		}
		head := fmt.Sprintf("%s %s (%d)", marker, month.Label, month.Count)
		if i == m.cursor {
			head = cursorStyle.Render("> " + head)
		} else {
			head = "  " + headingStyle.Render(head)
		}
		b.WriteString(head + "\n")
		if month.Collapsed {
			continue
		}
		for _, day := range month.Days {
			b.WriteString(fmt.Sprintf("    %s (%d)\n", day.Label, day.Count))
			if day.Collapsed {
				continue
			}
			for _, s := range day.Shows {
				b.WriteString(fmt.Sprintf("      %s  %s\n", s.Title, dimStyle.Render("@ "+s.Venue)))
			}
		}
	}
	return b.String()
}

func (m *Model) renderCalendar() string {
	cal := m.view.Calendar
	if cal == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(cal.Grid.Label) + dimStyle.Render(fmt.Sprintf("  %d upcoming", cal.Total)) + "\n")

	for _, wd := range cal.Grid.Weekdays {
		b.WriteString(fmt.Sprintf("%-6s", wd))
	}
	b.WriteString("\n")
	for i, c := range cal.Grid.Cells {
		cell := "      "
		if c.InMonth {
			cell = fmt.Sprintf("%2d", c.Day)
			if c.Count > 0 {
				cell += countStyle.Render(fmt.Sprintf("·%-3d", c.Count))
			} else {
				cell += "    "
			}
			switch {
			case c.Selected:
				cell = selectedStyle.Render(cell)
			case c.Today:
				cell = todayStyle.Render(cell)
			}
		}
		b.WriteString(cell)
		if (i+1)%7 == 0 {
			b.WriteString("\n")
		}
	}

	if sel := cal.Selected; sel != nil {
		b.WriteString("\n" + headingStyle.Render(sel.Label) + "\n")
		b.WriteString(m.renderEvents(sel.Events))
	}
	return b.String()
}

func (m *Model) renderDashboard() string {
	d := m.view.Dashboard
	if d == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d events · %d sources ok · %d failing · updated %s\n\n",
		d.TotalEvents, d.OK, d.Errored, d.LastUpdatedAgo))
	for _, s := range d.Sources {
		status := countStyle.Render("ok   ")
		if s.Error != "" || s.Status != "ok" {
			status = errorStyle.Render("error")
		}
		b.WriteString(fmt.Sprintf("%s  %-24s %4d  %s\n", status, s.Name, s.EventCount, dimStyle.Render(s.Ago)))
		if s.Error != "" {
			b.WriteString("       " + errorStyle.Render(s.Error) + "\n")
		}
	}
	return b.String()
}

func (m *Model) renderFooter(mode listing.Mode) string {
	var parts []string
	r := m.view.Reveal
	if mode == listing.ModeEvents || mode == listing.ModeHistory {
		parts = append(parts, fmt.Sprintf("showing %d of %d", r.Count, r.Total))
		if r.HasMore() {
			parts = append(parts, "n: more")
		}
	}
	help := "tab: mode · /: search · t: time · 1-0: venues · a: all venues · q: quit"
	switch mode {
	case listing.ModeCalendar:
		help = "[ ]: month · ←/→: dates · esc: close · " + help
	case listing.ModeHistory:
		help = "↑/↓ enter: expand · " + help
	case listing.ModeEvents:
		help = "p: past · " + help
	}
	parts = append(parts, help)
	return dimStyle.Render(strings.Join(parts, " · "))
}

// clip trims body to the terminal height, leaving room for header and footer.
func (m *Model) clip(body string) string {
	if m.height <= 0 {
		return body
	}
	limit := max(m.height-7, 3)
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) <= limit {
		return strings.Join(lines, "\n") + "\n"
	}
	return strings.Join(lines[:limit], "\n") + "\n" + dimStyle.Render(fmt.Sprintf("… %d more lines", len(lines)-limit)) + "\n"
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(session *listing.Session) error {
	p := tea.NewProgram(New(session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
