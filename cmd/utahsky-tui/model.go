package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/opensky-utah/internal/service"
	"github.com/unklstewy/opensky-utah/pkg/opensky"
	"github.com/unklstewy/opensky-utah/pkg/region"
)

// tracker is what the view needs from service.Service.
type tracker interface {
	Status() service.Status
	Refresh(ctx context.Context)
	ToggleDetailVisibility(icao24 string) (visible, found bool)
	ClearError()
}

// Polling interval for redraws. The service has no change notification,
// so the view re-reads its status on every tick.
const pollInterval = time.Second

type tickMsg time.Time

type refreshedMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	ctx      context.Context
	tracker  tracker
	bounds   region.Bounds
	status   service.Status
	selected int
	width    int
	height   int
}

func newModel(ctx context.Context, t tracker, bounds region.Bounds) model {
	m := model{ctx: ctx, tracker: t, bounds: bounds}
	m.reload()
	return m
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tickMsg:
		m.reload()
		return m, tick()

	case refreshedMsg:
		m.reload()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.status.IsLoading = true
			return m, m.refresh()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.status.Aircraft)-1 {
				m.selected++
			}
		case "enter", " ":
			if m.selected < len(m.status.Aircraft) {
				m.tracker.ToggleDetailVisibility(m.status.Aircraft[m.selected].ICAO24)
				m.reload()
			}
		case "esc":
			m.tracker.ClearError()
			m.reload()
		}
	}

	return m, nil
}

// refresh runs a manual refresh off the UI goroutine.
func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		m.tracker.Refresh(m.ctx)
		return refreshedMsg{}
	}
}

func (m *model) reload() {
	m.status = m.tracker.Status()
	if m.selected >= len(m.status.Aircraft) {
		m.selected = len(m.status.Aircraft) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("109"))
)

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("UTAH SKY"))
	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")
	if m.status.ErrorMessage != "" {
		s.WriteString(errStyle.Render("Error: " + m.status.ErrorMessage))
		s.WriteString(helpStyle.Render("  (esc to dismiss)"))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(m.renderMap())
	s.WriteString("\n")
	s.WriteString(m.renderAircraftList())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: Select  ENTER: Details  R: Refresh  ESC: Dismiss  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

func (m model) renderStatusLine() string {
	parts := []string{
		fmt.Sprintf("%d aircraft", len(m.status.Aircraft)),
		"source: " + m.status.DataSource.String(),
	}
	if m.status.LastFetch != nil {
		parts = append(parts, "updated "+m.status.LastFetch.Local().Format("15:04:05"))
	}
	line := infoStyle.Render(strings.Join(parts, "  "))
	if m.status.IsLoading {
		line += "  " + warnStyle.Render("LOADING")
	}
	if m.status.IsOffline {
		line += "  " + warnStyle.Render("OFFLINE")
	}
	return line
}

func (m model) renderAircraftList() string {
	var s strings.Builder
	if len(m.status.Aircraft) == 0 {
		s.WriteString(helpStyle.Render("No aircraft"))
		s.WriteString("\n")
		return s.String()
	}

	for i, a := range m.status.Aircraft {
		line := fmt.Sprintf("%-10s %7.0f ft %5.0f mph  %s",
			a.Flight(), a.AltitudeFeet(), a.SpeedMPH(), a.Status())
		if i == m.selected {
			s.WriteString(selectedStyle.Render("> " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")

		if a.DetailsVisible {
			for _, d := range details(a) {
				s.WriteString(detailStyle.Render("    " + d))
				s.WriteString("\n")
			}
		}
	}
	return s.String()
}

// details lists the expanded fields of one aircraft.
func details(a opensky.AircraftState) []string {
	out := []string{
		fmt.Sprintf("ICAO24 %s  from %s", a.ICAO24, a.OriginCountry),
	}
	if a.HasPosition() {
		out = append(out, fmt.Sprintf("Position %.4f, %.4f", *a.Latitude, *a.Longitude))
	}
	out = append(out, fmt.Sprintf("Climb %.1f ft/s  Track %.0f°", a.AscentRateFeetPerSecond(), a.Heading()+90))
	if a.Squawk != nil {
		out = append(out, "Squawk "+*a.Squawk)
	}
	out = append(out, "Source "+a.PositionSource.String())
	return out
}
