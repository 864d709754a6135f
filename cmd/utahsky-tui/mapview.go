package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/opensky-utah/pkg/opensky"
)

// Map viewport dimensions
const (
	mapWidth  = 60
	mapHeight = 20
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	planeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

// toScreen maps a position inside the region to a grid cell. Positions
// outside the region return -1, -1.
func (m model) toScreen(lat, lon float64) (int, int) {
	b := m.bounds
	if !b.Contains(lat, lon) {
		return -1, -1
	}
	x := int(math.Round((lon - b.LongitudeMin) / (b.LongitudeMax - b.LongitudeMin) * float64(mapWidth-1)))
	y := int(math.Round((b.LatitudeMax - lat) / (b.LatitudeMax - b.LatitudeMin) * float64(mapHeight-1)))
	return x, y
}

// headingGlyph picks an arrow for the direction of travel.
func headingGlyph(a opensky.AircraftState) rune {
	if a.TrueTrack == nil {
		return '•'
	}
	arrows := []rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}
	idx := int(math.Round(math.Mod(*a.TrueTrack+360, 360)/45)) % len(arrows)
	return arrows[idx]
}

func (m model) renderMap() string {
	grid := make([][]rune, mapHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", mapWidth))
	}

	selX, selY := -1, -1
	for i, a := range m.status.Aircraft {
		if !a.HasPosition() {
			continue
		}
		x, y := m.toScreen(*a.Latitude, *a.Longitude)
		if x < 0 {
			continue
		}
		grid[y][x] = headingGlyph(a)
		if i == m.selected {
			selX, selY = x, y
		}
	}

	var s strings.Builder
	s.WriteString(borderStyle.Render("┌" + strings.Repeat("─", mapWidth) + "┐"))
	s.WriteString("\n")
	for y, row := range grid {
		s.WriteString(borderStyle.Render("│"))
		for x, r := range row {
			switch {
			case r == ' ':
				s.WriteRune(r)
			case x == selX && y == selY:
				s.WriteString(selectedStyle.Render(string(r)))
			default:
				s.WriteString(planeStyle.Render(string(r)))
			}
		}
		s.WriteString(borderStyle.Render("│"))
		s.WriteString("\n")
	}
	s.WriteString(borderStyle.Render("└" + strings.Repeat("─", mapWidth) + "┘"))
	return s.String()
}
