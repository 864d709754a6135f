package main

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/unklstewy/opensky-utah/internal/service"
	"github.com/unklstewy/opensky-utah/pkg/opensky"
)

var tableHeader = []string{"Flight", "Altitude", "Speed", "Status", "Country"}

func aircraftRows(states []opensky.AircraftState) [][]string {
	rows := make([][]string, len(states))
	for i, a := range states {
		rows[i] = []string{
			a.Flight(),
			fmt.Sprintf("%.0f ft", a.AltitudeFeet()),
			fmt.Sprintf("%.0f mph", a.SpeedMPH()),
			a.Status().String(),
			a.OriginCountry,
		}
	}
	return rows
}

func statusText(s service.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, " [white]%d aircraft[-]  [gray]source:[-] %s", len(s.Aircraft), s.DataSource)
	if s.LastFetch != nil {
		fmt.Fprintf(&b, "  [gray]updated:[-] %s", s.LastFetch.Local().Format("15:04:05"))
	}
	if s.IsLoading {
		b.WriteString("  [yellow]LOADING[-]")
	}
	if s.IsOffline {
		b.WriteString("  [orange]OFFLINE[-]")
	}
	if s.ErrorMessage != "" {
		fmt.Fprintf(&b, "  [red]%s[-]", tview.Escape(s.ErrorMessage))
	}
	return b.String()
}

func detailsText(a opensky.AircraftState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-] [gray](%s)[-]\n", tview.Escape(a.Flight()), a.ICAO24)
	fmt.Fprintf(&b, "[gray]Country:[-] %s\n", tview.Escape(a.OriginCountry))
	if a.HasPosition() {
		fmt.Fprintf(&b, "[gray]Pos:[-]     %.4f°, %.4f°\n", *a.Latitude, *a.Longitude)
	}
	fmt.Fprintf(&b, "[gray]Alt:[-]     %.0f ft\n", a.AltitudeFeet())
	fmt.Fprintf(&b, "[gray]Speed:[-]   %.0f mph\n", a.SpeedMPH())
	fmt.Fprintf(&b, "[gray]Climb:[-]   %.1f ft/s\n", a.AscentRateFeetPerSecond())
	fmt.Fprintf(&b, "[gray]Status:[-]  %s\n", a.Status())

	if a.DetailsVisible {
		if a.TrueTrack != nil {
			fmt.Fprintf(&b, "[gray]Track:[-]   %.0f°\n", *a.TrueTrack)
		}
		if a.Squawk != nil {
			fmt.Fprintf(&b, "[gray]Squawk:[-]  %s\n", *a.Squawk)
		}
		fmt.Fprintf(&b, "[gray]Contact:[-] %d\n", a.LastContact)
		fmt.Fprintf(&b, "[gray]Source:[-]  %s\n", a.PositionSource)
		if a.SpecialPurposeIndicator {
			b.WriteString("[red]SPI[-]\n")
		}
	}
	return b.String()
}
