// Package region describes the fixed geographic area the tracker polls.
package region

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// StatesPath is the OpenSky endpoint returning state vectors.
const StatesPath = "/states/all"

// Bounds is a latitude/longitude bounding box in decimal degrees.
type Bounds struct {
	// Name is a friendly identifier for this region
	Name string

	// LatitudeMin is the southern edge (-90 to +90)
	LatitudeMin float64

	// LatitudeMax is the northern edge (-90 to +90)
	LatitudeMax float64

	// LongitudeMin is the western edge (-180 to +180)
	LongitudeMin float64

	// LongitudeMax is the eastern edge (-180 to +180)
	LongitudeMax float64

	// Margin scales the span returned by Span so markers near the edge stay visible
	Margin float64
}

// Utah is the only region the tracker supports.
var Utah = Bounds{
	Name:         "Utah",
	LatitudeMin:  37.0,
	LatitudeMax:  42.0,
	LongitudeMin: -114.0,
	LongitudeMax: -109.0,
	Margin:       1.05,
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (lat, lon float64) {
	lat = b.LatitudeMin + (b.LatitudeMax-b.LatitudeMin)/2
	lon = b.LongitudeMin + (b.LongitudeMax-b.LongitudeMin)/2
	return lat, lon
}

// Span returns the latitude and longitude deltas of the box, widened by Margin.
func (b Bounds) Span() (latDelta, lonDelta float64) {
	margin := b.Margin
	if margin <= 0 {
		margin = 1
	}
	latDelta = math.Abs(b.LatitudeMax-b.LatitudeMin) * margin
	lonDelta = math.Abs(b.LongitudeMax-b.LongitudeMin) * margin
	return latDelta, lonDelta
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.LatitudeMin && lat <= b.LatitudeMax &&
		lon >= b.LongitudeMin && lon <= b.LongitudeMax
}

// Validate checks that the box is well formed.
func (b Bounds) Validate() error {
	if b.LatitudeMin < -90 || b.LatitudeMax > 90 {
		return fmt.Errorf("latitude bounds out of range: %v..%v", b.LatitudeMin, b.LatitudeMax)
	}
	if b.LongitudeMin < -180 || b.LongitudeMax > 180 {
		return fmt.Errorf("longitude bounds out of range: %v..%v", b.LongitudeMin, b.LongitudeMax)
	}
	if b.LatitudeMin >= b.LatitudeMax || b.LongitudeMin >= b.LongitudeMax {
		return fmt.Errorf("region %q has empty extent", b.Name)
	}
	return nil
}

// QueryParams returns the lamin/lamax/lomin/lomax parameters for the states endpoint.
func (b Bounds) QueryParams() url.Values {
	v := url.Values{}
	v.Set("lamin", formatDegrees(b.LatitudeMin))
	v.Set("lamax", formatDegrees(b.LatitudeMax))
	v.Set("lomin", formatDegrees(b.LongitudeMin))
	v.Set("lomax", formatDegrees(b.LongitudeMax))
	return v
}

// StatesURL joins baseURL with the states path and the bounding-box query.
func (b Bounds) StatesURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + StatesPath)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	u.RawQuery = b.QueryParams().Encode()
	return u.String(), nil
}

func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
