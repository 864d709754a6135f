// Package opensky decodes and fetches OpenSky Network state vectors.
//
// The OpenSky REST API returns each aircraft as a positional JSON array rather
// than an object. See https://openskynetwork.github.io/opensky-api/rest.html
// for the field order; DecodeSnapshot maps it onto AircraftState.
package opensky

import (
	"fmt"
	"strings"
)

// PositionSource identifies how an aircraft position was obtained.
type PositionSource int

const (
	PositionSourceADSB    PositionSource = 0
	PositionSourceASTERIX PositionSource = 1
	PositionSourceMLAT    PositionSource = 2
	PositionSourceFLARM   PositionSource = 3
)

// PositionSourceFromCode converts a provider code. The provider occasionally
// emits codes outside 0..3; those map to ADS-B.
func PositionSourceFromCode(code int) PositionSource {
	switch PositionSource(code) {
	case PositionSourceADSB, PositionSourceASTERIX, PositionSourceMLAT, PositionSourceFLARM:
		return PositionSource(code)
	default:
		return PositionSourceADSB
	}
}

func (p PositionSource) String() string {
	switch p {
	case PositionSourceADSB:
		return "ADS-B"
	case PositionSourceASTERIX:
		return "ASTERIX"
	case PositionSourceMLAT:
		return "MLAT"
	case PositionSourceFLARM:
		return "FLARM"
	default:
		return fmt.Sprintf("PositionSource(%d)", int(p))
	}
}

// Status is a coarse classification used to pick a map marker.
type Status int

const (
	StatusStandard Status = iota
	StatusAscending
	StatusDescending
	StatusOnGround
)

func (s Status) String() string {
	switch s {
	case StatusAscending:
		return "ascending"
	case StatusDescending:
		return "descending"
	case StatusOnGround:
		return "on-ground"
	default:
		return "standard"
	}
}

// Unit conversions for the derived display values.
const (
	FeetPerMeter                  = 3.280839895
	MilesPerHourPerMeterPerSecond = FeetPerMeter * 3600 / 5280
)

// AircraftState is one tracked aircraft from a snapshot.
// Pointer fields are nil when the provider had no value this cycle.
type AircraftState struct {
	// ICAO24 is the hex transponder address and the sole identity key
	ICAO24 string `json:"icao24"`

	// Callsign is the 8 character callsign, often space padded
	Callsign *string `json:"callsign,omitempty"`

	// OriginCountry is inferred by the provider from the ICAO24 address
	OriginCountry string `json:"origin_country"`

	// TimePosition is the Unix time of the last position update
	TimePosition *int64 `json:"time_position,omitempty"`

	// LastContact is the Unix time of the last message of any kind
	LastContact int64 `json:"last_contact"`

	// Longitude in decimal degrees (WGS-84)
	Longitude *float64 `json:"longitude,omitempty"`

	// Latitude in decimal degrees (WGS-84)
	Latitude *float64 `json:"latitude,omitempty"`

	// BaroAltitude is barometric altitude in meters
	BaroAltitude *float64 `json:"baro_altitude,omitempty"`

	OnGround bool `json:"on_ground"`

	// Velocity is ground speed in meters per second
	Velocity *float64 `json:"velocity,omitempty"`

	// TrueTrack is the track angle in degrees clockwise from north
	TrueTrack *float64 `json:"true_track,omitempty"`

	// VerticalRate in meters per second, positive when climbing
	VerticalRate *float64 `json:"vertical_rate,omitempty"`

	// Sensors lists the receivers that contributed; nil when absent
	Sensors []int `json:"sensors,omitempty"`

	// GeoAltitude is geometric altitude in meters
	GeoAltitude *float64 `json:"geo_altitude,omitempty"`

	Squawk *string `json:"squawk,omitempty"`

	SpecialPurposeIndicator bool `json:"spi"`

	PositionSource PositionSource `json:"position_source"`

	// DetailsVisible is UI state, carried across snapshots by ICAO24.
	// It never comes from the provider.
	DetailsVisible bool `json:"details_visible"`
}

// HasPosition reports whether both latitude and longitude are known.
func (a AircraftState) HasPosition() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// Flight returns the trimmed callsign, or "ICAO <icao24>" when there is none.
func (a AircraftState) Flight() string {
	if a.Callsign != nil {
		if sign := strings.TrimSpace(*a.Callsign); sign != "" {
			return sign
		}
	}
	return "ICAO " + a.ICAO24
}

// AltitudeFeet prefers barometric altitude, then geometric, then zero.
func (a AircraftState) AltitudeFeet() float64 {
	switch {
	case a.BaroAltitude != nil:
		return *a.BaroAltitude * FeetPerMeter
	case a.GeoAltitude != nil:
		return *a.GeoAltitude * FeetPerMeter
	default:
		return 0
	}
}

func (a AircraftState) AscentRateFeetPerSecond() float64 {
	return valueOrZero(a.VerticalRate) * FeetPerMeter
}

func (a AircraftState) SpeedMPH() float64 {
	return valueOrZero(a.Velocity) * MilesPerHourPerMeterPerSecond
}

// Heading is the marker rotation in degrees: true track offset so that a
// right-pointing icon faces the direction of travel.
func (a AircraftState) Heading() float64 {
	return valueOrZero(a.TrueTrack) - 90
}

// Status classifies the aircraft. Vertical movement wins over on-ground.
func (a AircraftState) Status() Status {
	rate := valueOrZero(a.VerticalRate)
	switch {
	case rate > 0:
		return StatusAscending
	case rate < 0:
		return StatusDescending
	case a.OnGround:
		return StatusOnGround
	default:
		return StatusStandard
	}
}

// Snapshot is one decoded batch of state vectors.
type Snapshot struct {
	// Time is the server time the states are associated with, if sent
	Time *int64

	States []AircraftState
}

// Empty reports whether the snapshot carries no aircraft.
func (s Snapshot) Empty() bool {
	return len(s.States) == 0
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
