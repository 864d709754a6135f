package opensky

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Positions of each field inside a state vector array.
const (
	fieldICAO24 = iota
	fieldCallsign
	fieldOriginCountry
	fieldTimePosition
	fieldLastContact
	fieldLongitude
	fieldLatitude
	fieldBaroAltitude
	fieldOnGround
	fieldVelocity
	fieldTrueTrack
	fieldVerticalRate
	fieldSensors
	fieldGeoAltitude
	fieldSquawk
	fieldSPI
	fieldPositionSource
)

var fieldNames = [...]string{
	fieldICAO24:         "icao24",
	fieldCallsign:       "callsign",
	fieldOriginCountry:  "origin_country",
	fieldTimePosition:   "time_position",
	fieldLastContact:    "last_contact",
	fieldLongitude:      "longitude",
	fieldLatitude:       "latitude",
	fieldBaroAltitude:   "baro_altitude",
	fieldOnGround:       "on_ground",
	fieldVelocity:       "velocity",
	fieldTrueTrack:      "true_track",
	fieldVerticalRate:   "vertical_rate",
	fieldSensors:        "sensors",
	fieldGeoAltitude:    "geo_altitude",
	fieldSquawk:         "squawk",
	fieldSPI:            "spi",
	fieldPositionSource: "position_source",
}

// ErrMissingField is wrapped by DecodeError when a required field is absent or null.
var ErrMissingField = errors.New("required field missing")

// ErrEmptyICAO24 is wrapped by DecodeError when a state has a blank identity.
var ErrEmptyICAO24 = errors.New("icao24 is empty")

type response struct {
	Time   *int64            `json:"time"`
	States []json.RawMessage `json:"states"`
}

// DecodeSnapshot parses a /states/all response body.
//
// A missing or null "states" key yields an empty snapshot. Any state with a
// missing required field fails the whole snapshot rather than zero-filling it.
// DecodeSnapshot is pure and safe to call from any goroutine.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Snapshot{}, &DecodeError{Index: -1, Err: err}
	}

	states := make([]AircraftState, 0, len(resp.States))
	for i, raw := range resp.States {
		state, err := decodeState(i, raw)
		if err != nil {
			return Snapshot{}, err
		}
		states = append(states, state)
	}

	return Snapshot{Time: resp.Time, States: states}, nil
}

func decodeState(index int, raw json.RawMessage) (AircraftState, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return AircraftState{}, &DecodeError{Index: index, Err: err}
	}

	d := &fieldDecoder{index: index, fields: fields}
	var s AircraftState
	var positionSource int

	d.required(fieldICAO24, &s.ICAO24)
	s.Callsign = optional[string](d, fieldCallsign)
	d.required(fieldOriginCountry, &s.OriginCountry)
	s.TimePosition = optional[int64](d, fieldTimePosition)
	d.required(fieldLastContact, &s.LastContact)
	s.Longitude = optional[float64](d, fieldLongitude)
	s.Latitude = optional[float64](d, fieldLatitude)
	s.BaroAltitude = optional[float64](d, fieldBaroAltitude)
	d.required(fieldOnGround, &s.OnGround)
	s.Velocity = optional[float64](d, fieldVelocity)
	s.TrueTrack = optional[float64](d, fieldTrueTrack)
	s.VerticalRate = optional[float64](d, fieldVerticalRate)
	if sensors := optional[[]int](d, fieldSensors); sensors != nil {
		s.Sensors = *sensors
	}
	s.GeoAltitude = optional[float64](d, fieldGeoAltitude)
	s.Squawk = optional[string](d, fieldSquawk)
	d.required(fieldSPI, &s.SpecialPurposeIndicator)
	d.required(fieldPositionSource, &positionSource)

	if d.err != nil {
		return AircraftState{}, d.err
	}
	if s.ICAO24 == "" {
		return AircraftState{}, &DecodeError{Index: index, Field: fieldNames[fieldICAO24], Err: ErrEmptyICAO24}
	}
	s.PositionSource = PositionSourceFromCode(positionSource)

	return s, nil
}

// fieldDecoder reads positions from one state array and keeps the first error.
type fieldDecoder struct {
	index  int
	fields []json.RawMessage
	err    error
}

// raw returns nil for positions past the end of the array and for JSON null.
func (d *fieldDecoder) raw(pos int) json.RawMessage {
	if pos >= len(d.fields) {
		return nil
	}
	r := bytes.TrimSpace(d.fields[pos])
	if len(r) == 0 || bytes.Equal(r, []byte("null")) {
		return nil
	}
	return r
}

func (d *fieldDecoder) fail(pos int, err error) {
	d.err = &DecodeError{Index: d.index, Field: fieldNames[pos], Err: err}
}

func (d *fieldDecoder) required(pos int, v any) {
	if d.err != nil {
		return
	}
	r := d.raw(pos)
	if r == nil {
		d.fail(pos, ErrMissingField)
		return
	}
	if err := json.Unmarshal(r, v); err != nil {
		d.fail(pos, err)
	}
}

func optional[T any](d *fieldDecoder, pos int) *T {
	if d.err != nil {
		return nil
	}
	r := d.raw(pos)
	if r == nil {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(r, v); err != nil {
		d.fail(pos, err)
		return nil
	}
	return v
}
