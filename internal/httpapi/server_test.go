package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/opensky-utah/internal/service"
	"github.com/unklstewy/opensky-utah/pkg/opensky"
)

type fakeTracker struct {
	mu        sync.Mutex
	states    []opensky.AircraftState
	refreshes int
	cleared   bool
	message   string
}

func (f *fakeTracker) LocatedAircraftStates() []opensky.AircraftState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locatedLocked()
}

func (f *fakeTracker) locatedLocked() []opensky.AircraftState {
	var out []opensky.AircraftState
	for _, a := range f.states {
		if a.HasPosition() {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeTracker) Status() service.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	fetched := time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)
	return service.Status{
		Aircraft:     f.locatedLocked(),
		LastFetch:    &fetched,
		ErrorMessage: f.message,
		DataSource:   service.SourceNetwork,
	}
}

func (f *fakeTracker) Refresh(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.message = "Server returned status 503"
}

func (f *fakeTracker) ToggleDetailVisibility(icao24 string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.states {
		if f.states[i].ICAO24 == icao24 {
			f.states[i].DetailsVisible = !f.states[i].DetailsVisible
			return f.states[i].DetailsVisible, true
		}
	}
	return false, false
}

func (f *fakeTracker) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.message = ""
}

func ptr[T any](v T) *T { return &v }

func newTracker() *fakeTracker {
	return &fakeTracker{states: []opensky.AircraftState{
		{
			ICAO24:       "a1b2c3",
			Callsign:     ptr("SKW123  "),
			Latitude:     ptr(40.76),
			Longitude:    ptr(-111.89),
			BaroAltitude: ptr(1000.0),
			Velocity:     ptr(100.0),
			TrueTrack:    ptr(180.0),
			VerticalRate: ptr(2.0),
		},
		{ICAO24: "d4e5f6", Latitude: ptr(38.5), Longitude: ptr(-112.1)},
	}}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetAircraft(t *testing.T) {
	srv := NewServer(newTracker(), nil, nil, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/aircraft")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Aircraft []map[string]interface{} `json:"aircraft"`
		Count    int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Aircraft, 2)

	first := body.Aircraft[0]
	assert.Equal(t, "a1b2c3", first["icao24"])
	assert.Equal(t, "SKW123", first["flight"])
	assert.Equal(t, "ascending", first["status"])
	assert.Equal(t, 90.0, first["heading"])
	assert.InDelta(t, 3280.84, first["altitude_feet"], 0.01)

	assert.Equal(t, "ICAO d4e5f6", body.Aircraft[1]["flight"])
}

func TestGetAircraftByICAO(t *testing.T) {
	srv := NewServer(newTracker(), nil, nil, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/aircraft/d4e5f6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"icao24":"d4e5f6"`)

	rec = do(t, srv, http.MethodGet, "/api/v1/aircraft/ffffff")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleDetails(t *testing.T) {
	tracker := newTracker()
	srv := NewServer(tracker, nil, nil, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/aircraft/a1b2c3/toggle")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["details_visible"])
	assert.True(t, tracker.LocatedAircraftStates()[0].DetailsVisible)

	rec = do(t, srv, http.MethodPost, "/api/v1/aircraft/a1b2c3/toggle")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["details_visible"])

	rec = do(t, srv, http.MethodPost, "/api/v1/aircraft/nope/toggle")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleDetailsWithoutPosition(t *testing.T) {
	tracker := newTracker()
	tracker.states = append(tracker.states, opensky.AircraftState{ICAO24: "0a0b0c"})
	srv := NewServer(tracker, nil, nil, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/aircraft/0a0b0c/toggle")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0a0b0c", body["icao24"])
	assert.Equal(t, true, body["details_visible"])
}

func TestRefreshReturnsStatus(t *testing.T) {
	tracker := newTracker()
	srv := NewServer(tracker, nil, nil, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, tracker.refreshes)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Server returned status 503", body["error_message"])
	assert.Equal(t, "network", body["data_source"])
	assert.Equal(t, "2025-11-18T09:00:00Z", body["last_fetch"])
}

func TestGetStatus(t *testing.T) {
	srv := NewServer(newTracker(), nil, nil, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["is_loading"])
	assert.Len(t, body["aircraft"], 2)
	_, hasError := body["error_message"]
	assert.False(t, hasError)
}

func TestClearError(t *testing.T) {
	tracker := newTracker()
	srv := NewServer(tracker, nil, nil, nil)

	rec := do(t, srv, http.MethodDelete, "/api/v1/error")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, tracker.cleared)
}

func TestMetricsAndHealth(t *testing.T) {
	srv := NewServer(newTracker(), nil, nil, nil)

	rec := do(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "utahsky_aircraft_tracked")
}

func TestHealthUsesCheck(t *testing.T) {
	down := errors.New("ping: connection refused")
	srv := NewServer(newTracker(), func(context.Context) error { return down }, nil, nil)

	rec := do(t, srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestUnknownRoute(t *testing.T) {
	srv := NewServer(newTracker(), nil, nil, nil)
	rec := do(t, srv, http.MethodGet, "/api/v1/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSAllowedOrigins(t *testing.T) {
	srv := NewServer(newTracker(), nil, []string{"http://localhost:3000"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
