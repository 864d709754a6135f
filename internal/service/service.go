// Package service owns the live aircraft collection and keeps it fresh.
//
// All state lives in one Service value and is only changed through its
// methods. Network fetches run without holding the state lock, so readers
// and ToggleDetailVisibility stay responsive while a refresh is in flight.
// At most one fetch and one auto-refresh cycle exist at a time; starting a
// new one cancels the previous one, and a cancelled fetch never installs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unklstewy/opensky-utah/internal/cache"
	"github.com/unklstewy/opensky-utah/internal/observability"
	"github.com/unklstewy/opensky-utah/pkg/opensky"
)

// DefaultRefreshInterval is the auto-refresh period.
const DefaultRefreshInterval = 30 * time.Second

// NoNetworkMessage is shown when a manual refresh is attempted offline.
const NoNetworkMessage = "No network connection available"

// Fetcher returns the raw body of one states request.
type Fetcher interface {
	FetchStates(ctx context.Context) ([]byte, error)
}

// ConnectivityChecker reports the last observed reachability without probing.
type ConnectivityChecker interface {
	CheckConnection() bool
}

// Options configures a Service. Fetcher, Cache and Connectivity are required.
type Options struct {
	Fetcher      Fetcher
	Cache        cache.Store
	Connectivity ConnectivityChecker

	// SamplePayload is decoded when there is no usable cache entry
	SamplePayload []byte

	// Interval between automatic refreshes (default: DefaultRefreshInterval)
	Interval time.Duration

	Logger *slog.Logger

	// Now overrides the clock used for last-fetch times
	Now func() time.Time
}

// Status is a consistent read-only view for presentation.
type Status struct {
	Aircraft     []opensky.AircraftState `json:"aircraft"`
	IsLoading    bool                    `json:"is_loading"`
	IsOffline    bool                    `json:"is_offline"`
	LastFetch    *time.Time              `json:"last_fetch,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	DataSource   DataSource              `json:"data_source"`
}

// Service is the refresh orchestrator.
type Service struct {
	fetcher      Fetcher
	cache        cache.Store
	connectivity ConnectivityChecker
	sample       []byte
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu            sync.Mutex
	states        []opensky.AircraftState
	isLoading     bool
	isOffline     bool
	lastFetch     time.Time
	errorMessage  string
	source        DataSource
	refreshGen    uint64
	refreshCancel context.CancelFunc

	// saveMu orders cache writes so an older fetch cannot overwrite a newer one.
	saveMu sync.Mutex

	autoMu       sync.Mutex
	autoCancel   context.CancelFunc
	autoDone     chan struct{}
	activeCycles atomic.Int32
}

// New creates a Service with an empty collection.
func New(opts Options) (*Service, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("service: fetcher is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("service: cache store is required")
	}
	if opts.Connectivity == nil {
		return nil, errors.New("service: connectivity checker is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		fetcher:      opts.Fetcher,
		cache:        opts.Cache,
		connectivity: opts.Connectivity,
		sample:       opts.SamplePayload,
		interval:     opts.Interval,
		logger:       opts.Logger.With("component", "service"),
		now:          opts.Now,
		states:       []opensky.AircraftState{},
	}, nil
}

// LoadInitialData installs the cached snapshot, or the bundled sample when
// there is none, then performs one network refresh if the network is up.
func (s *Service) LoadInitialData(ctx context.Context) {
	if entry, ok := s.cache.Load(ctx); ok && s.installPayload(entry.Payload, SourceCache, entry.Timestamp) {
		s.logger.Info("loaded cached snapshot", "timestamp", entry.Timestamp)
	} else if s.installPayload(s.sample, SourceSample, time.Time{}) {
		s.logger.Info("loaded sample data")
	}

	connected := s.connectivity.CheckConnection()
	s.setOffline(!connected)
	if connected {
		s.refreshFromNetwork(ctx)
	}
}

// Refresh performs one network refresh and returns when it has finished.
// Offline, it only sets the error message.
func (s *Service) Refresh(ctx context.Context) {
	if !s.connectivity.CheckConnection() {
		s.mu.Lock()
		s.isOffline = true
		s.errorMessage = NoNetworkMessage
		s.mu.Unlock()
		observability.FetchesTotal.WithLabelValues(observability.ResultOffline).Inc()
		return
	}

	s.setOffline(false)
	s.refreshFromNetwork(ctx)
}

// StartAutoRefresh begins refreshing every interval, replacing any cycle
// already running. The cycle ends when ctx is done or StopAutoRefresh is called.
func (s *Service) StartAutoRefresh(ctx context.Context) {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()

	s.stopAutoRefreshLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.autoCancel, s.autoDone = cancel, done

	s.activeCycles.Add(1)
	go s.autoRefresh(ctx, done)
}

// StopAutoRefresh cancels the running cycle, if any, and waits for it to exit.
func (s *Service) StopAutoRefresh() {
	s.autoMu.Lock()
	defer s.autoMu.Unlock()
	s.stopAutoRefreshLocked()
}

func (s *Service) stopAutoRefreshLocked() {
	if s.autoCancel == nil {
		return
	}
	s.autoCancel()
	<-s.autoDone
	s.autoCancel, s.autoDone = nil, nil
}

func (s *Service) autoRefresh(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.activeCycles.Add(-1)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		connected := s.connectivity.CheckConnection()
		s.setOffline(!connected)
		if connected {
			s.refreshFromNetwork(ctx)
		}
		timer.Reset(s.interval)
	}
}

// Close stops auto-refresh and cancels any in-flight fetch.
func (s *Service) Close() {
	s.StopAutoRefresh()

	s.mu.Lock()
	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	s.mu.Unlock()
}

// refreshFromNetwork fetches, decodes and installs one snapshot. Starting it
// cancels the fetch already in flight; a fetch whose generation is no longer
// current leaves every field alone.
func (s *Service) refreshFromNetwork(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	s.refreshGen++
	gen := s.refreshGen
	s.refreshCancel = cancel
	s.isLoading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.refreshGen == gen {
			s.isLoading = false
			s.refreshCancel = nil
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	body, err := s.fetcher.FetchStates(ctx)
	observability.ObserveFetchLatency(start)
	if ctx.Err() != nil {
		observability.FetchesTotal.WithLabelValues(observability.ResultCancelled).Inc()
		s.logger.Debug("refresh cancelled", "generation", gen)
		return
	}
	if err != nil {
		s.fail(gen, err)
		return
	}

	snap, err := opensky.DecodeSnapshot(body)
	if err != nil {
		s.fail(gen, err)
		return
	}
	if snap.Empty() {
		observability.FetchesTotal.WithLabelValues(observability.ResultEmpty).Inc()
		s.logger.Info("ignoring empty snapshot")
		return
	}

	s.mu.Lock()
	if s.refreshGen != gen || ctx.Err() != nil {
		s.mu.Unlock()
		observability.FetchesTotal.WithLabelValues(observability.ResultCancelled).Inc()
		return
	}
	s.install(snap.States, SourceNetwork, s.now())
	s.errorMessage = ""
	s.mu.Unlock()

	observability.FetchesTotal.WithLabelValues(observability.ResultOK).Inc()
	s.logger.Info("refreshed from network", "aircraft", len(snap.States))

	s.saveToCache(context.WithoutCancel(ctx), gen, body)
}

// saveToCache persists body unless a newer fetch has started since. Failures
// are logged and counted only; the fresh data is already on screen.
func (s *Service) saveToCache(ctx context.Context, gen uint64, body []byte) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	current := s.refreshGen == gen
	s.mu.Unlock()
	if !current {
		return
	}

	if err := s.cache.Save(ctx, body); err != nil {
		observability.CacheWriteErrors.Inc()
		s.logger.Warn("failed to save cache", "error", err)
	}
}

// fail records err as the user-visible message if gen is still current.
func (s *Service) fail(gen uint64, err error) {
	result := observability.ResultTransport
	var de *opensky.DecodeError
	if errors.As(err, &de) {
		result = observability.ResultDecode
	} else if _, ok := opensky.IsStatusError(err); ok {
		result = observability.ResultStatus
	}
	observability.FetchesTotal.WithLabelValues(result).Inc()
	s.logger.Warn("refresh failed", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshGen == gen {
		s.errorMessage = userMessage(err)
	}
}

func userMessage(err error) string {
	var de *opensky.DecodeError
	var te *opensky.TransportError
	switch {
	case errors.As(err, &de):
		return "Unable to read aircraft data"
	case errors.As(err, &te):
		return fmt.Sprintf("Unable to reach OpenSky: %v", te.Err)
	}
	if se, ok := opensky.IsStatusError(err); ok {
		return fmt.Sprintf("Server returned status %d", se.StatusCode)
	}
	return fmt.Sprintf("Refresh failed: %v", err)
}

// installPayload decodes payload and installs it if it has any aircraft.
func (s *Service) installPayload(payload []byte, source DataSource, fetchedAt time.Time) bool {
	if len(payload) == 0 {
		return false
	}
	snap, err := opensky.DecodeSnapshot(payload)
	if err != nil {
		s.logger.Warn("discarding undecodable snapshot", "source", source, "error", err)
		return false
	}
	if snap.Empty() {
		return false
	}

	s.mu.Lock()
	s.install(snap.States, source, fetchedAt)
	s.mu.Unlock()
	return true
}

// install replaces the live collection. Callers hold s.mu.
func (s *Service) install(states []opensky.AircraftState, source DataSource, fetchedAt time.Time) {
	s.states = reconcile(s.states, states)
	s.source = source
	s.lastFetch = fetchedAt

	located := 0
	for _, a := range s.states {
		if a.HasPosition() {
			located++
		}
	}
	observability.AircraftTracked.Set(float64(len(s.states)))
	observability.AircraftLocated.Set(float64(located))
	observability.SnapshotsInstalled.WithLabelValues(source.String()).Inc()
}

func (s *Service) setOffline(offline bool) {
	s.mu.Lock()
	s.isOffline = offline
	s.mu.Unlock()
}

// ToggleDetailVisibility flips DetailsVisible for icao24, located or not,
// and returns the new value. found is false when no record matches.
func (s *Service) ToggleDetailVisibility(icao24 string) (visible, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.states {
		if s.states[i].ICAO24 == icao24 {
			s.states[i].DetailsVisible = !s.states[i].DetailsVisible
			return s.states[i].DetailsVisible, true
		}
	}
	return false, false
}

// LocatedAircraftStates returns a copy of the aircraft that have both
// latitude and longitude.
func (s *Service) LocatedAircraftStates() []opensky.AircraftState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locatedLocked()
}

func (s *Service) locatedLocked() []opensky.AircraftState {
	out := make([]opensky.AircraftState, 0, len(s.states))
	for _, a := range s.states {
		if a.HasPosition() {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

func (s *Service) IsOffline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOffline
}

// LastFetchTime returns when the displayed data was fetched. ok is false for
// sample data and before anything is loaded.
func (s *Service) LastFetchTime() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetch, !s.lastFetch.IsZero()
}

func (s *Service) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMessage
}

// ClearError dismisses the current message.
func (s *Service) ClearError() {
	s.mu.Lock()
	s.errorMessage = ""
	s.mu.Unlock()
}

func (s *Service) DataSource() DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Status returns every presentation field read under one lock.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Aircraft:     s.locatedLocked(),
		IsLoading:    s.isLoading,
		IsOffline:    s.isOffline,
		ErrorMessage: s.errorMessage,
		DataSource:   s.source,
	}
	if !s.lastFetch.IsZero() {
		t := s.lastFetch
		st.LastFetch = &t
	}
	return st
}
