// Package httpapi exposes the live aircraft view and its commands over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unklstewy/opensky-utah/internal/observability"
	"github.com/unklstewy/opensky-utah/internal/service"
	"github.com/unklstewy/opensky-utah/pkg/opensky"
)

// Tracker is the part of service.Service the API drives.
type Tracker interface {
	LocatedAircraftStates() []opensky.AircraftState
	Status() service.Status
	Refresh(ctx context.Context)
	ToggleDetailVisibility(icao24 string) (visible, found bool)
	ClearError()
}

// Server holds the router and its dependencies.
type Server struct {
	router         *chi.Mux
	tracker        Tracker
	health         observability.HealthCheck
	allowedOrigins []string
	logger         *slog.Logger
}

// NewServer builds the router. health backs /healthz and may be nil. Empty
// allowedOrigins permits any origin; a nil logger uses slog.Default().
func NewServer(tracker Tracker, health observability.HealthCheck, allowedOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s := &Server{
		router:         chi.NewRouter(),
		tracker:        tracker,
		health:         health,
		allowedOrigins: allowedOrigins,
		logger:         logger.With("component", "httpapi"),
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aircraft", s.handleGetAircraft)
		r.Get("/aircraft/{icao24}", s.handleGetAircraftByICAO)
		r.Post("/aircraft/{icao24}/toggle", s.handleToggleDetails)
		r.Get("/status", s.handleGetStatus)
		r.Post("/refresh", s.handleRefresh)
		r.Delete("/error", s.handleClearError)
	})

	metrics := observability.MetricsHandler(s.health)
	r.Handle("/metrics", metrics)
	r.Handle("/healthz", metrics)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// aircraftView adds the derived display values to a state.
type aircraftView struct {
	opensky.AircraftState
	Flight            string  `json:"flight"`
	Status            string  `json:"status"`
	AltitudeFeet      float64 `json:"altitude_feet"`
	AscentRateFeetSec float64 `json:"ascent_rate_feet_per_second"`
	SpeedMPH          float64 `json:"speed_mph"`
	Heading           float64 `json:"heading"`
}

func newAircraftView(a opensky.AircraftState) aircraftView {
	return aircraftView{
		AircraftState:     a,
		Flight:            a.Flight(),
		Status:            a.Status().String(),
		AltitudeFeet:      a.AltitudeFeet(),
		AscentRateFeetSec: a.AscentRateFeetPerSecond(),
		SpeedMPH:          a.SpeedMPH(),
		Heading:           a.Heading(),
	}
}

func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	states := s.tracker.LocatedAircraftStates()
	views := make([]aircraftView, len(states))
	for i, a := range states {
		views[i] = newAircraftView(a)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"aircraft": views,
		"count":    len(views),
	})
}

func (s *Server) handleGetAircraftByICAO(w http.ResponseWriter, r *http.Request) {
	icao := chi.URLParam(r, "icao24")
	for _, a := range s.tracker.LocatedAircraftStates() {
		if a.ICAO24 == icao {
			respondJSON(w, http.StatusOK, newAircraftView(a))
			return
		}
	}
	respondError(w, http.StatusNotFound, "aircraft not found")
}

func (s *Server) handleToggleDetails(w http.ResponseWriter, r *http.Request) {
	icao := chi.URLParam(r, "icao24")
	visible, found := s.tracker.ToggleDetailVisibility(icao)
	if !found {
		respondError(w, http.StatusNotFound, "aircraft not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"icao24":          icao,
		"details_visible": visible,
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.tracker.Status())
}

// handleRefresh runs one refresh to completion and reports the result.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.tracker.Refresh(r.Context())
	respondJSON(w, http.StatusOK, s.tracker.Status())
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.tracker.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
