// Package api exposes the forecast client, settings and location detection
// to the tray UI over a local HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tray-weather/datasource"
	"tray-weather/logger"
	"tray-weather/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrLocationNotSet is returned when a fetch is requested before the user
// saved or detected a location
var ErrLocationNotSet = errors.New("location not set")

// ForecastService is the forecast client surface the API serves
type ForecastService interface {
	FetchAndProcess(ctx context.Context, params models.RequestParameters) (*models.ViewModel, error)
	GetCachedView(ctx context.Context, timeFormat models.TimeFormat) models.CachedView
	ClearCache(ctx context.Context) error
	CacheStats() (hits, misses int)
}

// SettingsStore persists user settings
type SettingsStore interface {
	Get() models.Settings
	Set(settings models.Settings) models.SaveResult
}

// Server represents the API server
type Server struct {
	forecasts ForecastService
	settings  SettingsStore
	locations datasource.LocationSource
	server    *http.Server
	logger    logger.Logger
}

// NewServer creates a new API server listening on port
func NewServer(forecasts ForecastService, settings SettingsStore, locations datasource.LocationSource, port int, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		forecasts: forecasts,
		settings:  settings,
		locations: locations,
		logger:    log.WithField("component", "api"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealthCheck)

		r.Route("/weather", func(r chi.Router) {
			r.Get("/", s.handleGetCachedWeather)
			r.Post("/refresh", s.handleRefreshWeather)
			r.Delete("/cache", s.handleClearCache)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleSaveSettings)

		r.Post("/location/detect", s.handleDetectLocation)
	})

	return r
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start begins the API server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Infof("Starting API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.WithFields(map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Debugf("%s %s", r.Method, r.URL.Path)
	})
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.forecasts.CacheStats()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"cache": map[string]int{
			"hits":   hits,
			"misses": misses,
		},
	})
}

// handleGetCachedWeather serves the cached view without calling the provider
func (s *Server) handleGetCachedWeather(w http.ResponseWriter, r *http.Request) {
	timeFormat, ok := s.timeFormat(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.forecasts.GetCachedView(r.Context(), timeFormat))
}

// handleRefreshWeather fetches a fresh forecast for the saved location
func (s *Server) handleRefreshWeather(w http.ResponseWriter, r *http.Request) {
	timeFormat, ok := s.timeFormat(w, r)
	if !ok {
		return
	}

	settings := s.settings.Get()
	if !settings.HasLocation() {
		s.writeError(w, http.StatusPreconditionFailed, ErrLocationNotSet.Error())
		return
	}

	params := settings.RequestParameters()
	params.TimeFormat = timeFormat

	view, err := s.forecasts.FetchAndProcess(r.Context(), params)
	if err != nil {
		var providerErr *datasource.ProviderError
		if errors.As(err, &providerErr) {
			s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":  providerErr.Error(),
				"status": providerErr.StatusCode,
				"body":   providerErr.Body,
			})
			return
		}
		s.logger.Errorf("Failed to refresh weather: %v", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch forecast: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, view)
}

// handleClearCache drops the cached snapshot
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.forecasts.ClearCache(r.Context()); err != nil {
		s.logger.Errorf("Failed to clear cache: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.settings.Get())
}

// handleSaveSettings merges the request body over the stored settings.
// Fields left out keep their current value; a null coordinate clears it.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Get()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid settings: %v", err))
		return
	}

	result := s.settings.Set(settings)
	if !result.Success {
		s.writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleDetectLocation resolves the location from the public IP. With
// ?save=true the coordinates are also stored in the settings.
func (s *Server) handleDetectLocation(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Location detection is not configured")
		return
	}

	location, err := s.locations.DetectLocation(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if r.URL.Query().Get("save") == "true" {
		settings := s.settings.Get()
		settings.Latitude = &location.Latitude
		settings.Longitude = &location.Longitude
		if result := s.settings.Set(settings); !result.Success {
			s.writeError(w, http.StatusInternalServerError, result.Error)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, location)
}

// timeFormat reads ?timeFormat=, falling back to the saved preference
func (s *Server) timeFormat(w http.ResponseWriter, r *http.Request) (models.TimeFormat, bool) {
	switch tf := models.TimeFormat(r.URL.Query().Get("timeFormat")); tf {
	case models.TwelveHour, models.TwentyFourHour:
		return tf, true
	case "":
		return s.settings.Get().TimeFormat, true
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown timeFormat: %s", tf))
		return "", false
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debugf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
