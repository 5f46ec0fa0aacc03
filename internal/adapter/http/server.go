// Package http serves the monitor's health probes, metrics and the JSON API
// behind the dashboard.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresher schedules a predict-then-derive pass after session inputs change.
type Refresher interface {
	Trigger()
}

// Briefer speaks an alert synchronously.
type Briefer interface {
	Brief(ctx context.Context, a domain.Alert) error
}

// Server exposes health, readiness, metrics and the dashboard API.
type Server struct {
	httpServer *http.Server
	session    *pipeline.Session
	refresher  Refresher
	briefer    Briefer
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with probe routes and the /api/v1 surface.
func NewServer(addr string, session *pipeline.Session, refresher Refresher, briefer Briefer, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     r,
			ReadTimeout: 10 * time.Second,
			// Briefings are synthesized inside the request.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session:   session,
		refresher: refresher,
		briefer:   briefer,
		validate:  validator.New(),
		logger:    logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cities", s.handleCities)
		r.Get("/weather", s.handleWeather)
		r.Get("/session", s.handleSession)
		r.Put("/session/city", s.handleSelectCity)
		r.Put("/session/simulation", s.handleSimulation)
		r.Get("/prediction", s.handlePrediction)
		r.Get("/alerts", s.handleAlerts)
		r.Post("/alerts/{id}/briefing", s.handleBriefing)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Cities())
}

func (s *Server) handleWeather(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Weather())
}

type sessionResponse struct {
	ID         string                      `json:"id"`
	City       domain.City                 `json:"city"`
	Simulation domain.SimulationParameters `json:"simulation"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:         s.session.ID,
		City:       s.session.City(),
		Simulation: s.session.Simulation(),
	})
}

type selectCityRequest struct {
	CityID string `json:"city_id" validate:"required"`
}

func (s *Server) handleSelectCity(w http.ResponseWriter, r *http.Request) {
	var req selectCityRequest
	if !s.decode(w, r, &req) {
		return
	}
	city, err := s.session.SelectCity(req.CityID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Info("city selected", "city", city.Name, "session_id", s.session.ID)
	s.refresher.Trigger()
	writeJSON(w, http.StatusOK, city)
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulationParameters
	if !s.decode(w, r, &req) {
		return
	}
	s.session.SetSimulation(req)
	s.logger.Info("simulation updated",
		"enabled", req.Enabled,
		"rainfall_delta", req.RainfallDelta,
		"temperature_delta", req.TemperatureDelta,
	)
	s.refresher.Trigger()
	writeJSON(w, http.StatusOK, req)
}

type predictionResponse struct {
	CityID        string                 `json:"city_id"`
	Assessment    *domain.RiskAssessment `json:"assessment"`
	SectorImpacts []domain.SectorImpact  `json:"sector_impacts"`
}

func (s *Server) handlePrediction(w http.ResponseWriter, _ *http.Request) {
	cityID, a := s.session.Prediction()
	if a == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{
		CityID:        cityID,
		Assessment:    a,
		SectorImpacts: domain.SectorImpacts(a),
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.session.Engine().Alerts()
	if r.URL.Query().Get("active") == "true" {
		active := alerts[:0]
		for _, a := range alerts {
			if a.Active {
				active = append(active, a)
			}
		}
		alerts = active
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	alert, ok := s.session.Engine().Alert(id)
	if !ok {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	err := s.briefer.Brief(r.Context(), alert)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "spoken", "alert_id": id})
	case errors.Is(err, pipeline.ErrBriefingInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, "speech synthesis failed")
	}
}

// decode reads a JSON body into v and validates it, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
