package uiapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/awaistahir/skyplan/internal/metrics"
	"github.com/awaistahir/skyplan/internal/planner"
	"github.com/awaistahir/skyplan/internal/store"
	"github.com/awaistahir/skyplan/internal/weather"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by /api/status
const Version = "1.0.0"

// Forecaster fetches weather reports
type Forecaster interface {
	ForecastByCity(ctx context.Context, city string) (*weather.Report, error)
	ForecastByCoordinates(ctx context.Context, coords engine.Coordinates) (*weather.Report, error)
}

// Planner builds itineraries
type Planner interface {
	Plan(ctx context.Context, req planner.Request) (*engine.Itinerary, error)
}

type Server struct {
	store   *store.Store
	planner Planner
	weather Forecaster
}

func NewServer(st *store.Store, p Planner, wc Forecaster) *Server {
	return &Server{
		store:   st,
		planner: p,
		weather: wc,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser clients
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/weather", s.handleGetWeather)
		r.Post("/itinerary", s.handleItinerary)
		r.Post("/itinerary/city", s.handleCityItinerary)
		r.Get("/locations", s.handleListLocations)
		r.Post("/locations", s.handleCreateLocation)
		r.Delete("/locations/{id}", s.handleDeleteLocation)
		r.Get("/locations/{id}/itinerary", s.handleLocationItinerary)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handleGetWeather(w http.ResponseWriter, r *http.Request) {
	report, err := s.weather.ForecastByCity(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		log.Printf("weather request failed: %v", err)
		respondError(w, statusFor(err), publicMessage(err, "failed to fetch weather data"))
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// ItineraryRequest accepts either normalized forecast records or raw
// OpenWeatherMap list entries under weatherData.
type ItineraryRequest struct {
	ForecastRecords []engine.ForecastRecord `json:"forecastRecords"`
	WeatherData     []weather.ListEntry     `json:"weatherData"`
	Coordinates     *engine.Coordinates     `json:"coordinates"`
	Air             *engine.AirQuality      `json:"air,omitempty"`
	City            string                  `json:"city,omitempty"`
}

type itineraryResponse struct {
	Itinerary *engine.Itinerary `json:"itinerary"`
}

func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	var body ItineraryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			s.planFailed(w, err)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records := body.ForecastRecords
	if len(records) == 0 && len(body.WeatherData) > 0 {
		var err error
		if records, err = weather.Records(body.WeatherData); err != nil {
			s.planFailed(w, err)
			return
		}
	}

	s.plan(w, r, planner.Request{
		Records:     records,
		Coordinates: body.Coordinates,
		Air:         body.Air,
		City:        body.City,
	})
}

func (s *Server) handleCityItinerary(w http.ResponseWriter, r *http.Request) {
	var body struct {
		City string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.weather.ForecastByCity(r.Context(), body.City)
	if err != nil {
		s.planFailed(w, err)
		return
	}
	s.planReport(w, r, report)
}

func (s *Server) handleLocationItinerary(w http.ResponseWriter, r *http.Request) {
	loc, err := s.store.GetLocation(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("loading location: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load location")
		return
	}

	report, err := s.weather.ForecastByCoordinates(r.Context(), loc.Coordinates())
	if err != nil {
		s.planFailed(w, err)
		return
	}
	if report.City == "" {
		report.City = loc.Name
	}
	s.planReport(w, r, report)
}

func (s *Server) planReport(w http.ResponseWriter, r *http.Request, report *weather.Report) {
	coords := report.Coordinates
	s.plan(w, r, planner.Request{
		Records:     report.Records,
		Coordinates: &coords,
		Air:         report.Air,
		City:        report.City,
	})
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request, req planner.Request) {
	it, err := s.planner.Plan(r.Context(), req)
	if err != nil {
		s.planFailed(w, err)
		return
	}
	metrics.ItinerariesTotal.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusOK, itineraryResponse{Itinerary: it})
}

func (s *Server) planFailed(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		metrics.ItinerariesTotal.WithLabelValues("invalid").Inc()
	case http.StatusBadGateway:
		metrics.ItinerariesTotal.WithLabelValues("upstream").Inc()
	default:
		metrics.ItinerariesTotal.WithLabelValues("error").Inc()
	}
	log.Printf("itinerary failed: %v", err)
	respondError(w, status, publicMessage(err, "failed to generate itinerary"))
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.store.ListLocations()
	if err != nil {
		log.Printf("listing locations: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var loc engine.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	loc.ID = ""

	if err := s.store.SaveLocation(&loc); err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("saving location: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save location")
		return
	}

	respondJSON(w, http.StatusCreated, loc)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteLocation(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("deleting location: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to delete location")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, weather.ErrUpstream), errors.Is(err, weather.ErrNoAPIKey):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal error detail from clients
func publicMessage(err error, fallback string) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusBadGateway:
		if errors.Is(err, weather.ErrNoAPIKey) {
			return weather.ErrNoAPIKey.Error()
		}
		return weather.ErrUpstream.Error()
	default:
		return fallback
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
