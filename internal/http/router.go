package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

// RouterConfig carries the middleware settings for NewRouter.
type RouterConfig struct {
	Logger         *zap.Logger
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
	DefaultUnits   models.Units
	Auth           Authenticator
	// Traffic receives rate-limit denials.
	Traffic *traffic.Tracker
	// InFlight counts requests for shutdown draining.
	InFlight *InFlightTracker
}

// NewRouter registers every endpoint. Provider-backed routes sit behind the
// rate limiter and request timeout.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware(cfg.InFlight))
	router.Use(UnitsMiddleware(cfg.DefaultUnits))
	router.Use(BasicAuthMiddleware(cfg.Auth))

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/set_units/{unit}", h.SetUnits).Methods(http.MethodGet, http.MethodPost)

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(RateLimitMiddleware(cfg.Limiter, cfg.Traffic))
	weatherRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/search", h.SearchWeather).Methods(http.MethodGet)
	weatherRouter.HandleFunc("/coords", h.SearchByCoords).Methods(http.MethodGet)
	weatherRouter.HandleFunc("/air", h.GetAirQuality).Methods(http.MethodGet)

	taiwanRouter := router.PathPrefix("/taiwan").Subrouter()
	taiwanRouter.Use(RateLimitMiddleware(cfg.Limiter, cfg.Traffic))
	taiwanRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	taiwanRouter.HandleFunc("/cities", h.ListCounties).Methods(http.MethodGet)
	taiwanRouter.HandleFunc("/weather/{code}", h.GetCountyWeather).Methods(http.MethodGet)

	favoritesRouter := router.PathPrefix("/favorites").Subrouter()
	favoritesRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	favoritesRouter.HandleFunc("", h.GetDashboard).Methods(http.MethodGet)
	favoritesRouter.HandleFunc("/{city}", h.SaveFavorite).Methods(http.MethodPost)
	favoritesRouter.HandleFunc("/{city}", h.RemoveFavorite).Methods(http.MethodDelete)

	router.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	return router
}
