package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/service"
	"github.com/kjstillabower/cityweather/internal/store"
	"github.com/kjstillabower/cityweather/internal/validation"
)

// WeatherService is the subset of service.WeatherService the handlers use.
type WeatherService interface {
	Search(ctx context.Context, city string) (*models.SearchResult, error)
	SearchByCoords(ctx context.Context, lat, lon float64) (*models.SearchResult, error)
	AirQuality(ctx context.Context, lat, lon float64) (*models.AirQuality, error)
	Counties() []models.County
	CountyForecast(ctx context.Context, code string) (*models.CountyForecast, error)
	Dashboard(ctx context.Context, cities []string) []models.WeatherSnapshot
	InvalidateUnits(ctx context.Context)
	ValidateAPIKey(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Favorites is the saved-city store.
type Favorites interface {
	Save(ctx context.Context, userID uint, city string) (store.Outcome, error)
	Remove(ctx context.Context, userID uint, city string) (store.Outcome, error)
	IsSaved(ctx context.Context, userID uint, city string) (bool, error)
	List(ctx context.Context, userID uint, page, perPage int) (store.Page, error)
}

// History is the per-user search log.
type History interface {
	Record(ctx context.Context, userID uint, city string) error
	Recent(ctx context.Context, userID uint, limit int) ([]store.SearchHistory, error)
}

// Options configures presentation defaults.
type Options struct {
	PageSize     int
	HistoryLimit int
	Health       *HealthConfig
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather   WeatherService
	favorites Favorites
	history   History
	logger    *zap.Logger
	opts      Options

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(weather WeatherService, favorites Favorites, history History, logger *zap.Logger, opts Options) *Handler {
	if opts.PageSize <= 0 {
		opts.PageSize = 6
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		weather:   weather,
		favorites: favorites,
		history:   history,
		logger:    logger,
		opts:      opts,
	}
}

// SearchWeather handles GET /weather/search?city=.
func (h *Handler) SearchWeather(w http.ResponseWriter, r *http.Request) {
	city, err := validation.ValidateCity(r.URL.Query().Get("city"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}
	ctx := r.Context()
	result, err := h.weather.Search(ctx, city)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	observability.RecordWeatherSearch(city)

	if user, ok := UserFromContext(ctx); ok {
		result.Saved = h.isSaved(ctx, user.ID, city)
		if err := h.history.Record(ctx, user.ID, city); err != nil {
			h.log(ctx).Warn("search history not recorded", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchByCoords handles GET /weather/coords?lat=&lon=.
func (h *Handler) SearchByCoords(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := validation.ParseCoordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	ctx := r.Context()
	result, err := h.weather.SearchByCoords(ctx, lat, lon)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if user, ok := UserFromContext(ctx); ok && result.Current != nil {
		result.Saved = h.isSaved(ctx, user.ID, result.Current.City)
	}
	writeJSON(w, http.StatusOK, result)
}

// GetAirQuality handles GET /weather/air?lat=&lon=.
func (h *Handler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := validation.ParseCoordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	aq, err := h.weather.AirQuality(r.Context(), lat, lon)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aq)
}

// SetUnits handles GET|POST /set_units/{unit}: stores the preference in a
// cookie and drops cached current conditions.
func (h *Handler) SetUnits(w http.ResponseWriter, r *http.Request) {
	units, ok := models.ParseUnits(mux.Vars(r)["unit"])
	if !ok {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNITS", "unit must be metric or imperial")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     unitsCookie,
		Value:    string(units),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.weather.InvalidateUnits(r.Context())
	h.log(r.Context()).Debug("unit preference changed", zap.String("units", string(units)))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"units":           units,
		"temperatureUnit": units.TemperatureSymbol(),
		"windSpeedUnit":   units.WindSpeedUnit(),
	})
}

// ListCounties handles GET /taiwan/cities.
func (h *Handler) ListCounties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.weather.Counties(),
	})
}

// GetCountyWeather handles GET /taiwan/weather/{code}.
func (h *Handler) GetCountyWeather(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])
	forecast, err := h.weather.CountyForecast(r.Context(), code)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "查無資料",
			"message": "無法取得該縣市天氣資料",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    forecast,
	})
}

func (h *Handler) isSaved(ctx context.Context, userID uint, city string) bool {
	saved, err := h.favorites.IsSaved(ctx, userID, city)
	if err != nil {
		h.log(ctx).Warn("saved-city lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	return saved
}

func (h *Handler) log(ctx context.Context) *zap.Logger {
	return observability.LoggerFromContext(ctx, h.logger)
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps service errors to responses. The service has
// already logged the upstream cause.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCoordinates):
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
	case errors.Is(err, service.ErrNoData):
		writeError(w, r, http.StatusNotFound, "NO_DATA", "No weather data available for this location")
	default:
		h.log(r.Context()).Error("unexpected service error", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	}
}
