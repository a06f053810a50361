package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kjstillabower/cityweather/internal/cache"
	"github.com/kjstillabower/cityweather/internal/client"
	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/normalize"
	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/validation"
)

var (
	// ErrNoData is returned for every upstream or normalization failure.
	// The underlying cause is logged, never surfaced.
	ErrNoData = errors.New("no weather data available")

	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

const (
	OpCurrentWeather  = "current_weather"
	OpCoordsWeather   = "coords_weather"
	OpForecast        = "forecast"
	OpCoordsForecast  = "coords_forecast"
	OpAirQuality      = "air_quality"
	OpNationalWeather = "cwa_weather"
)

type Options struct {
	WeatherTTL    time.Duration
	AirQualityTTL time.Duration
	Location      *time.Location
	Logger        *zap.Logger
}

// WeatherService memoizes gateway calls and normalizes their payloads.
type WeatherService struct {
	gateway  client.WeatherGateway
	national client.NationalGateway
	memo     *cache.Memo
	loc      *time.Location
	logger   *zap.Logger

	currentOp        cache.Operation
	coordsOp         cache.Operation
	forecastOp       cache.Operation
	coordsForecastOp cache.Operation
	airQualityOp     cache.Operation
	nationalOp       cache.Operation
}

// NewWeatherService wires the gateways to memo. national may be nil, in which
// case county lookups report ErrNoData.
func NewWeatherService(gateway client.WeatherGateway, national client.NationalGateway, memo *cache.Memo, opts Options) *WeatherService {
	if opts.WeatherTTL <= 0 {
		opts.WeatherTTL = 10 * time.Minute
	}
	if opts.AirQualityTTL <= 0 {
		opts.AirQualityTTL = time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &WeatherService{
		gateway:          gateway,
		national:         national,
		memo:             memo,
		loc:              opts.Location,
		logger:           opts.Logger,
		currentOp:        cache.Operation{Name: OpCurrentWeather, TTL: opts.WeatherTTL},
		coordsOp:         cache.Operation{Name: OpCoordsWeather, TTL: opts.WeatherTTL},
		forecastOp:       cache.Operation{Name: OpForecast, TTL: opts.WeatherTTL},
		coordsForecastOp: cache.Operation{Name: OpCoordsForecast, TTL: opts.WeatherTTL},
		airQualityOp:     cache.Operation{Name: OpAirQuality, TTL: opts.AirQualityTTL},
		nationalOp:       cache.Operation{Name: OpNationalWeather, TTL: opts.WeatherTTL},
	}
}

// Current returns normalized current conditions for a city.
func (s *WeatherService) Current(ctx context.Context, city string) (*models.WeatherSnapshot, error) {
	units := models.UnitsFromContext(ctx)
	snap, err := cache.Do(ctx, s.memo, s.currentOp, []string{city}, func(ctx context.Context) (*models.WeatherSnapshot, error) {
		payload, err := s.gateway.CurrentByCity(ctx, city, units)
		if err != nil {
			return nil, err
		}
		return required(normalize.Current(payload, units, s.loc))
	})
	if err != nil {
		return nil, s.noData(ctx, OpCurrentWeather, err, zap.String("city", city))
	}
	return snap, nil
}

// CurrentByCoords validates lat/lon before any upstream call.
func (s *WeatherService) CurrentByCoords(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	units := models.UnitsFromContext(ctx)
	snap, err := cache.Do(ctx, s.memo, s.coordsOp, coordArgs(lat, lon), func(ctx context.Context) (*models.WeatherSnapshot, error) {
		payload, err := s.gateway.CurrentByCoords(ctx, lat, lon, units)
		if err != nil {
			return nil, err
		}
		return required(normalize.Current(payload, units, s.loc))
	})
	if err != nil {
		return nil, s.noData(ctx, OpCoordsWeather, err, zap.Float64("lat", lat), zap.Float64("lon", lon))
	}
	return snap, nil
}

// Forecast returns the city forecast grouped by local date.
func (s *WeatherService) Forecast(ctx context.Context, city string) ([]models.ForecastBucket, error) {
	units := models.UnitsFromContext(ctx)
	buckets, err := cache.Do(ctx, s.memo, s.forecastOp, []string{city}, func(ctx context.Context) ([]models.ForecastBucket, error) {
		payload, err := s.gateway.ForecastByCity(ctx, city, units)
		if err != nil {
			return nil, err
		}
		return required(normalize.Forecast(payload, s.loc))
	})
	if err != nil {
		return nil, s.noData(ctx, OpForecast, err, zap.String("city", city))
	}
	return buckets, nil
}

func (s *WeatherService) ForecastByCoords(ctx context.Context, lat, lon float64) ([]models.ForecastBucket, error) {
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	units := models.UnitsFromContext(ctx)
	buckets, err := cache.Do(ctx, s.memo, s.coordsForecastOp, coordArgs(lat, lon), func(ctx context.Context) ([]models.ForecastBucket, error) {
		payload, err := s.gateway.ForecastByCoords(ctx, lat, lon, units)
		if err != nil {
			return nil, err
		}
		return required(normalize.Forecast(payload, s.loc))
	})
	if err != nil {
		return nil, s.noData(ctx, OpCoordsForecast, err, zap.Float64("lat", lat), zap.Float64("lon", lon))
	}
	return buckets, nil
}

// Search runs current conditions then forecast. Only a missing current
// snapshot fails the search; a forecast failure leaves it empty.
func (s *WeatherService) Search(ctx context.Context, city string) (*models.SearchResult, error) {
	current, err := s.Current(ctx, city)
	if err != nil {
		return nil, err
	}
	forecast, _ := s.Forecast(ctx, city)
	return s.result(ctx, current, forecast), nil
}

func (s *WeatherService) SearchByCoords(ctx context.Context, lat, lon float64) (*models.SearchResult, error) {
	current, err := s.CurrentByCoords(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	forecast, _ := s.ForecastByCoords(ctx, lat, lon)
	return s.result(ctx, current, forecast), nil
}

func (s *WeatherService) result(ctx context.Context, current *models.WeatherSnapshot, forecast []models.ForecastBucket) *models.SearchResult {
	if forecast == nil {
		forecast = []models.ForecastBucket{}
	}
	return &models.SearchResult{
		Current:  current,
		Forecast: forecast,
		Chart:    normalize.Chart(forecast),
		Units:    models.UnitsFromContext(ctx),
	}
}

// AirQuality returns the air quality index for a location.
func (s *WeatherService) AirQuality(ctx context.Context, lat, lon float64) (*models.AirQuality, error) {
	if err := validation.ValidateCoordinates(lat, lon); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	aq, err := cache.Do(ctx, s.memo, s.airQualityOp, coordArgs(lat, lon), func(ctx context.Context) (*models.AirQuality, error) {
		payload, err := s.gateway.AirPollution(ctx, lat, lon)
		if err != nil {
			return nil, err
		}
		return required(normalize.AirQuality(payload, s.loc))
	})
	if err != nil {
		return nil, s.noData(ctx, OpAirQuality, err, zap.Float64("lat", lat), zap.Float64("lon", lon))
	}
	return aq, nil
}

// Counties lists the supported national-agency regions.
func (s *WeatherService) Counties() []models.County {
	return client.Counties()
}

// CountyForecast returns the 36-hour national-agency forecast for a county code.
func (s *WeatherService) CountyForecast(ctx context.Context, code string) (*models.CountyForecast, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s.national == nil {
		return nil, s.noData(ctx, OpNationalWeather, fmt.Errorf("%w: national gateway not configured", client.ErrUnauthorized), zap.String("county", code))
	}
	forecast, err := cache.Do(ctx, s.memo, s.nationalOp, []string{code}, func(ctx context.Context) (*models.CountyForecast, error) {
		resp, err := s.national.CountyForecast(ctx, code)
		if err != nil {
			return nil, err
		}
		return required(normalize.County(resp))
	})
	if err != nil {
		return nil, s.noData(ctx, OpNationalWeather, err, zap.String("county", code))
	}
	return forecast, nil
}

// Dashboard returns current conditions for each city, skipping cities with no data.
func (s *WeatherService) Dashboard(ctx context.Context, cities []string) []models.WeatherSnapshot {
	reports := make([]models.WeatherSnapshot, 0, len(cities))
	for _, city := range cities {
		snap, err := s.Current(ctx, city)
		if err != nil {
			continue
		}
		reports = append(reports, *snap)
	}
	return reports
}

// InvalidateUnits drops cached current conditions after a unit preference change.
// Never fails; backend errors are logged by the memo.
func (s *WeatherService) InvalidateUnits(ctx context.Context) {
	s.memo.Invalidate(ctx, s.currentOp, s.coordsOp)
}

// Ping reports whether the cache backend is reachable.
func (s *WeatherService) Ping(ctx context.Context) error {
	return s.memo.Ping(ctx)
}

// ValidateAPIKey checks the OpenWeather credential.
func (s *WeatherService) ValidateAPIKey(ctx context.Context) error {
	return s.gateway.ValidateAPIKey(ctx)
}

// noData logs err once, at a level chosen by its category, and returns ErrNoData.
func (s *WeatherService) noData(ctx context.Context, op string, err error, fields ...zap.Field) error {
	category := client.CategorizeError(err)
	level := zapcore.WarnLevel
	switch category {
	case client.ErrorCategoryUnauthorized:
		level = zapcore.ErrorLevel
	case client.ErrorCategoryNotFound:
		level = zapcore.InfoLevel
	}
	logger := observability.LoggerFromContext(ctx, s.logger)
	fields = append(fields, zap.String("operation", op), zap.String("category", string(category)), zap.Error(err))
	if ce := logger.Check(level, "weather lookup failed"); ce != nil {
		ce.Write(fields...)
	}
	return fmt.Errorf("%s: %w", op, ErrNoData)
}

// required turns a normalizer's absent result into an error so that
// incomplete payloads are never cached.
func required[T any](v T, ok bool) (T, error) {
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: required fields missing", client.ErrMalformedResponse)
	}
	return v, nil
}

func coordArgs(lat, lon float64) []string {
	return []string{
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
	}
}
