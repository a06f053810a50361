package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

// WeatherGateway is the OpenWeather side of the upstream gateway.
type WeatherGateway interface {
	CurrentByCity(ctx context.Context, city string, units models.Units) (*models.CurrentPayload, error)
	CurrentByCoords(ctx context.Context, lat, lon float64, units models.Units) (*models.CurrentPayload, error)
	ForecastByCity(ctx context.Context, city string, units models.Units) (*models.ForecastPayload, error)
	ForecastByCoords(ctx context.Context, lat, lon float64, units models.Units) (*models.ForecastPayload, error)
	AirPollution(ctx context.Context, lat, lon float64) (*models.AirPollutionPayload, error)
	ValidateAPIKey(ctx context.Context) error
}

const (
	DefaultCurrentURL      = "https://api.openweathermap.org/data/2.5/weather"
	DefaultForecastURL     = "https://api.openweathermap.org/data/2.5/forecast"
	DefaultAirPollutionURL = "https://api.openweathermap.org/data/2.5/air_pollution"
)

type OpenWeatherConfig struct {
	APIKey          string
	CurrentURL      string
	ForecastURL     string
	AirPollutionURL string
	Lang            string
	Timeout         time.Duration
	// Traffic, when set, receives one outcome per call.
	Traffic *traffic.Tracker
}

type OpenWeatherClient struct {
	apiKey          string
	currentURL      string
	forecastURL     string
	airPollutionURL string
	lang            string
	req             *requester
}

func NewOpenWeatherClient(cfg OpenWeatherConfig) (*OpenWeatherClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrUnauthorized)
	}
	if len(cfg.APIKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrUnauthorized)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CurrentURL == "" {
		cfg.CurrentURL = DefaultCurrentURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.AirPollutionURL == "" {
		cfg.AirPollutionURL = DefaultAirPollutionURL
	}

	return &OpenWeatherClient{
		apiKey:          cfg.APIKey,
		currentURL:      cfg.CurrentURL,
		forecastURL:     cfg.ForecastURL,
		airPollutionURL: cfg.AirPollutionURL,
		lang:            cfg.Lang,
		req:             newRequester("openweather", cfg.Timeout, cfg.Traffic),
	}, nil
}

// SetCircuitBreaker routes every call through a breaker that opens after
// s.Failures consecutive failures and probes again after s.Timeout.
func (c *OpenWeatherClient) SetCircuitBreaker(s BreakerSettings) {
	c.req.setBreaker(s)
}

func (c *OpenWeatherClient) CurrentByCity(ctx context.Context, city string, units models.Units) (*models.CurrentPayload, error) {
	var out models.CurrentPayload
	if err := c.req.getJSON(ctx, "current_weather", c.currentURL, c.cityParams(city, units), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) CurrentByCoords(ctx context.Context, lat, lon float64, units models.Units) (*models.CurrentPayload, error) {
	var out models.CurrentPayload
	if err := c.req.getJSON(ctx, "coords_weather", c.currentURL, c.coordParams(lat, lon, units), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) ForecastByCity(ctx context.Context, city string, units models.Units) (*models.ForecastPayload, error) {
	var out models.ForecastPayload
	if err := c.req.getJSON(ctx, "forecast", c.forecastURL, c.cityParams(city, units), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) ForecastByCoords(ctx context.Context, lat, lon float64, units models.Units) (*models.ForecastPayload, error) {
	var out models.ForecastPayload
	if err := c.req.getJSON(ctx, "coords_forecast", c.forecastURL, c.coordParams(lat, lon, units), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AirPollution fetches the current air pollution reading. The endpoint has no unit dimension.
func (c *OpenWeatherClient) AirPollution(ctx context.Context, lat, lon float64) (*models.AirPollutionPayload, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("appid", c.apiKey)

	var out models.AirPollutionPayload
	if err := c.req.getJSON(ctx, "air_quality", c.airPollutionURL, params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateAPIKey performs one lookup for a well-known city and reports
// ErrUnauthorized if the provider rejects the key.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	var out models.CurrentPayload
	if err := c.req.do(ctx, c.currentURL, c.cityParams("London", models.UnitsMetric), nil, &out); err != nil {
		return fmt.Errorf("validate API key: %w", err)
	}
	return nil
}

func (c *OpenWeatherClient) cityParams(city string, units models.Units) url.Values {
	params := url.Values{}
	params.Set("q", city)
	c.commonParams(params, units)
	return params
}

func (c *OpenWeatherClient) coordParams(lat, lon float64, units models.Units) url.Values {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	c.commonParams(params, units)
	return params
}

func (c *OpenWeatherClient) commonParams(params url.Values, units models.Units) {
	params.Set("appid", c.apiKey)
	if units == "" {
		units = models.UnitsMetric
	}
	params.Set("units", string(units))
	if c.lang != "" {
		params.Set("lang", c.lang)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
