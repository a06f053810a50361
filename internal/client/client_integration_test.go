//go:build integration
// +build integration

package client

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/kjstillabower/cityweather/internal/models"
)

func isValidAPIKeyFormat(key string) error {
	if len(key) != 32 {
		return fmt.Errorf("API key length is %d, expected 32", len(key))
	}

	hexPattern := regexp.MustCompile(`^[0-9a-fA-F]+$`)
	if !hexPattern.MatchString(key) {
		return fmt.Errorf("API key contains non-hexadecimal characters")
	}

	return nil
}

func integrationClient(t *testing.T) *OpenWeatherClient {
	t.Helper()
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}
	if err := isValidAPIKeyFormat(apiKey); err != nil {
		t.Fatalf("API key format validation failed: %v", err)
	}

	c, err := NewOpenWeatherClient(OpenWeatherConfig{APIKey: apiKey, Lang: "zh_tw", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

func TestOpenWeatherClient_ValidateAPIKey_Integration(t *testing.T) {
	c := integrationClient(t)
	if err := c.ValidateAPIKey(context.Background()); err != nil {
		t.Errorf("ValidateAPIKey() error = %v, want nil (API key may not be activated yet)", err)
	}
}

func TestOpenWeatherClient_CurrentAndForecast_Integration(t *testing.T) {
	c := integrationClient(t)
	ctx := context.Background()

	current, err := c.CurrentByCity(ctx, "Taipei", models.UnitsMetric)
	if err != nil {
		t.Fatalf("CurrentByCity() error = %v (API key may not be activated yet)", err)
	}
	if current.Name == "" || current.Main == nil || current.Main.Temp == nil {
		t.Errorf("CurrentByCity() returned incomplete payload: %+v", current)
	}

	forecast, err := c.ForecastByCity(ctx, "Taipei", models.UnitsMetric)
	if err != nil {
		t.Fatalf("ForecastByCity() error = %v", err)
	}
	if len(forecast.List) == 0 {
		t.Error("ForecastByCity() returned no entries")
	}
}

func TestCWAClient_CountyForecast_Integration(t *testing.T) {
	apiKey := os.Getenv("CWA_API_KEY")
	if apiKey == "" {
		t.Skip("CWA_API_KEY not set, skipping integration test")
	}
	c := NewCWAClient(CWAConfig{APIKey: apiKey})
	resp, err := c.CountyForecast(context.Background(), "TPE")
	if err != nil {
		t.Fatalf("CountyForecast() error = %v", err)
	}
	if len(resp.Records.Location) == 0 {
		t.Error("CountyForecast() returned no locations")
	}
}
