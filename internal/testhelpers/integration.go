//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kjstillabower/cityweather/internal/cache"
	"github.com/kjstillabower/cityweather/internal/client"
	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/service"
	"github.com/kjstillabower/cityweather/internal/store"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	OpenWeatherAPIKey string
	CWAAPIKey         string
	CacheBackend      string // in_memory, memcached or redis
	MemcachedAddr     string
	RedisURL          string
}

// GetIntegrationConfig loads integration test configuration from the environment.
// Skips the test when OPENWEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}
	cfg := IntegrationTestConfig{
		OpenWeatherAPIKey: apiKey,
		CWAAPIKey:         os.Getenv("CWA_API_KEY"),
		CacheBackend:      os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr:     os.Getenv("MEMCACHED_ADDRS"),
		RedisURL:          os.Getenv("REDIS_URL"),
	}
	if cfg.MemcachedAddr == "" {
		cfg.MemcachedAddr = "localhost:11211"
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	return cfg
}

// SetupIntegrationCache returns the configured cache backend, falling back to
// in-memory when the backend is unreachable.
func SetupIntegrationCache(t *testing.T, cfg IntegrationTestConfig) cache.Cache {
	t.Helper()
	var c cache.Cache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil {
			c = mc
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available (%v), using in-memory cache", err)
		}
	case "redis":
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			c = rc
			t.Logf("Using Redis cache at %s", cfg.RedisURL)
		} else {
			t.Logf("Redis not available (%v), using in-memory cache", err)
		}
	}
	if c == nil {
		c = cache.NewInMemoryCache()
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// SetupIntegrationService builds a WeatherService against the live providers.
// The national gateway is nil when CWA_API_KEY is unset.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, cache.Cache) {
	t.Helper()
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	gateway, err := client.NewOpenWeatherClient(client.OpenWeatherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	var national client.NationalGateway
	if cfg.CWAAPIKey != "" {
		national = client.NewCWAClient(client.CWAConfig{APIKey: cfg.CWAAPIKey})
	}
	c := SetupIntegrationCache(t, cfg)
	svc := service.NewWeatherService(gateway, national, cache.NewMemo(c, logger), service.Options{Logger: logger})
	return svc, c
}

// SetupIntegrationStore opens a migrated in-memory SQLite database.
func SetupIntegrationStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("store.Migrate() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close(db) })
	return db
}
