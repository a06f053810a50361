package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/cityweather/internal/models"
)

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	ServerPort string

	OpenWeatherAPIKey          string
	OpenWeatherCurrentURL      string
	OpenWeatherForecastURL     string
	OpenWeatherAirPollutionURL string
	OpenWeatherLang            string
	OpenWeatherTimeout         time.Duration

	// CWAAPIKey is optional; county endpoints answer "no data" without it.
	CWAAPIKey  string
	CWAURL     string
	CWATimeout time.Duration

	RequestTimeout time.Duration
	DefaultUnits   models.Units

	CacheBackend          string // in_memory, memcached or redis
	WeatherTTL            time.Duration
	AirQualityTTL         time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisURL              string
	WarmCities            []string

	DatabaseDriver string // sqlite or postgres
	DatabaseDSN    string

	RateLimitRPS           int
	RateLimitBurst         int
	CircuitBreakerEnabled  bool
	CircuitBreakerFailures int
	CircuitBreakerTimeout  time.Duration

	Location     *time.Location
	PageSize     int
	HistoryLimit int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	TrackedCities []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	OpenWeather struct {
		CurrentURL      string `yaml:"current_url"`
		ForecastURL     string `yaml:"forecast_url"`
		AirPollutionURL string `yaml:"air_pollution_url"`
		Lang            string `yaml:"lang"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"openweather"`

	CWA struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"cwa"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Units struct {
		Default string `yaml:"default"`
	} `yaml:"units"`

	Cache struct {
		Backend string `yaml:"backend"`
		TTL     struct {
			Weather    string `yaml:"weather"`
			AirQuality string `yaml:"air_quality"`
		} `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			URL string `yaml:"url"`
		} `yaml:"redis"`
		WarmCities []string `yaml:"warm_cities"`
	} `yaml:"cache"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Reliability struct {
		RateLimitRPS           int    `yaml:"rate_limit_rps"`
		RateLimitBurst         int    `yaml:"rate_limit_burst"`
		CircuitBreakerEnabled  bool   `yaml:"circuit_breaker_enabled"`
		CircuitBreakerFailures int    `yaml:"circuit_breaker_failures"`
		CircuitBreakerTimeout  string `yaml:"circuit_breaker_timeout"`
	} `yaml:"reliability"`

	Display struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"display"`

	Dashboard struct {
		PageSize     int `yaml:"page_size"`
		HistoryLimit int `yaml:"history_limit"`
	} `yaml:"dashboard"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	CWAAPIKey         string `yaml:"cwa_api_key"`
}

// Load reads .env (if present), config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. CONFIG_DIR overrides the config directory, which is
// otherwise relative to the working directory.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := loadDotEnv(filepath.Join(cwd, ".env")); err != nil {
		return nil, err
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = filepath.Join(cwd, "config")
	}

	configPath := filepath.Join(dir, env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := readSecrets(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.OpenWeatherAPIKey = firstNonEmpty(os.Getenv("OPENWEATHER_API_KEY"), sec.OpenWeatherAPIKey)
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY required (set env or config/secrets.yaml openweather_api_key)")
	}
	cfg.OpenWeatherCurrentURL = strings.TrimSpace(fc.OpenWeather.CurrentURL)
	cfg.OpenWeatherForecastURL = strings.TrimSpace(fc.OpenWeather.ForecastURL)
	cfg.OpenWeatherAirPollutionURL = strings.TrimSpace(fc.OpenWeather.AirPollutionURL)
	cfg.OpenWeatherLang = firstNonEmpty(fc.OpenWeather.Lang, "zh_tw")
	cfg.OpenWeatherTimeout = parseDurationOrZero(fc.OpenWeather.Timeout, 5*time.Second)

	cfg.CWAAPIKey = firstNonEmpty(os.Getenv("CWA_API_KEY"), sec.CWAAPIKey)
	cfg.CWAURL = strings.TrimSpace(fc.CWA.URL)
	cfg.CWATimeout = parseDurationOrZero(fc.CWA.Timeout, 8*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 12*time.Second)
	cfg.DefaultUnits = models.Units(strings.ToLower(firstNonEmpty(fc.Units.Default, string(models.UnitsMetric))))

	cfg.CacheBackend = strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory"))
	cfg.WeatherTTL = parseDuration(fc.Cache.TTL.Weather, 10*time.Minute)
	cfg.AirQualityTTL = parseDuration(fc.Cache.TTL.AirQuality, 60*time.Minute)
	cfg.MemcachedAddrs = firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisURL = firstNonEmpty(os.Getenv("REDIS_URL"), fc.Cache.Redis.URL, "redis://localhost:6379/0")
	cfg.WarmCities = fc.Cache.WarmCities

	cfg.DatabaseDriver = strings.ToLower(firstNonEmpty(os.Getenv("DATABASE_DRIVER"), fc.Database.Driver, "sqlite"))
	cfg.DatabaseDSN = firstNonEmpty(os.Getenv("DATABASE_URL"), fc.Database.DSN)
	if cfg.DatabaseDSN == "" && cfg.DatabaseDriver == "sqlite" {
		cfg.DatabaseDSN = "cityweather.db"
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	cfg.CircuitBreakerEnabled = fc.Reliability.CircuitBreakerEnabled
	cfg.CircuitBreakerFailures = fc.Reliability.CircuitBreakerFailures
	if cfg.CircuitBreakerFailures <= 0 {
		cfg.CircuitBreakerFailures = 5
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Reliability.CircuitBreakerTimeout, 30*time.Second)

	cfg.Location = time.Local
	if tz := strings.TrimSpace(fc.Display.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("display.timezone: %w", err)
		}
		cfg.Location = loc
	}
	cfg.PageSize = fc.Dashboard.PageSize
	if cfg.PageSize <= 0 {
		cfg.PageSize = 6
	}
	cfg.HistoryLimit = fc.Dashboard.HistoryLimit
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	cfg.TrackedCities = fc.Metrics.TrackedCities

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func readSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses s, returning defaultVal when s is empty, invalid or not positive.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses s, returning defaultVal on empty or invalid input.
// Zero and negative durations are returned as-is for validate to reject.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate rejects non-positive provider timeouts and unknown enum values.
// RequestTimeout is raised to cover one call to the slower provider.
func validate(cfg *Config) error {
	if cfg.OpenWeatherTimeout <= 0 {
		return fmt.Errorf("openweather.timeout must be positive")
	}
	if cfg.CWATimeout <= 0 {
		return fmt.Errorf("cwa.timeout must be positive")
	}
	slowest := cfg.OpenWeatherTimeout
	if cfg.CWATimeout > slowest {
		slowest = cfg.CWATimeout
	}
	if cfg.RequestTimeout <= slowest {
		cfg.RequestTimeout = slowest + time.Second
	}
	if _, ok := models.ParseUnits(string(cfg.DefaultUnits)); !ok {
		return fmt.Errorf("units.default must be metric or imperial, got %q", cfg.DefaultUnits)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "redis":
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or redis, got %q", cfg.CacheBackend)
	}
	switch cfg.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return fmt.Errorf("database.dsn (or DATABASE_URL) required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", cfg.DatabaseDriver)
	}
	return nil
}
