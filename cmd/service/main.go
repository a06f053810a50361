package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/cityweather/internal/cache"
	"github.com/kjstillabower/cityweather/internal/client"
	"github.com/kjstillabower/cityweather/internal/config"
	httphandler "github.com/kjstillabower/cityweather/internal/http"
	"github.com/kjstillabower/cityweather/internal/lifecycle"
	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/service"
	"github.com/kjstillabower/cityweather/internal/store"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

var version = "dev"

func main() {
	// Config first so that LOG_LEVEL from .env reaches the logger.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	upstreamTraffic := traffic.NewTracker(nil)
	inFlight := httphandler.NewInFlightTracker()

	gateway, err := client.NewOpenWeatherClient(client.OpenWeatherConfig{
		APIKey:          cfg.OpenWeatherAPIKey,
		CurrentURL:      cfg.OpenWeatherCurrentURL,
		ForecastURL:     cfg.OpenWeatherForecastURL,
		AirPollutionURL: cfg.OpenWeatherAirPollutionURL,
		Lang:            cfg.OpenWeatherLang,
		Timeout:         cfg.OpenWeatherTimeout,
		Traffic:         upstreamTraffic,
	})
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	var national client.NationalGateway
	var cwaClient *client.CWAClient
	if cfg.CWAAPIKey != "" {
		cwaClient = client.NewCWAClient(client.CWAConfig{
			APIKey:  cfg.CWAAPIKey,
			URL:     cfg.CWAURL,
			Timeout: cfg.CWATimeout,
			Traffic: upstreamTraffic,
		})
		national = cwaClient
	} else {
		logger.Warn("CWA_API_KEY not set; county forecasts disabled")
	}

	if cfg.CircuitBreakerEnabled {
		breaker := client.BreakerSettings{
			Failures: uint32(cfg.CircuitBreakerFailures),
			Timeout:  cfg.CircuitBreakerTimeout,
		}
		gateway.SetCircuitBreaker(breaker)
		if cwaClient != nil {
			cwaClient.SetCircuitBreaker(breaker)
		}
		logger.Info("circuit breaker enabled",
			zap.Int("failures", cfg.CircuitBreakerFailures),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	cacheSvc, err := newCache(cfg)
	if err != nil {
		logger.Fatal("cache backend", zap.String("backend", cfg.CacheBackend), zap.Error(err))
	}
	logger.Info("cache backend ready", zap.String("backend", cfg.CacheBackend))

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal("database migrate", zap.Error(err))
	}
	logger.Info("database ready", zap.String("driver", cfg.DatabaseDriver))

	memo := cache.NewMemo(cacheSvc, logger)
	weatherService := service.NewWeatherService(gateway, national, memo, service.Options{
		WeatherTTL:    cfg.WeatherTTL,
		AirQualityTTL: cfg.AirQualityTTL,
		Location:      cfg.Location,
		Logger:        logger,
	})

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	if len(cfg.WarmCities) > 0 {
		warmer := cache.NewCacheWarmer(weatherService, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmCities, cfg.DefaultUnits); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
	}

	handler := httphandler.NewHandler(
		weatherService,
		store.NewFavoritesStore(db),
		store.NewHistoryStore(db),
		logger,
		httphandler.Options{
			PageSize:     cfg.PageSize,
			HistoryLimit: cfg.HistoryLimit,
			Health: &httphandler.HealthConfig{
				DegradedWindow:   cfg.DegradedWindow,
				DegradedErrorPct: cfg.DegradedErrorPct,
				Traffic:          upstreamTraffic,
				DatabasePing:     func(ctx context.Context) error { return store.Ping(ctx, db) },
				Version:          version,
				StartTime:        time.Now(),
			},
		},
	)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		DefaultUnits:   cfg.DefaultUnits,
		Auth:           store.NewUserStore(db),
		Traffic:        upstreamTraffic,
		InFlight:       inFlight,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := cacheSvc.Close(); err != nil {
		logger.Error("cache close", zap.Error(err))
	}
	if err := store.Close(db); err != nil {
		logger.Error("database close", zap.Error(err))
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newCache builds the configured cache backend.
func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, err
		}
		return mc, nil
	case "redis":
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return cache.NewInMemoryCache(), nil
	}
}
