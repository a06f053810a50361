package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/lifecycle"
	"github.com/kjstillabower/cityweather/internal/traffic"
)

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// Traffic is the upstream outcome window the error rate is read from.
	Traffic *traffic.Tracker
	// DatabasePing, when set, is reported as the database check.
	DatabasePing func(ctx context.Context) error
	Version      string
	StartTime    time.Time
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiErr := h.weather.ValidateAPIKey(ctx)
	result := h.computeHealthStatus(apiErr)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{
		"weatherApi": checkString(apiErr == nil && result.reason != "error_rate_breach"),
		"cache":      checkString(h.weather.Ping(ctx) == nil),
	}
	version := "dev"
	if cfg := h.opts.Health; cfg != nil {
		if cfg.DatabasePing != nil {
			checks["database"] = checkString(cfg.DatabasePing(ctx) == nil)
		}
		if cfg.Version != "" {
			version = cfg.Version
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "cityweather",
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if cfg := h.opts.Health; cfg != nil && !cfg.StartTime.IsZero() {
		resp["uptimeSeconds"] = int64(time.Since(cfg.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down, invalid API key,
// upstream error rate at or above the threshold, then healthy.
func (h *Handler) computeHealthStatus(apiErr error) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if apiErr != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	cfg := h.opts.Health
	if cfg != nil && cfg.DegradedWindow > 0 && cfg.DegradedErrorPct > 0 {
		errors, total := cfg.Traffic.ErrorRate(cfg.DegradedWindow)
		if total > 0 && float64(errors)*100/float64(total) >= float64(cfg.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func checkString(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}
