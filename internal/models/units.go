package models

import (
	"context"
	"strings"
)

// Units is the measurement system requested from the weather provider.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits accepts "metric" or "imperial" (case-insensitive).
func ParseUnits(s string) (Units, bool) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case UnitsMetric:
		return UnitsMetric, true
	case UnitsImperial:
		return UnitsImperial, true
	}
	return "", false
}

// TemperatureSymbol returns the display suffix for temperatures.
func (u Units) TemperatureSymbol() string {
	if u == UnitsImperial {
		return "°F"
	}
	return "°C"
}

// WindSpeedUnit returns the display suffix for wind speed.
func (u Units) WindSpeedUnit() string {
	if u == UnitsImperial {
		return "mph"
	}
	return "m/s"
}

type unitsKey struct{}

// WithUnits returns a copy of ctx carrying the caller's unit preference.
func WithUnits(ctx context.Context, u Units) context.Context {
	return context.WithValue(ctx, unitsKey{}, u)
}

// UnitsFromContext returns the unit preference stored in ctx, or metric.
func UnitsFromContext(ctx context.Context) Units {
	if u, ok := ctx.Value(unitsKey{}).(Units); ok && u != "" {
		return u
	}
	return UnitsMetric
}
