package http

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/cityweather/internal/observability"
)

// InFlightTracker counts requests currently being served so that shutdown
// can wait for them after the listener closes.
type InFlightTracker struct {
	count atomic.Int64
	// gauge mirrors the count to Prometheus when true.
	gauge bool
}

// NewInFlightTracker returns a tracker that also drives the in-flight gauge.
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{gauge: true}
}

func (t *InFlightTracker) Increment() {
	t.count.Add(1)
	if t.gauge {
		observability.HTTPRequestsInFlight.Inc()
	}
}

func (t *InFlightTracker) Decrement() {
	t.count.Add(-1)
	if t.gauge {
		observability.HTTPRequestsInFlight.Dec()
	}
}

func (t *InFlightTracker) Count() int64 {
	return t.count.Load()
}

// WaitForZero blocks until the count reaches zero or ctx is done,
// re-checking every checkInterval.
func (t *InFlightTracker) WaitForZero(ctx context.Context, checkInterval time.Duration) error {
	if checkInterval <= 0 {
		checkInterval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if t.Count() <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
