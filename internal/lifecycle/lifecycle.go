// Package lifecycle holds the process drain flag read by /health.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// drainingSince is the drain start in Unix nanoseconds, 0 while serving.
var drainingSince atomic.Int64

// SetShuttingDown marks the process as draining (true) or serving (false).
// Repeated calls with true keep the first start time.
func SetShuttingDown(v bool) {
	if !v {
		drainingSince.Store(0)
		return
	}
	drainingSince.CompareAndSwap(0, time.Now().UnixNano())
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return drainingSince.Load() != 0
}

// ShutdownStarted returns when draining began.
func ShutdownStarted() (time.Time, bool) {
	ns := drainingSince.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}
