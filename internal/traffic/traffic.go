// Package traffic keeps a sliding window of upstream call outcomes and
// rate-limit denials. The health handler reads the error rate from it.
package traffic

import (
	"sync"
	"time"
)

// Outcome is the result of one upstream call or one denied request.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Denied
	outcomeCount
)

const (
	bucketWidth = time.Second
	horizon     = 5 * time.Minute
	bucketCount = int(horizon / bucketWidth)
)

type bucket struct {
	second int64
	counts [outcomeCount]int
}

// Tracker counts outcomes in one-second buckets over a five-minute ring.
// The zero value is ready to use. A nil *Tracker records nothing and reports
// zero counts.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets []bucket
}

// NewTracker returns a Tracker reading time from now. A nil now uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

func (t *Tracker) clock() int64 {
	if t.now != nil {
		return t.now().Unix()
	}
	return time.Now().Unix()
}

// Record adds one outcome to the current bucket.
func (t *Tracker) Record(o Outcome) {
	if t == nil || o < 0 || o >= outcomeCount {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buckets == nil {
		t.buckets = make([]bucket, bucketCount)
	}
	sec := t.clock()
	b := &t.buckets[sec%int64(bucketCount)]
	if b.second != sec {
		*b = bucket{second: sec}
	}
	b.counts[o]++
}

// Count returns how many o outcomes were recorded within window.
// Windows longer than five minutes are truncated.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	if t == nil || o < 0 || o >= outcomeCount {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [outcomeCount]int
	t.sumLocked(window, &counts)
	return counts[o]
}

// ErrorRate returns (failures, successes+failures) within window. Denials are excluded.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	if t == nil {
		return 0, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [outcomeCount]int
	t.sumLocked(window, &counts)
	return counts[Failure], counts[Failure] + counts[Success]
}

// Reset clears all buckets.
func (t *Tracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buckets = nil
}

func (t *Tracker) sumLocked(window time.Duration, counts *[outcomeCount]int) {
	if t.buckets == nil || window <= 0 {
		return
	}
	span := int((window + bucketWidth - 1) / bucketWidth)
	if span > bucketCount {
		span = bucketCount
	}
	now := t.clock()
	for i := 0; i < span; i++ {
		sec := now - int64(i)
		b := &t.buckets[sec%int64(bucketCount)]
		if b.second != sec {
			continue
		}
		for o := range counts {
			counts[o] += b.counts[o]
		}
	}
}
