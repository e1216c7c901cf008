package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateRecord is the per-client counter of the in-memory limiter.
type RateRecord struct {
	Count       int
	WindowStart time.Time
}

// FixedWindowLimiter keeps one RateRecord per client key in process memory.
// A window starts at the first request after the previous one elapsed.
// Records are never evicted and nothing is shared between processes.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	records map[string]*RateRecord
	limit   int
	window  time.Duration
	now     Clock
}

func NewFixedWindow(limit int, window time.Duration) *FixedWindowLimiter {
	return NewFixedWindowWithClock(limit, window, time.Now)
}

func NewFixedWindowWithClock(limit int, window time.Duration, now Clock) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		records: make(map[string]*RateRecord),
		limit:   limit,
		window:  window,
		now:     now,
	}
}

func (f *FixedWindowLimiter) Allow(_ context.Context, key string) (bool, error) {
	return f.Admit(key), nil
}

// Admit increments the counter for key, starting a fresh window when the
// previous one has elapsed, and reports whether the count is within quota.
func (f *FixedWindowLimiter) Admit(key string) bool {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[key]
	if !ok {
		record = &RateRecord{WindowStart: now}
		f.records[key] = record
	}

	if now.Sub(record.WindowStart) > f.window {
		record.Count = 0
		record.WindowStart = now
	}

	record.Count++

	return record.Count <= f.limit
}

func (f *FixedWindowLimiter) Remaining(_ context.Context, key string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[key]
	if !ok || f.now().Sub(record.WindowStart) > f.window {
		return f.limit, nil
	}

	remaining := f.limit - record.Count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

func (f *FixedWindowLimiter) Limit() int {
	return f.limit
}

func (f *FixedWindowLimiter) Window() time.Duration {
	return f.window
}

func (f *FixedWindowLimiter) Reset(_ context.Context, key string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	record, ok := f.records[key]
	if !ok || now.Sub(record.WindowStart) > f.window {
		return now.Add(f.window), nil
	}

	return record.WindowStart.Add(f.window), nil
}

// Size returns the number of tracked client keys.
func (f *FixedWindowLimiter) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Snapshot returns a copy of the record for key.
func (f *FixedWindowLimiter) Snapshot(key string) (RateRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[key]
	if !ok {
		return RateRecord{}, false
	}
	return *record, true
}
