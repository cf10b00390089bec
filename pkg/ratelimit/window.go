package ratelimit

import (
	"sync"
	"time"
)

// Window counts requests issued within the trailing rate-limit window.
// It only observes; throttling decisions stay with the provider's 429 signal.
type Window struct {
	length   time.Duration
	ceiling  int
	now      func() time.Time
	requests []time.Time
	mu       sync.Mutex
}

// NewWindow creates a tracker for the given ceiling. A nil clock uses time.Now.
func NewWindow(ceiling int, length time.Duration, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{length: length, ceiling: ceiling, now: now}
}

// Record notes one request at the current time.
func (w *Window) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	w.requests = append(w.requests, now)
}

// Usage returns requests in the window, the ceiling, and when the oldest request expires.
func (w *Window) Usage() (used, ceiling int, resetAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.requests) > 0 {
		resetAt = w.requests[0].Add(w.length)
	}
	return len(w.requests), w.ceiling, resetAt
}

// Reset forgets all requests, e.g. after a provider cooldown.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests = w.requests[:0]
}

func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.length)
	i := 0
	for i < len(w.requests) && !w.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.requests = append(w.requests[:0], w.requests[i:]...)
	}
}
