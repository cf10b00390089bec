package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"twitsent/pkg/models"
)

// fakeTransport records requests and answers them with respond.
type fakeTransport struct {
	mu       sync.Mutex
	requests []models.SearchRequest
	respond  func(n int, req models.SearchRequest) (*models.Page, error)
}

func (f *fakeTransport) Search(_ context.Context, req models.SearchRequest) (*models.Page, error) {
	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(n, req)
}

func (f *fakeTransport) Requests() []models.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SearchRequest(nil), f.requests...)
}

// fillPages answers every request with MaxResults items and no cursor.
func fillPages(_ int, req models.SearchRequest) (*models.Page, error) {
	return pageOf(req.MaxResults, ""), nil
}

func pageOf(n int, cursor string) *models.Page {
	page := &models.Page{NextCursor: cursor}
	for i := 0; i < n; i++ {
		page.Items = append(page.Items, models.Item{
			ID:   fmt.Sprint(i),
			Text: "Hello WORLD! " + strings.Repeat("x", i%3+1),
		})
	}
	return page
}

// recordingObserver keeps every notification for assertions.
type recordingObserver struct {
	started   []int
	completed []models.Interval
	requests  int
	failures  int
	cooldowns []time.Duration
	warnings  []Warning
}

func (r *recordingObserver) IntervalStarted(index, _ int, _ models.TimeWindow) {
	r.started = append(r.started, index)
}

func (r *recordingObserver) IntervalCompleted(interval models.Interval, _ int) {
	r.completed = append(r.completed, interval)
}

func (r *recordingObserver) RequestCompleted(_ time.Duration, err error) {
	r.requests++
	if err != nil {
		r.failures++
	}
}

func (r *recordingObserver) Throttled(cooldown time.Duration) {
	r.cooldowns = append(r.cooldowns, cooldown)
}

func (r *recordingObserver) Warned(w Warning) {
	r.warnings = append(r.warnings, w)
}
