package models

import (
	"time"

	errs "twitsent/pkg/errors"
)

// CollectionSpec describes one collection run over a historical window.
type CollectionSpec struct {
	Rule                string        `json:"rule"`
	Languages           []string      `json:"languages"`
	Start               time.Time     `json:"start"`
	End                 time.Time     `json:"end"`
	IntervalLength      time.Duration `json:"interval_length"`
	MaxItemsPerInterval int           `json:"max_items_per_interval"`
	Elevated            bool          `json:"elevated"`
}

// Validate rejects specs that cannot produce a single request.
func (s CollectionSpec) Validate() error {
	if s.IntervalLength <= 0 {
		return errs.Validation("interval length must be positive, got %s", s.IntervalLength)
	}
	if s.MaxItemsPerInterval < 1 {
		return errs.Validation("max items per interval must be at least 1, got %d", s.MaxItemsPerInterval)
	}
	if !s.End.After(s.Start) {
		return errs.Validation("end time %s is not after start time %s",
			s.End.Format(time.RFC3339), s.Start.Format(time.RFC3339))
	}
	return nil
}

// TotalDuration is the width of the whole collection window.
func (s CollectionSpec) TotalDuration() time.Duration {
	return s.End.Sub(s.Start)
}

// IntervalCount is ceil(total / interval). Zero for invalid specs.
func (s CollectionSpec) IntervalCount() int {
	total := s.TotalDuration()
	if s.IntervalLength <= 0 || total <= 0 {
		return 0
	}
	n := int(total / s.IntervalLength)
	if total%s.IntervalLength != 0 {
		n++
	}
	return n
}

// Partial reports whether the last interval is narrower than IntervalLength.
func (s CollectionSpec) Partial() bool {
	if s.IntervalLength <= 0 {
		return false
	}
	return s.TotalDuration()%s.IntervalLength != 0
}

// TotalMinutes and IntervalMinutes round down to whole minutes.
func (s CollectionSpec) TotalMinutes() int {
	return int(s.TotalDuration() / time.Minute)
}

func (s CollectionSpec) IntervalMinutes() int {
	return int(s.IntervalLength / time.Minute)
}

// TimeWindow is a half-open [Start, End) range.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Width returns End - Start.
func (w TimeWindow) Width() time.Duration {
	return w.End.Sub(w.Start)
}

// Interval is one time bucket of a run. Intervals are ordered newest first.
type Interval struct {
	Index   int        `json:"index"`
	Window  TimeWindow `json:"window"`
	Items   []string   `json:"items"`
	Partial bool       `json:"partial,omitempty"`
}

// Item is a single matched post as returned by the transport.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Page is one transport response. An empty NextCursor means the window is exhausted.
type Page struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// HasMore reports whether another page can be requested.
func (p *Page) HasMore() bool {
	return p != nil && p.NextCursor != ""
}

// SearchRequest is a single bounded search against the provider.
type SearchRequest struct {
	Rule       string
	Languages  []string
	Window     TimeWindow
	MaxResults int
	Cursor     string
}
