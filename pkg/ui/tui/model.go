package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"twitsent/pkg/models"
)

// SeriesState represents where a series is in its run
type SeriesState int

const (
	SeriesPending SeriesState = iota
	SeriesActive
	SeriesCompleted
)

// SeriesProgress tracks one collected series
type SeriesProgress struct {
	Name      string
	Total     int
	Completed int
	Items     int
	Empty     int
	Current   models.TimeWindow
	State     SeriesState
	StartTime time.Time
}

// Fraction returns completed/total in [0, 1].
func (s *SeriesProgress) Fraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	f := float64(s.Completed) / float64(s.Total)
	if f > 1 {
		f = 1
	}
	return f
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner spinner.Model
	bar     progress.Model

	// Collection state
	series      map[string]*SeriesProgress
	seriesOrder []string

	// Stats
	requests         int
	failedRequests   int
	cooldowns        int
	warnings         int
	cooldownUntil    time.Time
	sessionStartTime time.Time

	// Rate limiting
	rateLimitMax     int
	rateLimitUsed    int
	rateLimitResetAt time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	done           bool
	summary        string
	logMessages    []LogMessage
	maxLogMessages int

	now func() time.Time
	mu  sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model for the given rate-limit ceiling
func NewModel(ceiling int) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Model{
		spinner:          s,
		bar:              bar,
		series:           make(map[string]*SeriesProgress),
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
		rateLimitMax:     ceiling,
		now:              time.Now,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// seriesLocked returns the named series, creating it on first use.
func (m *Model) seriesLocked(name string) *SeriesProgress {
	s, ok := m.series[name]
	if !ok {
		s = &SeriesProgress{Name: name, State: SeriesPending}
		m.series[name] = s
		m.seriesOrder = append(m.seriesOrder, name)
	}
	return s
}

// AddSeries registers a series before its first interval starts
func (m *Model) AddSeries(name string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.seriesLocked(name)
	s.Total = total
}

// StartInterval marks the series active on window
func (m *Model) StartInterval(name string, total int, window models.TimeWindow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.seriesLocked(name)
	if s.State == SeriesPending {
		s.State = SeriesActive
		s.StartTime = m.now()
	}
	s.Total = total
	s.Current = window
}

// CompleteInterval records a finished interval
func (m *Model) CompleteInterval(name string, interval models.Interval, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.seriesLocked(name)
	s.Total = total
	s.Completed++
	s.Items += len(interval.Items)
	if len(interval.Items) == 0 {
		s.Empty++
	}
	if s.Completed >= s.Total {
		s.State = SeriesCompleted
	}
}

// RecordRequest counts one search request
func (m *Model) RecordRequest(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	if err != nil {
		m.failedRequests++
	}
}

// StartCooldown records a rate limit wait
func (m *Model) StartCooldown(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cooldowns++
	m.cooldownUntil = m.now().Add(d)
}

// CoolingDown reports whether a cooldown is in progress and how long is left.
func (m *Model) CoolingDown() (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	left := m.cooldownUntil.Sub(m.now())
	return left, left > 0
}

// UpdateRateLimit updates the rate limit status
func (m *Model) UpdateRateLimit(used, max int, resetAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rateLimitUsed = used
	if max > 0 {
		m.rateLimitMax = max
	}
	m.rateLimitResetAt = resetAt
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = errorRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	if level == "WARN" {
		m.warnings++
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Finish marks the run as over
func (m *Model) Finish(summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.done = true
	m.summary = summary
}

// Series returns a snapshot of every series in the order first seen.
func (m *Model) Series() []SeriesProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SeriesProgress, 0, len(m.seriesOrder))
	for _, name := range m.seriesOrder {
		out = append(out, *m.series[name])
	}
	return out
}

// Totals returns intervals completed, intervals expected, and items over all series.
func (m *Model) Totals() (completed, total, items int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.series {
		completed += s.Completed
		total += s.Total
		items += s.Items
	}
	return completed, total, items
}

// ETA estimates the remaining time over all series from the pace so far.
func (m *Model) ETA() time.Duration {
	completed, total, _ := m.Totals()
	if completed == 0 || completed >= total {
		return 0
	}
	elapsed := m.now().Sub(m.sessionStartTime)
	return elapsed / time.Duration(completed) * time.Duration(total-completed)
}
