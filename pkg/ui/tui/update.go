package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"twitsent/pkg/collector"
	"twitsent/pkg/models"
)

// Message types for the TUI

// SeriesStartMsg registers a series and its expected interval count
type SeriesStartMsg struct {
	Series string
	Total  int
}

// IntervalStartMsg is sent when the collector opens an interval
type IntervalStartMsg struct {
	Series string
	Index  int
	Total  int
	Window models.TimeWindow
}

// IntervalDoneMsg is sent when an interval has been collected
type IntervalDoneMsg struct {
	Series   string
	Interval models.Interval
	Total    int
}

// RequestMsg is sent after every search request
type RequestMsg struct {
	Duration time.Duration
	Err      error
}

// CooldownMsg is sent when the provider throttles and a cooldown begins
type CooldownMsg struct {
	Series   string
	Duration time.Duration
}

// WarningMsg carries a non-fatal collector warning
type WarningMsg struct {
	Series  string
	Warning collector.Warning
}

// RateLimitUpdateMsg is sent to update rate limit status
type RateLimitUpdateMsg struct {
	Used    int
	Max     int
	ResetAt time.Time
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg is sent when the run is over
type DoneMsg struct {
	Summary string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.mu.Unlock()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case SeriesStartMsg:
		m.AddSeries(msg.Series, msg.Total)
		m.AddLogMessage("INFO", "Collecting "+msg.Series)
		return m, nil

	case IntervalStartMsg:
		m.StartInterval(msg.Series, msg.Total, msg.Window)
		return m, nil

	case IntervalDoneMsg:
		m.CompleteInterval(msg.Series, msg.Interval, msg.Total)
		return m, nil

	case RequestMsg:
		m.RecordRequest(msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", "Request failed: "+msg.Err.Error())
		}
		return m, nil

	case CooldownMsg:
		m.StartCooldown(msg.Duration)
		m.AddLogMessage("WARN", "Rate limited, cooling down "+formatDuration(msg.Duration))
		return m, nil

	case WarningMsg:
		m.AddLogMessage("WARN", msg.Series+": "+msg.Warning.Message)
		return m, nil

	case RateLimitUpdateMsg:
		m.UpdateRateLimit(msg.Used, msg.Max, msg.ResetAt)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		m.Finish(msg.Summary)
		m.AddLogMessage("SUCCESS", msg.Summary)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.mu.Lock()
		m.showHelp = !m.showHelp
		m.mu.Unlock()
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd refreshes countdowns once a second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
