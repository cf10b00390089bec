package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"twitsent/pkg/collector"
	"twitsent/pkg/models"
	"twitsent/pkg/ui"
)

var _ ui.Dashboard = (*TUI)(nil)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI for a run under the given rate-limit ceiling
func NewTUI(ceiling int, opts ...tea.ProgramOption) *TUI {
	model := NewModel(ceiling)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the TUI until it is stopped or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Model exposes the model for inspection after the run.
func (t *TUI) Model() *Model {
	return t.model
}

// Observer returns a collector.Observer that feeds the named series' progress into the TUI.
func (t *TUI) Observer(series string) collector.Observer {
	return &observer{tui: t, series: series}
}

// SeriesStarted registers a series before collection begins
func (t *TUI) SeriesStarted(series string, total int) {
	t.Send(SeriesStartMsg{Series: series, Total: total})
}

// UpdateRateLimit updates the rate limit status
func (t *TUI) UpdateRateLimit(used, ceiling int, resetAt time.Time) {
	t.Send(RateLimitUpdateMsg{Used: used, Max: ceiling, ResetAt: resetAt})
}

// TrackUsage polls usage every interval until ctx is done.
func (t *TUI) TrackUsage(ctx context.Context, interval time.Duration, usage func() (int, int, time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			used, ceiling, resetAt := usage()
			t.UpdateRateLimit(used, ceiling, resetAt)
		}
	}
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

// Done shows the final summary; the TUI stays up until the user quits.
func (t *TUI) Done(summary string) {
	t.Send(DoneMsg{Summary: summary})
}

type observer struct {
	tui    *TUI
	series string
}

func (o *observer) IntervalStarted(index, total int, window models.TimeWindow) {
	o.tui.Send(IntervalStartMsg{Series: o.series, Index: index, Total: total, Window: window})
}

func (o *observer) IntervalCompleted(interval models.Interval, total int) {
	o.tui.Send(IntervalDoneMsg{Series: o.series, Interval: interval, Total: total})
}

func (o *observer) RequestCompleted(d time.Duration, err error) {
	o.tui.Send(RequestMsg{Duration: d, Err: err})
}

func (o *observer) Throttled(cooldown time.Duration) {
	o.tui.Send(CooldownMsg{Series: o.series, Duration: cooldown})
}

func (o *observer) Warned(w collector.Warning) {
	o.tui.Send(WarningMsg{Series: o.series, Warning: w})
}
