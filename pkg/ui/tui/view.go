package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"twitsent/pkg/models"
	"twitsent/pkg/ui"
)

// View renders the entire TUI
func (m *Model) View() string {
	m.mu.RLock()
	width, height, showHelp := m.width, m.height, m.showHelp
	m.mu.RUnlock()

	if width == 0 || height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(width).Render(ui.ASCIILogo))

	columnWidth := (width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(columnWidth),
		m.renderSeriesPanel(columnWidth),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRateLimitPanel(columnWidth),
		m.renderLogsPanel(columnWidth, height),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if showHelp {
		sections = append(sections, m.renderHelp(width))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(width).Height(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func statLine(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// renderStatsPanel renders the statistics panel
func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" COLLECTION ")

	completed, total, items := m.Totals()
	eta := m.ETA()
	cooldownLeft, cooling := m.CoolingDown()

	m.mu.RLock()
	elapsed := m.now().Sub(m.sessionStartTime)
	stats := []string{
		statLine("Session Time:", formatDuration(elapsed)),
		statLine("Intervals:", fmt.Sprintf("%d/%d", completed, total)),
		statLine("Tweets:", fmt.Sprintf("%d", items)),
		statLine("Requests:", fmt.Sprintf("%d (%d failed)", m.requests, m.failedRequests)),
		statLine("Cooldowns:", fmt.Sprintf("%d", m.cooldowns)),
		statLine("ETA:", formatDuration(eta)),
	}
	done, summary := m.done, m.summary
	spin := m.spinner.View()
	m.mu.RUnlock()

	switch {
	case done:
		stats = append(stats, successStyle.Render("✓ "+summary))
	case cooling:
		stats = append(stats, warningStyle.Render("⏸  Cooling down, "+formatDuration(cooldownLeft)+" left"))
	default:
		stats = append(stats, spin+" collecting")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

// renderSeriesPanel renders one progress bar per series
func (m *Model) renderSeriesPanel(width int) string {
	title := titleStyle.Render(" SERIES ")
	series := m.Series()

	if len(series) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Waiting for the first interval")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	m.mu.RLock()
	bar := m.bar
	m.mu.RUnlock()
	bar.Width = max(width-12, 10)

	var rows []string
	for _, s := range series {
		style := seriesPendingStyle
		switch s.State {
		case SeriesActive:
			style = seriesActiveStyle
		case SeriesCompleted:
			style = seriesCompletedStyle
		}
		info := fmt.Sprintf("%s %s",
			style.Render(s.Name),
			lipgloss.NewStyle().Foreground(dimWhite).Render(
				fmt.Sprintf("%d/%d intervals • %d tweets • %d empty", s.Completed, s.Total, s.Items, s.Empty)),
		)
		rows = append(rows, info, bar.ViewAs(s.Fraction()))
		if s.State == SeriesActive && !s.Current.Start.IsZero() {
			rows = append(rows, logTimestampStyle.Render("  "+formatWindow(s.Current)))
		}
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

// renderRateLimitPanel renders the rate limit status
func (m *Model) renderRateLimitPanel(width int) string {
	m.mu.RLock()
	used, ceiling, resetAt := m.rateLimitUsed, m.rateLimitMax, m.rateLimitResetAt
	now := m.now()
	m.mu.RUnlock()

	title := titleStyle.Render(" RATE LIMIT ")

	usage := 0.0
	if ceiling > 0 {
		usage = float64(used) / float64(ceiling) * 100
	}
	barWidth := max(width-8, 1)
	filled := min(int(usage*float64(barWidth)/100), barWidth)

	barStyle := GetRateLimitStyle(usage)
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	resetIn := resetAt.Sub(now)
	if resetAt.IsZero() || resetIn < 0 {
		resetIn = 0
	}

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Window:"),
			barStyle.Render(fmt.Sprintf("%d/%d (%.0f%%)", used, ceiling, usage))),
		bar,
		statLine("Oldest expires in:", formatDuration(resetIn)),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width, height int) string {
	m.mu.RLock()
	start := max(len(m.logMessages)-10, 0)
	recent := append([]LogMessage(nil), m.logMessages[start:]...)
	m.mu.RUnlock()

	title := titleStyle.Render(" LOG ")

	maxMsgLen := max(width-25, 10)
	var logs []string
	for _, log := range recent {
		msg := log.Message
		if len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen-3] + "..."
		}
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(msg)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := max(height-30, 5)
	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp(width int) string {
	help := `
  Keys:
    q/Q      - Quit (the run is cancelled)
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Status:
    ` + successStyle.Render("Green") + `    - Series finished
    ` + warningStyle.Render("Orange") + `   - Cooldown or warning
    ` + errorStyle.Render("Red") + `      - Request failed
`
	return panelStyle.Width(width).Render(help)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func formatWindow(w models.TimeWindow) string {
	const layout = "Jan 2 15:04"
	return w.Start.UTC().Format(layout) + " - " + w.End.UTC().Format(layout)
}
