package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitsent/pkg/collector"
	"twitsent/pkg/models"
)

func fixedModel(t *testing.T) (*Model, *time.Time) {
	t.Helper()
	m := NewModel(450)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	m.sessionStartTime = now
	m.now = func() time.Time { return now }
	return m, &now
}

func window(hoursAgo int) models.TimeWindow {
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC).Add(-time.Duration(hoursAgo) * time.Hour)
	return models.TimeWindow{Start: end.Add(-4 * time.Hour), End: end}
}

func TestModelSeriesProgress(t *testing.T) {
	m, _ := fixedModel(t)

	m.AddSeries("keyword", 2)
	m.AddSeries("sample", 2)
	m.StartInterval("keyword", 2, window(0))
	m.CompleteInterval("keyword", models.Interval{Items: []string{"a", "b", "c"}}, 2)
	m.StartInterval("keyword", 2, window(4))
	m.CompleteInterval("keyword", models.Interval{}, 2)

	series := m.Series()
	require.Len(t, series, 2)
	assert.Equal(t, "keyword", series[0].Name)
	assert.Equal(t, SeriesCompleted, series[0].State)
	assert.Equal(t, 3, series[0].Items)
	assert.Equal(t, 1, series[0].Empty)
	assert.InDelta(t, 1.0, series[0].Fraction(), 1e-9)
	assert.Equal(t, SeriesPending, series[1].State)
	assert.Zero(t, series[1].Fraction())

	completed, total, items := m.Totals()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, items)
}

func TestModelETA(t *testing.T) {
	m, now := fixedModel(t)
	m.AddSeries("keyword", 4)
	assert.Zero(t, m.ETA())

	m.CompleteInterval("keyword", models.Interval{}, 4)
	*now = now.Add(2 * time.Minute)
	assert.Equal(t, 6*time.Minute, m.ETA())
}

func TestModelCooldown(t *testing.T) {
	m, now := fixedModel(t)

	_, cooling := m.CoolingDown()
	assert.False(t, cooling)

	m.StartCooldown(15 * time.Minute)
	left, cooling := m.CoolingDown()
	assert.True(t, cooling)
	assert.Equal(t, 15*time.Minute, left)

	*now = now.Add(16 * time.Minute)
	_, cooling = m.CoolingDown()
	assert.False(t, cooling)
}

func TestUpdateMessages(t *testing.T) {
	m, _ := fixedModel(t)

	m.Update(SeriesStartMsg{Series: "keyword", Total: 3})
	m.Update(IntervalStartMsg{Series: "keyword", Index: 0, Total: 3, Window: window(0)})
	m.Update(RequestMsg{Duration: time.Second})
	m.Update(RequestMsg{Duration: time.Second, Err: errors.New("timeout")})
	m.Update(IntervalDoneMsg{Series: "keyword", Interval: models.Interval{Items: []string{"x"}}, Total: 3})
	m.Update(CooldownMsg{Series: "keyword", Duration: 15 * time.Minute})
	m.Update(WarningMsg{Series: "keyword", Warning: collector.Warning{Kind: collector.WarningCapacity, Message: "too short"}})
	m.Update(RateLimitUpdateMsg{Used: 40, Max: 450, ResetAt: time.Now()})
	m.Update(DoneMsg{Summary: "done"})

	assert.Equal(t, 2, m.requests)
	assert.Equal(t, 1, m.failedRequests)
	assert.Equal(t, 1, m.cooldowns)
	assert.Equal(t, 2, m.warnings)
	assert.Equal(t, 40, m.rateLimitUsed)
	assert.True(t, m.done)

	levels := make([]string, 0, len(m.logMessages))
	for _, l := range m.logMessages {
		levels = append(levels, l.Level)
	}
	assert.Equal(t, []string{"INFO", "ERROR", "WARN", "WARN", "SUCCESS"}, levels)
}

func TestLogTrimming(t *testing.T) {
	m, _ := fixedModel(t)
	for i := 0; i < 60; i++ {
		m.AddLogMessage("INFO", "line")
	}
	assert.Len(t, m.logMessages, 50)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logMessages)
}

func TestKeys(t *testing.T) {
	m, _ := fixedModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Nil(t, cmd)
	assert.True(t, m.showHelp)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestView(t *testing.T) {
	m, _ := fixedModel(t)
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 160, Height: 60})
	m.Update(SeriesStartMsg{Series: "keyword", Total: 3})
	m.Update(IntervalStartMsg{Series: "keyword", Total: 3, Window: window(0)})

	view := m.View()
	assert.Contains(t, view, "COLLECTION")
	assert.Contains(t, view, "SERIES")
	assert.Contains(t, view, "RATE LIMIT")
	assert.Contains(t, view, "keyword")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:45", formatDuration(45*time.Second))
	assert.Equal(t, "15:00", formatDuration(15*time.Minute))
	assert.Equal(t, "01:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "00:00", formatDuration(-time.Second))
}
