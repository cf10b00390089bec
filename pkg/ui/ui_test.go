package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitsent/pkg/collector"
	"twitsent/pkg/config"
	"twitsent/pkg/models"
)

func init() {
	SetColor(false)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "━━━━━─────", Bar(5, 10, 10))
	assert.Equal(t, "──────────", Bar(0, 0, 10))
	assert.Equal(t, "━━━━━━━━━━", Bar(12, 10, 10))
	assert.Equal(t, "", Bar(1, 2, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "15m0s", FormatDuration(15*time.Minute))
	assert.Equal(t, "2h5m", FormatDuration(2*time.Hour+5*time.Minute))
	assert.Equal(t, "0s", FormatDuration(-time.Second))
}

func TestETA(t *testing.T) {
	_, ok := ETA(0, 10, time.Minute)
	assert.False(t, ok)

	d, ok := ETA(2, 6, time.Minute)
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, d)

	d, ok = ETA(6, 6, time.Minute)
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestProgressDisplay(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "keyword", false)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.startTime = start
	p.now = func() time.Time { return start.Add(time.Minute) }

	w := models.TimeWindow{Start: start, End: start.Add(time.Hour)}
	p.IntervalStarted(0, 2, w)
	p.RequestCompleted(time.Second, nil)
	p.IntervalCompleted(models.Interval{Index: 0, Window: w, Items: []string{"a", "b"}}, 2)
	p.Throttled(15 * time.Minute)
	p.IntervalStarted(1, 2, w)
	p.RequestCompleted(time.Second, errors.New("boom"))
	p.IntervalCompleted(models.Interval{Index: 1, Window: w}, 2)
	p.Warned(collector.Warning{Kind: collector.WarningCapacity, Message: "intervals too short"})
	p.Complete()

	out := buf.String()
	assert.Contains(t, out, "keyword [━━━━━━━━━━──────────] 1/2 • 2 tweets • 1m0s")
	assert.Contains(t, out, "Rate limit reached. Waiting 15m0s")
	assert.Contains(t, out, "1 errors")
	assert.Contains(t, out, "⚠ intervals too short")
	assert.Contains(t, out, "Collected 2 tweets over 2 intervals for keyword")
	assert.Contains(t, out, "1 intervals returned nothing")
	assert.Contains(t, out, "1 rate limit cooldowns")

	completed, items := p.Stats()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 2, items)
}

func TestProgressDisplayDebug(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "sample", true)
	start := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	w := models.TimeWindow{Start: start, End: start.Add(4 * time.Hour)}

	p.IntervalStarted(0, 1, w)
	p.IntervalCompleted(models.Interval{Window: w, Items: []string{"x"}}, 1)

	out := buf.String()
	assert.Contains(t, out, "→ sample interval 1/1 Jan 1 04:00 - Jan 1 08:00")
	assert.Contains(t, out, "✓ Jan 1 04:00 - Jan 1 08:00 1 items")
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, _ string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestNotifier(t *testing.T) {
	cfg := config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true, OnCooldown: true}
	sender := &recordingSender{}
	var buf bytes.Buffer
	n := NewNotifierWithSender(cfg, sender, &buf)

	n.Observer().Throttled(15 * time.Minute)
	n.Failed(errors.New("rate limit exhausted"))
	n.Completed("4 series saved")
	n.Failed(nil)

	assert.Equal(t, []string{"Rate limit reached", "Collection failed", "Collection complete"}, sender.titles)
	assert.Contains(t, buf.String(), "Cooling down for 15m0s")
	assert.Contains(t, buf.String(), "4 series saved")
}

func TestNotifierRespectsPreferences(t *testing.T) {
	sender := &recordingSender{}
	var buf bytes.Buffer
	n := NewNotifierWithSender(config.NotificationConfig{Enabled: true, OnError: true}, sender, &buf)

	n.Cooldown(time.Minute)
	n.Completed("done")
	assert.Empty(t, sender.titles)
	assert.Empty(t, buf.String())

	// Console output still appears when desktop notifications are off.
	n = NewNotifierWithSender(config.NotificationConfig{OnComplete: true}, sender, &buf)
	n.Completed("done")
	assert.Empty(t, sender.titles)
	assert.Contains(t, buf.String(), "Collection complete: done")
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	old := Output
	Output = &buf
	t.Cleanup(func() { Output = old })

	PrintInfo("Series", "keyword")
	PrintWarning("Skipped", "3 intervals")
	assert.Contains(t, buf.String(), "Series: keyword")
	assert.Contains(t, buf.String(), "Skipped: 3 intervals")
}
