package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"twitsent/pkg/collector"
	"twitsent/pkg/models"
)

const lineWidth = 120

// ProgressDisplay prints a single updating status line per series
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	series     string
	total      int
	completed  int
	items      int
	empty      int
	requests   int
	failures   int
	cooldowns  int
	current    models.TimeWindow
	startTime  time.Time
	isDebug    bool
	now        func() time.Time
	lineActive bool
}

// NewProgressDisplay creates a new progress display writing to out
func NewProgressDisplay(out io.Writer, series string, debug bool) *ProgressDisplay {
	if out == nil {
		out = Output
	}
	return &ProgressDisplay{
		out:       out,
		series:    series,
		isDebug:   debug,
		now:       time.Now,
		startTime: time.Now(),
	}
}

var _ collector.Observer = (*ProgressDisplay)(nil)

func (p *ProgressDisplay) IntervalStarted(index, total int, window models.TimeWindow) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = window
	if p.isDebug {
		p.printf("%s %s interval %d/%d %s\n", Magenta("→"), p.series, index+1, total, formatWindow(window))
		return
	}
	p.printProgress()
}

func (p *ProgressDisplay) IntervalCompleted(interval models.Interval, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.completed++
	p.items += len(interval.Items)
	if len(interval.Items) == 0 {
		p.empty++
	}
	if p.isDebug {
		p.printf("%s %s %d items\n", Green("✓"), formatWindow(interval.Window), len(interval.Items))
		return
	}
	p.printProgress()
}

func (p *ProgressDisplay) RequestCompleted(_ time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests++
	if err != nil {
		p.failures++
		if p.isDebug {
			p.printf("%s request failed: %v\n", Red("✗"), err)
		}
	}
}

func (p *ProgressDisplay) Throttled(cooldown time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cooldowns++
	p.breakLine()
	p.printf("%s Rate limit reached. Waiting %s...\n", Yellow("⚠"), FormatDuration(cooldown))
}

func (p *ProgressDisplay) Warned(w collector.Warning) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.breakLine()
	p.printf("%s %s\n", Yellow("⚠"), w.Message)
}

// Complete prints the closing summary for the series
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(p.startTime)
	p.breakLine()
	p.printf("%s Collected %d tweets over %d intervals for %s\n",
		Green("✓"), p.items, p.completed, p.series)
	p.printf("  %s %d requests in %s\n", Dim("•"), p.requests, FormatDuration(elapsed))
	if p.empty > 0 {
		p.printf("  %s %d intervals returned nothing\n", Dim("•"), p.empty)
	}
	if p.cooldowns > 0 {
		p.printf("  %s %d rate limit cooldowns\n", Dim("•"), p.cooldowns)
	}
}

// Stats returns completed intervals and collected items so far.
func (p *ProgressDisplay) Stats() (completed, items int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.items
}

func (p *ProgressDisplay) printProgress() {
	eta := "calculating..."
	if d, ok := ETA(p.completed, p.total, p.now().Sub(p.startTime)); ok {
		eta = FormatDuration(d)
	}

	line := fmt.Sprintf("%s [%s] %d/%d • %d tweets • %s",
		Cyan(p.series),
		Bar(p.completed, p.total, 20),
		p.completed,
		p.total,
		p.items,
		eta,
	)
	if p.failures > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.failures)))
	}

	p.printf("\r%s\r%s", strings.Repeat(" ", lineWidth), line)
	p.lineActive = true
}

// breakLine ends an in-place progress line before printing a full line.
func (p *ProgressDisplay) breakLine() {
	if p.lineActive {
		p.printf("\n")
		p.lineActive = false
	}
}

func (p *ProgressDisplay) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func formatWindow(w models.TimeWindow) string {
	const layout = "Jan 2 15:04"
	return w.Start.UTC().Format(layout) + " - " + w.End.UTC().Format(layout)
}
