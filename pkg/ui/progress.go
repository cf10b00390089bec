package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
)

// Bar renders done/total as a fixed-width bar. A zero total renders empty.
func Bar(done, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// ETA estimates the time left from the average pace so far. It returns false
// until at least one unit of work has finished.
func ETA(done, total int, elapsed time.Duration) (time.Duration, bool) {
	if done <= 0 || elapsed <= 0 {
		return 0, false
	}
	remaining := total - done
	if remaining <= 0 {
		return 0, true
	}
	per := elapsed / time.Duration(done)
	return per * time.Duration(remaining), true
}
