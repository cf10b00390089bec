package ratelimit

import "time"

const (
	// WindowLength is the provider's rate-limit window.
	WindowLength = 15 * time.Minute

	// StandardCeiling is the recent-search request allowance per window.
	StandardCeiling = 450
	// ElevatedCeiling is the full-archive request allowance per window.
	ElevatedCeiling = 300

	// StandardPacing and ElevatedPacing keep a long run under its ceiling.
	StandardPacing = 2 * time.Second
	ElevatedPacing = 3 * time.Second

	// PerRequestCap is the most items one search request can return.
	PerRequestCap = 100
	// MinRequestResults is the smallest max_results the provider accepts.
	MinRequestResults = 10
)

// Ceiling returns the request allowance per window for the tier.
func Ceiling(elevated bool) int {
	if elevated {
		return ElevatedCeiling
	}
	return StandardCeiling
}

// PacingFor returns the default per-request pacing for the tier.
func PacingFor(elevated bool) time.Duration {
	if elevated {
		return ElevatedPacing
	}
	return StandardPacing
}
