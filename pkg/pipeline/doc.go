// Package pipeline runs one collection end to end.
//
// A run collects two series over the same window: the keyword series matched
// by the configured rule and a baseline sample matched by common words. Both go
// through one shared throttler, so the rate-limit budget covers the whole run.
// The collected texts are scored, and four series (text and sentiment for each)
// are saved to the store. Fresh runs archive whatever was stored for the same
// cap and interval; extension runs append to it.
package pipeline
