// Package ratelimit knows the provider's request ceilings and keeps a run under them.
//
// The search API allows a fixed number of requests per 15-minute window, and the
// number depends on the access tier. Pacer inserts a fixed delay after every
// successful request when a run is expected to cross that ceiling. Window tracks
// how much of the current window has been used so progress displays can show it.
package ratelimit
