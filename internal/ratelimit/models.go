// Package ratelimit throttles evidence ingest. Adapters batch aggressively
// during backfills; the limiter keeps one noisy client from starving the
// rest without rejecting steady traffic.
package ratelimit

import "time"

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfterSeconds is the whole number of seconds a denied caller should
// wait, never less than one.
func (r *Result) RetryAfterSeconds(now time.Time) int {
	seconds := int(r.ResetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}
