package models

import (
	"math"
	"time"
)

// Result is the outcome of a single sliding-window check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a slot frees up; zero when allowed.
	RetryAfter int
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds,
// never returning less than one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
