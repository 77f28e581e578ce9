// config.go
// ----------
// Retry policy configuration for the request executor. A RetryPolicy is
// plain configuration: it is copied into the executor at construction and
// never mutated at runtime.
package methodmcp

import (
	"math"
	"math/rand"
	"time"
)

// Method caps accounts at 100 requests per rolling minute; the daily cap
// (5,000-25,000 depending on licenses) is enforced server-side only.
const (
	DefaultRequestsPerMinute = 100
	DefaultTimeout           = 30 * time.Second
)

// RetryPolicy controls how many attempts the executor makes and how it
// backs off between them.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, not retries after the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap on any single backoff delay
	Multiplier  float64       // growth factor per attempt
	Jitter      float64       // random fraction (0-1) added to each delay
}

// DefaultRetryPolicy mirrors the documented client defaults: three attempts
// with 2s/4s backoff capped at 10s plus up to 25% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.25,
	}
}

// Delay returns the backoff duration before the given attempt (1-based).
// Attempt 1 has no delay; attempt n waits BaseDelay * Multiplier^(n-2),
// capped at MaxDelay, with random jitter added to avoid synchronized
// retries across concurrent tool calls.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-2))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	out := p
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = 2 * time.Second
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = 10 * time.Second
	}
	if out.Multiplier <= 0 {
		out.Multiplier = 2.0
	}
	return out
}
