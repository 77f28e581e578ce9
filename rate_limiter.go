// rate_limiter.go
// ----------------
// Process-wide rate limit state shared by every concurrent tool call, since
// they all draw from one remote account budget. Two pieces of state live
// here: the rolling minute-window request counter and the server-declared
// retry-after deadline. All reads and writes happen under one mutex so an
// interleaved operation never observes a partial update.
//
// Invariant: the stored retry-after deadline is either zero or in the
// future; Delay clears it the first time it is observed in the past.
package methodmcp

import (
	"sync"
	"time"
)

// RateLimitState tracks the account-wide request budget. Construct once at
// process start and inject into every executor; there is no teardown.
type RateLimitState struct {
	mu sync.Mutex

	maxPerWindow int
	window       time.Duration
	windowStart  time.Time
	windowCount  int

	retryAfterUntil time.Time

	clock func() time.Time // test hook
}

// NewRateLimitState returns state for maxPerWindow requests per rolling
// minute. maxPerWindow <= 0 falls back to the Method default of 100.
func NewRateLimitState(maxPerWindow int) *RateLimitState {
	if maxPerWindow <= 0 {
		maxPerWindow = DefaultRequestsPerMinute
	}
	return &RateLimitState{
		maxPerWindow: maxPerWindow,
		window:       time.Minute,
		clock:        time.Now,
	}
}

// Delay returns how long the next request must wait before sending, or 0 if
// it may proceed now. A stored retry-after deadline wins over the window
// counter; a deadline already in the past is cleared on the spot.
func (s *RateLimitState) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	if !s.retryAfterUntil.IsZero() {
		if now.Before(s.retryAfterUntil) {
			return s.retryAfterUntil.Sub(now)
		}
		s.retryAfterUntil = time.Time{}
	}

	s.rollWindowLocked(now)
	if s.windowCount >= s.maxPerWindow {
		return s.windowStart.Add(s.window).Sub(now)
	}
	return 0
}

// RecordSend counts one request against the current minute window. The
// window boundary is tracked by wall clock comparison, not a timer.
func (s *RateLimitState) RecordSend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.rollWindowLocked(now)
	s.windowCount++
}

// SetRetryAfter remembers a server-declared wait. A zero or negative
// duration is ignored; a shorter wait never shrinks a longer stored one.
func (s *RateLimitState) SetRetryAfter(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.clock().Add(d)
	if until.After(s.retryAfterUntil) {
		s.retryAfterUntil = until
	}
}

// WindowCount returns the number of requests counted in the current window.
func (s *RateLimitState) WindowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollWindowLocked(s.clock())
	return s.windowCount
}

// rollWindowLocked resets the counter whenever the window boundary has been
// crossed. Callers must hold s.mu.
func (s *RateLimitState) rollWindowLocked(now time.Time) {
	if s.windowStart.IsZero() {
		s.windowStart = now
		return
	}
	if now.Sub(s.windowStart) >= s.window {
		s.windowStart = now
		s.windowCount = 0
	}
}
