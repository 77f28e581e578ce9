package methodmcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_FirstAttemptHasNoDelay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Duration(0), p.Delay(1))
}

func TestRetryPolicy_ExponentialGrowthWithJitter(t *testing.T) {
	p := DefaultRetryPolicy()

	for attempt, base := range map[int]time.Duration{
		2: 2 * time.Second,
		3: 4 * time.Second,
	} {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, base, "attempt %d", attempt)
		assert.LessOrEqual(t, d, base+time.Duration(float64(base)*p.Jitter), "attempt %d", attempt)
	}
}

func TestRetryPolicy_CapsAtMaxDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0}

	d := p.Delay(9)
	assert.Equal(t, 5*time.Second, d)
}

func TestRetryPolicy_WithDefaultsFillsZeroes(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.BaseDelay)
	assert.Equal(t, 10*time.Second, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)
}
