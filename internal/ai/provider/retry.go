package provider

import "time"

// RetryConfig bounds the adapter's internal retry budget. Backoff is
// exponential: InitialDelay doubled per attempt, capped at MaxDelay.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig matches the observed policy: three attempts, 500ms
// base delay, ceiling on the order of ten seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// Delay returns the backoff before the attempt following the given one.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.InitialDelay << (attempt - 1)
	if d > c.MaxDelay || d <= 0 {
		return c.MaxDelay
	}
	return d
}
