package delivery

import "time"

// RetryPolicy defines backoff for failed queued deliveries.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times after 60s, 120s and 240s.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  60 * time.Second,
	MaxDelay:   time.Hour,
}

// Delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay * time.Duration(1<<attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// ShouldRetry reports whether another attempt is allowed after attempt
// failures.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}
