package worker

import (
	"time"

	"carrental/internal/config"
)

// RetryPolicy spaces out repeated attempts to push a booking change to the
// spreadsheet. Delays grow by BackoffFactor and are capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NewRetryPolicy builds the sheets retry policy from the google.retry
// config section. Durations were already checked by config.Validate.
func NewRetryPolicy(cfg config.SheetsRetryConfig) RetryPolicy {
	initial, _ := time.ParseDuration(cfg.InitialDelay)
	maxDelay, _ := time.ParseDuration(cfg.MaxDelay)
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  initial,
		MaxDelay:      maxDelay,
		BackoffFactor: cfg.Factor,
	}.withDefaults()
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = time.Minute
	}
	if r.MaxDelay < r.InitialDelay {
		r.MaxDelay = r.InitialDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = 2
	}
	return r
}

// Exhausted reports whether a task that just failed its attempt-th try
// should go to the dead-letter list instead of being rescheduled.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay returns the wait before retrying after the attempt-th failure.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	delay := r.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * r.BackoffFactor)
		if delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	return delay
}
