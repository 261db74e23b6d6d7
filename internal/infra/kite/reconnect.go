package kite

import (
	"sync"
	"time"

	"kite_ticker/internal/infra"
)

const (
	DefaultMaxRetries = 50
	MaxRetriesLimit   = 300

	DefaultMaxDelay = 60 * time.Second
	MinMaxDelay     = 5 * time.Second
)

// Policy is the effective reconnect configuration.
type Policy struct {
	Enabled    bool
	MaxRetries int
	MaxDelay   time.Duration
	Attempts   int
}

// Reconnector counts consecutive failures and turns them into backoff delays.
type Reconnector struct {
	mu         sync.Mutex
	enabled    bool
	maxRetries int
	maxDelay   time.Duration
	attempts   int
}

// NewReconnector clamps its inputs the same way Configure does.
func NewReconnector(enabled bool, maxRetries int, maxDelay time.Duration) *Reconnector {
	r := &Reconnector{}
	r.Configure(enabled, maxRetries, maxDelay)
	return r
}

// Configure replaces the policy. Zero values select the defaults; retries are
// capped at MaxRetriesLimit and the delay ceiling is raised to at least MinMaxDelay.
// The attempt counter is left alone.
func (r *Reconnector) Configure(enabled bool, maxRetries int, maxDelay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
	r.maxRetries = clampRetries(maxRetries)
	r.maxDelay = clampDelay(maxDelay)
}

func clampRetries(n int) int {
	switch {
	case n == 0:
		return DefaultMaxRetries
	case n < 1:
		return 1
	case n > MaxRetriesLimit:
		return MaxRetriesLimit
	}
	return n
}

func clampDelay(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultMaxDelay
	case d < MinMaxDelay:
		return MinMaxDelay
	}
	return d
}

// Next records one more failure. ok is false once the attempt count exceeds
// the retry ceiling.
func (r *Reconnector) Next() (attempt int, delay time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts > r.maxRetries {
		return r.attempts, 0, false
	}
	return r.attempts, infra.CalculateBackoff(r.attempts, r.maxDelay), true
}

// Reset is called after a successful connection.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	r.attempts = 0
	r.mu.Unlock()
}

func (r *Reconnector) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *Reconnector) Policy() Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Policy{
		Enabled:    r.enabled,
		MaxRetries: r.maxRetries,
		MaxDelay:   r.maxDelay,
		Attempts:   r.attempts,
	}
}
