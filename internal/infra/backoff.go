package infra

import "time"

// CalculateBackoff returns the wait before retry number attempt (1-based):
// 2^attempt seconds, capped at maxDelay.
func CalculateBackoff(attempt int, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// 2^30s already exceeds any sane cap; avoid shifting past int64.
	if attempt >= 30 {
		return maxDelay
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}
