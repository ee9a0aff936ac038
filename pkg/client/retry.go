package client

import "time"

// RetryPolicy governs the one-shot recovery applied when conversation
// creation hits a server error.
type RetryPolicy struct {
	// MaxAttempts is the total number of creation attempts.
	MaxAttempts int
	// Delay sits between attempts.
	Delay time.Duration
	// DevFallback fabricates a local conversation when every attempt
	// fails. Meant for development against an unreachable backend.
	DevFallback bool
}

// DefaultRetryPolicy retries once after one second, matching the
// interactive tolerance of a chat UI.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: time.Second}
}
