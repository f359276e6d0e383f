// Package policy holds the pure, stateless scheduling decisions used by
// the store and the worker loop: retry exhaustion and backoff delay.
// Nothing here touches storage, the clock, or I/O.
package policy

import "time"

// IsExhausted reports whether a job with newAttempts completed attempts
// has used up its retry budget. newAttempts is the post-increment count
// (the attempt that just failed).
func IsExhausted(newAttempts, maxRetries int) bool {
	return newAttempts > maxRetries
}

// NextAttemptAt computes the next eligible time for a failed job, given
// the post-increment attempt count and the configured backoff base.
//
// delay = backoffBase ^ newAttempts seconds. newAttempts (not the
// pre-increment count) is deliberate: the first retry waits backoffBase
// seconds, not one, to avoid a thundering-herd retry immediately after
// the first failure. backoffBase == 1 degenerates to a flat one-second
// delay per retry, which is an accepted, intentional degenerate case.
func NextAttemptAt(newAttempts, backoffBase int, now time.Time) time.Time {
	return now.Add(BackoffDelay(newAttempts, backoffBase))
}

// BackoffDelay returns backoffBase^newAttempts as a time.Duration in
// seconds.
func BackoffDelay(newAttempts, backoffBase int) time.Duration {
	delay := 1
	for i := 0; i < newAttempts; i++ {
		delay *= backoffBase
	}
	return time.Duration(delay) * time.Second
}

// Eligible reports whether a failed job with the given next-attempt
// timestamp may be claimed at instant now. A nil nextAttemptAt means the
// job has never failed and is always eligible.
func Eligible(nextAttemptAt *time.Time, now time.Time) bool {
	if nextAttemptAt == nil {
		return true
	}
	return !nextAttemptAt.After(now)
}
