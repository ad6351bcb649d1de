package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryableError marks a transient failure. After carries the wait the
// server asked for (Retry-After), or zero to use the policy's backoff.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. Retryable(nil) is nil.
func Retryable(err error) error {
	return RetryAfter(err, 0)
}

// RetryAfter is like [Retryable] but asks the policy to wait at least d
// before the next attempt.
func RetryAfter(err error, d time.Duration) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, After: max(d, 0)}
}

// IsRetryable reports whether err was marked with [Retryable].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	Attempts int           // Total tries, at least 1
	Delay    time.Duration // Wait before the second try; doubles after each failure
	MaxDelay time.Duration // Upper bound for any single wait, zero for none

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy is 3 attempts starting at one second, never waiting more
// than 30 seconds.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: time.Second, MaxDelay: 30 * time.Second}
}

// Do runs fn until it succeeds, fails with an error not marked retryable,
// or runs out of attempts. It returns the last error, or ctx.Err() if the
// context ends while waiting.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) || attempt == attempts {
			return err
		}

		wait := max(delay, re.After)
		if p.MaxDelay > 0 {
			wait = min(wait, p.MaxDelay)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

// Retry runs fn with [DefaultPolicy] overridden by attempts and delay.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	p := DefaultPolicy()
	p.Attempts, p.Delay = attempts, delay
	return p.Do(ctx, fn)
}

// ParseRetryAfter decodes a Retry-After header given either as seconds or
// as an HTTP date. Missing or unparsable values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0)
	}
	return 0
}
