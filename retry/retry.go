/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry provides backoff policies and helpers to run operations with retries.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable defines a func that can tell if error is retryable as opposed to persistent.
type IsRetryable func(error) bool

// RetryableFunc is function that does some work and can be potentially retried.
type RetryableFunc func(ctx context.Context) error

// RetryableDataFunc is like RetryableFunc but also produces a value.
type RetryableDataFunc[T any] func(ctx context.Context) (T, error)

// Notify is called on every failed attempt that will be retried, with the error and the delay before the next attempt.
type Notify = backoff.Notify

// Timer is used to wait between attempts. A nil Timer means time.Timer.
type Timer = backoff.Timer

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// DoWithRetry executes fn with retry according to policy p and with respect to context ctx.
// IsRetryable defines which errors lead to retry attempt (can be nil for any error).
// Notify can be used to receive notification on every retry with error and backoff delay
// (can be nil if no notifications required).
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify Notify, fn RetryableFunc) error {
	_, err := DoWithRetryData(ctx, p, isRetryable, notify, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithRetryData executes fn with retry and returns the value produced by the first successful attempt.
// Delays between attempts are awaited on timer (nil means a regular time.Timer)
// and are interrupted when ctx is done, in which case ctx.Err() is returned.
func DoWithRetryData[T any](
	ctx context.Context, p Policy, isRetryable IsRetryable, notify Notify, timer Timer, fn RetryableDataFunc[T],
) (T, error) {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	var op backoff.OperationWithData[T] = func() (T, error) {
		val, err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return val, backoff.Permanent(err)
		}
		return val, err
	}
	return backoff.RetryNotifyWithTimerAndData(op, bctx, notify, timer)
}

// The PolicyFunc type is an adapter to allow the use of ordinary functions as retry.Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements retry.Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// ExponentialBackoffPolicy means repeat up to max times with exponentially growing delays (1.5 multiplier).
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxAttempts     int
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with given initial interval and max retry attempt count.
// Zero maxRetryAttempts means unlimited retries.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval, maxRetryAttempts}
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	var bf backoff.BackOff = eb
	if p.maxAttempts > 0 {
		bf = backoff.WithMaxRetries(eb, uint64(p.maxAttempts))
	}
	bf.Reset()
	return bf
}

// ConstantBackoffPolicy means repeat up to max times with constant interval delays.
type ConstantBackoffPolicy struct {
	interval    time.Duration
	maxAttempts int
}

// NewConstantBackoffPolicy returns a constant backoff policy with given interval and max retry attempt count.
// Zero maxRetryAttempts means unlimited retries.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval, maxRetryAttempts}
}

// NewBackOff implements retry.Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	var bf backoff.BackOff = backoff.NewConstantBackOff(p.interval)
	if p.maxAttempts > 0 {
		bf = backoff.WithMaxRetries(bf, uint64(p.maxAttempts))
	}
	bf.Reset()
	return bf
}

// BoundedConstantPolicy returns a policy that performs at most maxAttempts attempts in total
// with a constant delay between them. maxAttempts <= 1 means no retries at all.
func BoundedConstantPolicy(interval time.Duration, maxAttempts int) Policy {
	return PolicyFunc(func() backoff.BackOff {
		retries := 0
		if maxAttempts > 1 {
			retries = maxAttempts - 1
		}
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(retries))
	})
}
