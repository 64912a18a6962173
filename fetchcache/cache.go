/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/xid"

	"github.com/acronis/go-fetchkit/log"
	"github.com/acronis/go-fetchkit/reporting"
	"github.com/acronis/go-fetchkit/retry"
)

// Default values for Opts.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 400 * time.Millisecond
)

const failureReportMsg = "failed to fetch item"

// RetryMode defines what a retry does with the failed call registered for the key.
type RetryMode int

// Retry modes.
const (
	// RetryModeFreshAttempt drops the failed registration, so every retry starts a new remote lookup.
	RetryModeFreshAttempt RetryMode = iota

	// RetryModeReuseAttempt keeps the failed registration, retries re-await the same failed call.
	RetryModeReuseAttempt
)

// String returns the configuration name of the retry mode.
func (m RetryMode) String() string {
	switch m {
	case RetryModeFreshAttempt:
		return "fresh"
	case RetryModeReuseAttempt:
		return "reuse"
	}
	return fmt.Sprintf("RetryMode(%d)", int(m))
}

// LookupFunc performs the remote lookup of the value for the key. Any non-nil error is a failure.
type LookupFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Opts represents options for the Cache.
type Opts struct {
	// MaxAttempts is the default number of remote attempts Fetch makes for a key before giving up.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	// RetryDelay is the fixed delay between attempts. Zero means DefaultRetryDelay.
	RetryDelay time.Duration

	// RetryMode defines how retries treat the failed call. RetryModeFreshAttempt is used by default.
	RetryMode RetryMode

	// Reporter receives terminal failures. If nil, failures are logged at error level.
	Reporter reporting.Reporter

	// Logger is used for diagnostic messages. If nil, logging is disabled.
	Logger log.FieldLogger

	// MetricsCollector collects cache usage statistics. If nil, metrics are disabled.
	MetricsCollector MetricsCollector
}

type call[V any] struct {
	id   xid.ID
	done chan struct{}
	val  V
	err  error
}

// Cache is a keyed fetch cache. Concurrent fetches of the same key share a single remote lookup,
// and successful results are memoized for the lifetime of the cache.
type Cache[K comparable, V any] struct {
	lookup      LookupFunc[K, V]
	calls       *xsync.MapOf[K, *call[V]]
	maxAttempts int
	retryDelay  time.Duration
	retryMode   RetryMode
	reporter    reporting.Reporter
	logger      log.FieldLogger

	metricsCollector MetricsCollector
}

// New creates a new Cache that gets values with the lookup function.
func New[K comparable, V any](lookup LookupFunc[K, V], opts Opts) (*Cache[K, V], error) {
	if lookup == nil {
		return nil, fmt.Errorf("lookup function must be specified")
	}
	if opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("maxAttempts must be greater or equal to 0 (default)")
	}
	if opts.RetryDelay < 0 {
		return nil, fmt.Errorf("retryDelay must be greater or equal to 0 (default)")
	}
	if opts.RetryMode != RetryModeFreshAttempt && opts.RetryMode != RetryModeReuseAttempt {
		return nil, fmt.Errorf("unknown retry mode %s", opts.RetryMode)
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Reporter == nil {
		opts.Reporter = reporting.NewLogReporter(opts.Logger)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetricsCollector
	}
	return &Cache[K, V]{
		lookup:           lookup,
		calls:            xsync.NewMapOf[K, *call[V]](),
		maxAttempts:      opts.MaxAttempts,
		retryDelay:       opts.RetryDelay,
		retryMode:        opts.RetryMode,
		reporter:         opts.Reporter,
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
	}, nil
}

// NewWithConfig creates a new Cache with attempts, delay and retry mode taken from the configuration.
// The corresponding fields of opts are ignored.
func NewWithConfig[K comparable, V any](lookup LookupFunc[K, V], cfg *Config, opts Opts) (*Cache[K, V], error) {
	opts.MaxAttempts = cfg.MaxAttempts
	opts.RetryDelay = time.Duration(cfg.RetryDelay)
	opts.RetryMode = cfg.RetryMode
	return New(lookup, opts)
}

// Fetch returns the value for the key making up to the default number of attempts.
// The second result is false if the value could not be fetched;
// in that case the failure has already been passed to the reporter.
func (c *Cache[K, V]) Fetch(ctx context.Context, key K) (V, bool) {
	return c.FetchWithAttempts(ctx, key, c.maxAttempts)
}

// FetchWithAttempts is like Fetch but makes up to maxAttempts attempts. Values less than 1 mean a single attempt.
//
// If ctx is done while waiting for the shared call or for the next attempt, FetchWithAttempts stops waiting
// and returns an absent result without reporting it. The shared remote lookup keeps running for other callers.
func (c *Cache[K, V]) FetchWithAttempts(ctx context.Context, key K, maxAttempts int) (V, bool) {
	var zeroVal V
	var zeroKey K
	if key == zeroKey {
		c.metricsCollector.IncFailures()
		c.reporter.Report(ctx, failureReportMsg, ErrEmptyKey)
		return zeroVal, false
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	logger := c.logger.With(log.Any("key", key))
	attempt := 0
	notify := func(err error, delay time.Duration) {
		c.metricsCollector.IncRetries()
		logger.Warn("fetch attempt failed, retrying",
			log.Int("attempt", attempt), log.Int("max_attempts", maxAttempts), log.Duration("delay", delay), log.Error(err))
	}
	isRetryable := func(error) bool {
		return ctx.Err() == nil
	}
	policy := retry.BoundedConstantPolicy(c.retryDelay, maxAttempts)
	val, err := retry.DoWithRetryData(ctx, policy, isRetryable, notify, nil, func(ctx context.Context) (V, error) {
		attempt++
		return c.await(ctx, key)
	})
	if err == nil {
		return val, true
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		logger.Debug("fetch canceled", log.Int("attempt", attempt), log.Error(err))
		return zeroVal, false
	}
	c.metricsCollector.IncFailures()
	ctx = reporting.AddExtrasToContext(ctx, map[string]string{
		"key":      fmt.Sprint(key),
		"attempts": fmt.Sprint(attempt),
	})
	c.reporter.Report(ctx, failureReportMsg, err)
	return zeroVal, false
}

// Len returns the number of keys with a registered call (both in-flight and completed).
func (c *Cache[K, V]) Len() int {
	return c.calls.Size()
}

// await returns the outcome of the call registered for the key, starting a new one if there is none.
func (c *Cache[K, V]) await(ctx context.Context, key K) (V, error) {
	cl := c.register(ctx, key)
	select {
	case <-cl.done:
		return cl.val, cl.err
	case <-ctx.Done():
		select {
		case <-cl.done:
			return cl.val, cl.err
		default:
		}
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[K, V]) register(ctx context.Context, key K) *call[V] {
	var created *call[V]
	cl, loaded := c.calls.LoadOrCompute(key, func() *call[V] {
		created = &call[V]{id: xid.New(), done: make(chan struct{})}
		return created
	})
	if loaded {
		c.metricsCollector.IncHits()
		return cl
	}
	c.metricsCollector.IncMisses()
	c.metricsCollector.SetAmount(c.calls.Size())
	go c.run(context.WithoutCancel(ctx), key, created)
	return cl
}

// run performs the remote lookup for the call. Panics and runtime.Goexit in the lookup become call failures.
func (c *Cache[K, V]) run(ctx context.Context, key K, cl *call[V]) {
	logger := c.logger.With(log.Any("key", key), log.String("attempt_id", cl.id.String()))
	logger.Debug("remote lookup started")
	startTime := time.Now()

	normalReturn := false
	recovered := false

	// double-defer to distinguish panic from runtime.Goexit
	defer func() {
		if !normalReturn && !recovered {
			cl.err = ErrGoexit
		}
		if cl.err != nil {
			logger.Warn("remote lookup failed", log.Duration("duration", time.Since(startTime)), log.Error(cl.err))
			if c.retryMode == RetryModeFreshAttempt {
				c.forget(key, cl)
			}
		} else {
			logger.Debug("remote lookup succeeded", log.Duration("duration", time.Since(startTime)))
		}
		close(cl.done)
	}()

	defer func() {
		if !normalReturn {
			if v := recover(); v != nil {
				cl.err = newPanicError(v)
				recovered = true
			}
		}
	}()

	cl.val, cl.err = c.lookup(ctx, key)
	normalReturn = true
}

// forget removes the registration of the key if it still belongs to the call.
func (c *Cache[K, V]) forget(key K, cl *call[V]) {
	c.calls.Compute(key, func(old *call[V], loaded bool) (*call[V], bool) {
		if loaded && old != cl {
			return old, false
		}
		return old, true
	})
	c.metricsCollector.SetAmount(c.calls.Size())
}
