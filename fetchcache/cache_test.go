/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package fetchcache

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-fetchkit/log/logtest"
	"github.com/acronis/go-fetchkit/testutil"
)

type testItem struct {
	ID   string
	Name string
}

type report struct {
	msg string
	err error
}

type reportRecorder struct {
	mu      sync.Mutex
	reports []report
}

func (r *reportRecorder) Report(_ context.Context, msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{msg, err})
}

func (r *reportRecorder) Reports() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

var errLookupFailed = errors.New("remote lookup failed")

func TestCacheFetch(t *testing.T) {
	t.Run("concurrent fetches share one lookup", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			release := make(chan struct{})
			cache, err := New(func(ctx context.Context, key string) (testItem, error) {
				lookups.Inc()
				<-release
				return testItem{ID: key, Name: "photo.jpg"}, nil
			}, Opts{})
			require.NoError(t, err)

			const numCallers = 10
			results := make([]testItem, numCallers)
			var wg sync.WaitGroup
			for i := 0; i < numCallers; i++ {
				wg.Go(func() {
					item, ok := cache.Fetch(context.Background(), "item-1")
					assert.True(t, ok)
					results[i] = item
				})
			}
			synctest.Wait()
			require.Equal(t, int32(1), lookups.Load())
			require.Equal(t, 1, cache.Len())

			close(release)
			wg.Wait()
			for _, item := range results {
				require.Equal(t, testItem{ID: "item-1", Name: "photo.jpg"}, item)
			}
			require.Equal(t, int32(1), lookups.Load())
		})
	})

	t.Run("successful result is memoized", func(t *testing.T) {
		lookups := atomic.NewInt32(0)
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			lookups.Inc()
			return testItem{ID: key}, nil
		}, Opts{})
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			item, ok := cache.Fetch(context.Background(), "item-1")
			require.True(t, ok)
			require.Equal(t, "item-1", item.ID)
		}
		item, ok := cache.Fetch(context.Background(), "item-2")
		require.True(t, ok)
		require.Equal(t, "item-2", item.ID)

		require.Equal(t, int32(2), lookups.Load())
		require.Equal(t, 2, cache.Len())
	})

	t.Run("empty key is reported", func(t *testing.T) {
		lookups := atomic.NewInt32(0)
		reporter := &reportRecorder{}
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			lookups.Inc()
			return testItem{ID: key}, nil
		}, Opts{Reporter: reporter})
		require.NoError(t, err)

		item, ok := cache.Fetch(context.Background(), "")
		require.False(t, ok)
		require.Zero(t, item)
		require.Equal(t, []report{{failureReportMsg, ErrEmptyKey}}, reporter.Reports())
		require.Zero(t, lookups.Load())
		require.Zero(t, cache.Len())
	})

	t.Run("lookup gets values of the caller context", func(t *testing.T) {
		type ctxKey struct{}
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			return testItem{ID: key, Name: ctx.Value(ctxKey{}).(string)}, nil
		}, Opts{})
		require.NoError(t, err)

		item, ok := cache.Fetch(context.WithValue(context.Background(), ctxKey{}, "from-ctx"), "item-1")
		require.True(t, ok)
		require.Equal(t, "from-ctx", item.Name)
	})
}

func TestCacheFetchRetries(t *testing.T) {
	alwaysFailing := func(lookups *atomic.Int32) LookupFunc[string, testItem] {
		return func(ctx context.Context, key string) (testItem, error) {
			lookups.Inc()
			return testItem{}, errLookupFailed
		}
	}

	t.Run("fresh attempt mode makes a new lookup on every retry", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			reporter := &reportRecorder{}
			cache, err := New(alwaysFailing(lookups), Opts{Reporter: reporter})
			require.NoError(t, err)

			startTime := time.Now()
			item, ok := cache.Fetch(context.Background(), "item-1")
			require.False(t, ok)
			require.Zero(t, item)
			require.Equal(t, 2*DefaultRetryDelay, time.Since(startTime))
			require.Equal(t, int32(DefaultMaxAttempts), lookups.Load())
			require.Equal(t, []report{{failureReportMsg, errLookupFailed}}, reporter.Reports())
			require.Zero(t, cache.Len())
		})
	})

	t.Run("reuse attempt mode re-awaits the failed call", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			reporter := &reportRecorder{}
			cache, err := New(alwaysFailing(lookups), Opts{RetryMode: RetryModeReuseAttempt, Reporter: reporter})
			require.NoError(t, err)

			for i := 1; i <= 2; i++ {
				startTime := time.Now()
				_, ok := cache.Fetch(context.Background(), "item-1")
				require.False(t, ok)
				require.Equal(t, 2*DefaultRetryDelay, time.Since(startTime))
				require.Len(t, reporter.Reports(), i)
			}
			require.Equal(t, int32(1), lookups.Load())
			require.Equal(t, 1, cache.Len())
		})
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			reporter := &reportRecorder{}
			cache, err := New(func(ctx context.Context, key string) (testItem, error) {
				if lookups.Inc() < 3 {
					return testItem{}, errLookupFailed
				}
				return testItem{ID: key}, nil
			}, Opts{Reporter: reporter})
			require.NoError(t, err)

			startTime := time.Now()
			item, ok := cache.Fetch(context.Background(), "item-1")
			require.True(t, ok)
			require.Equal(t, "item-1", item.ID)
			require.Equal(t, 2*DefaultRetryDelay, time.Since(startTime))
			require.Empty(t, reporter.Reports())

			_, ok = cache.Fetch(context.Background(), "item-1")
			require.True(t, ok)
			require.Equal(t, int32(3), lookups.Load())
		})
	})

	t.Run("custom attempts and delay", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			reporter := &reportRecorder{}
			cache, err := New(alwaysFailing(lookups), Opts{MaxAttempts: 5, RetryDelay: time.Second, Reporter: reporter})
			require.NoError(t, err)

			startTime := time.Now()
			_, ok := cache.Fetch(context.Background(), "item-1")
			require.False(t, ok)
			require.Equal(t, 4*time.Second, time.Since(startTime))
			require.Equal(t, int32(5), lookups.Load())

			startTime = time.Now()
			_, ok = cache.FetchWithAttempts(context.Background(), "item-1", 2)
			require.False(t, ok)
			require.Equal(t, time.Second, time.Since(startTime))
			require.Equal(t, int32(7), lookups.Load())
			require.Len(t, reporter.Reports(), 2)
		})
	})

	t.Run("non-positive attempts mean a single attempt", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			for _, maxAttempts := range []int{1, 0, -1} {
				lookups := atomic.NewInt32(0)
				reporter := &reportRecorder{}
				cache, err := New(alwaysFailing(lookups), Opts{Reporter: reporter})
				require.NoError(t, err)

				startTime := time.Now()
				_, ok := cache.FetchWithAttempts(context.Background(), "item-1", maxAttempts)
				require.False(t, ok)
				require.Zero(t, time.Since(startTime))
				require.Equal(t, int32(1), lookups.Load())
				require.Len(t, reporter.Reports(), 1)
			}
		})
	})

	t.Run("concurrent callers share every retry attempt", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			reporter := &reportRecorder{}
			cache, err := New(alwaysFailing(lookups), Opts{Reporter: reporter})
			require.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Go(func() {
					_, ok := cache.Fetch(context.Background(), "item-1")
					assert.False(t, ok)
				})
			}
			wg.Wait()
			require.LessOrEqual(t, lookups.Load(), int32(DefaultMaxAttempts*5))
			require.GreaterOrEqual(t, lookups.Load(), int32(DefaultMaxAttempts))
			require.Len(t, reporter.Reports(), 5)
		})
	})

	t.Run("retries are logged", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			logRecorder := logtest.NewRecorder()
			cache, err := New(alwaysFailing(atomic.NewInt32(0)), Opts{Logger: logRecorder, Reporter: &reportRecorder{}})
			require.NoError(t, err)

			_, ok := cache.Fetch(context.Background(), "item-1")
			require.False(t, ok)

			retryEntries := logRecorder.FindAllEntriesByFilter(func(entry logtest.RecordedEntry) bool {
				return entry.Text == "fetch attempt failed, retrying"
			})
			require.Len(t, retryEntries, DefaultMaxAttempts-1)
			for _, entry := range retryEntries {
				_, found := entry.FindField("attempt")
				require.True(t, found)
				_, found = entry.FindField("delay")
				require.True(t, found)
			}

			failedEntries := logRecorder.FindAllEntriesByFilter(func(entry logtest.RecordedEntry) bool {
				return entry.Text == "remote lookup failed"
			})
			require.Len(t, failedEntries, DefaultMaxAttempts)
			_, found := failedEntries[0].FindField("attempt_id")
			require.True(t, found)
		})
	})
}

func TestCacheFetchCancellation(t *testing.T) {
	t.Run("canceled while waiting for the shared call", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			release := make(chan struct{})
			var lookupCtxErr error
			reporter := &reportRecorder{}
			logRecorder := logtest.NewRecorder()
			cache, err := New(func(ctx context.Context, key string) (testItem, error) {
				lookups.Inc()
				<-release
				lookupCtxErr = ctx.Err()
				return testItem{ID: key}, nil
			}, Opts{Reporter: reporter, Logger: logRecorder})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			startTime := time.Now()
			_, ok := cache.Fetch(ctx, "item-1")
			require.False(t, ok)
			require.Equal(t, 100*time.Millisecond, time.Since(startTime))
			require.Empty(t, reporter.Reports())
			_, found := logRecorder.FindEntry("fetch canceled")
			require.True(t, found)

			close(release)
			item, ok := cache.Fetch(context.Background(), "item-1")
			require.True(t, ok)
			require.Equal(t, "item-1", item.ID)
			require.NoError(t, lookupCtxErr)
			require.Equal(t, int32(1), lookups.Load())
		})
	})

	t.Run("canceled during retry delay", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			lookups := atomic.NewInt32(0)
			reporter := &reportRecorder{}
			cache, err := New(func(ctx context.Context, key string) (testItem, error) {
				lookups.Inc()
				return testItem{}, errLookupFailed
			}, Opts{Reporter: reporter})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			startTime := time.Now()
			_, ok := cache.Fetch(ctx, "item-1")
			require.False(t, ok)
			require.Equal(t, 500*time.Millisecond, time.Since(startTime))
			require.Equal(t, int32(2), lookups.Load())
			require.Empty(t, reporter.Reports())
		})
	})

	t.Run("already canceled context", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			release := make(chan struct{})
			reporter := &reportRecorder{}
			cache, err := New(func(ctx context.Context, key string) (testItem, error) {
				<-release
				return testItem{ID: key}, nil
			}, Opts{Reporter: reporter})
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, ok := cache.Fetch(ctx, "item-1")
			require.False(t, ok)
			require.Empty(t, reporter.Reports())

			close(release)
			_, ok = cache.Fetch(context.Background(), "item-1")
			require.True(t, ok)
		})
	})
}

func TestCacheFetchLookupPanics(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		panicErr := errors.New("boom")
		reporter := &reportRecorder{}
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			panic(panicErr)
		}, Opts{MaxAttempts: 1, Reporter: reporter})
		require.NoError(t, err)

		_, ok := cache.Fetch(context.Background(), "item-1")
		require.False(t, ok)
		reports := reporter.Reports()
		require.Len(t, reports, 1)
		var pErr *PanicError
		require.ErrorAs(t, reports[0].err, &pErr)
		require.Equal(t, panicErr, pErr.Value)
		require.NotEmpty(t, pErr.Stack)
		require.ErrorIs(t, reports[0].err, panicErr)
		require.Zero(t, cache.Len())
	})

	t.Run("panic with non-error value", func(t *testing.T) {
		reporter := &reportRecorder{}
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			panic("unexpected state")
		}, Opts{MaxAttempts: 1, Reporter: reporter})
		require.NoError(t, err)

		_, ok := cache.Fetch(context.Background(), "item-1")
		require.False(t, ok)
		reports := reporter.Reports()
		require.Len(t, reports, 1)
		var pErr *PanicError
		require.ErrorAs(t, reports[0].err, &pErr)
		require.Equal(t, "unexpected state", pErr.Value)
		require.Nil(t, pErr.Unwrap())
	})

	t.Run("goexit", func(t *testing.T) {
		reporter := &reportRecorder{}
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			runtime.Goexit()
			return testItem{}, nil
		}, Opts{MaxAttempts: 1, Reporter: reporter})
		require.NoError(t, err)

		_, ok := cache.Fetch(context.Background(), "item-1")
		require.False(t, ok)
		require.Equal(t, []report{{failureReportMsg, ErrGoexit}}, reporter.Reports())
	})
}

func TestCacheMetrics(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		metrics := NewPrometheusMetrics()
		cache, err := New(func(ctx context.Context, key string) (testItem, error) {
			if key == "broken" {
				return testItem{}, errLookupFailed
			}
			return testItem{ID: key}, nil
		}, Opts{MetricsCollector: metrics, MaxAttempts: 2, Reporter: &reportRecorder{}})
		require.NoError(t, err)

		_, ok := cache.Fetch(context.Background(), "item-1")
		require.True(t, ok)
		_, ok = cache.Fetch(context.Background(), "item-1")
		require.True(t, ok)
		_, ok = cache.Fetch(context.Background(), "broken")
		require.False(t, ok)
		_, ok = cache.Fetch(context.Background(), "")
		require.False(t, ok)

		testutil.RequireMetricValue(t, metrics.EntriesAmount.With(nil), 1)
		testutil.RequireMetricValue(t, metrics.HitsTotal.With(nil), 1)
		testutil.RequireMetricValue(t, metrics.MissesTotal.With(nil), 3)
		testutil.RequireMetricValue(t, metrics.RetriesTotal.With(nil), 1)
		testutil.RequireMetricValue(t, metrics.FailuresTotal.With(nil), 2)
	})
}

func TestNew(t *testing.T) {
	lookup := func(ctx context.Context, key string) (testItem, error) { return testItem{ID: key}, nil }

	tests := []struct {
		name    string
		lookup  LookupFunc[string, testItem]
		opts    Opts
		wantErr string
	}{
		{name: "nil lookup", opts: Opts{}, wantErr: "lookup function must be specified"},
		{name: "negative attempts", lookup: lookup, opts: Opts{MaxAttempts: -1}, wantErr: "maxAttempts must be greater or equal to 0 (default)"},
		{name: "negative delay", lookup: lookup, opts: Opts{RetryDelay: -time.Second}, wantErr: "retryDelay must be greater or equal to 0 (default)"},
		{name: "unknown retry mode", lookup: lookup, opts: Opts{RetryMode: RetryMode(42)}, wantErr: "unknown retry mode RetryMode(42)"},
		{name: "defaults", lookup: lookup, opts: Opts{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, err := New(tt.lookup, tt.opts)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				require.Nil(t, cache)
				return
			}
			require.NoError(t, err)
			require.Equal(t, DefaultMaxAttempts, cache.maxAttempts)
			require.Equal(t, DefaultRetryDelay, cache.retryDelay)
			require.Equal(t, RetryModeFreshAttempt, cache.retryMode)
			require.NotNil(t, cache.reporter)
			require.NotNil(t, cache.logger)
		})
	}
}
