/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package fetchcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-fetchkit/internal/libinfo"
)

// MetricsCollector represents a collector of metrics to analyze how the fetch cache is used.
type MetricsCollector interface {
	// SetAmount sets the total number of registered calls.
	SetAmount(int)

	// IncHits increments the total number of fetches served by an already registered call.
	IncHits()

	// IncMisses increments the total number of started remote lookups.
	IncMisses()

	// IncRetries increments the total number of retries.
	IncRetries()

	// IncFailures increments the total number of fetches that ended with a reported failure.
	IncFailures()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	// The library version label is always added.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// If it is not empty, PrometheusMetrics.MustCurryWith must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the fetch cache.
type PrometheusMetrics struct {
	EntriesAmount *prometheus.GaugeVec
	HitsTotal     *prometheus.CounterVec
	MissesTotal   *prometheus.CounterVec
	RetriesTotal  *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.WithPrometheusLibVersionLabel(opts.ConstLabels)
	newCounter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames)
	}
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "fetchcache_entries_amount",
			Help:        "Total number of keys with a registered call in the fetch cache.",
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames),
		HitsTotal:     newCounter("fetchcache_hits_total", "Number of fetches served by an already registered call."),
		MissesTotal:   newCounter("fetchcache_misses_total", "Number of started remote lookups."),
		RetriesTotal:  newCounter("fetchcache_retries_total", "Number of retries after failed attempts."),
		FailuresTotal: newCounter("fetchcache_failures_total", "Number of fetches that ended with a reported failure."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount: pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:     pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:   pm.MissesTotal.MustCurryWith(labels),
		RetriesTotal:  pm.RetriesTotal.MustCurryWith(labels),
		FailuresTotal: pm.FailuresTotal.MustCurryWith(labels),
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{pm.EntriesAmount, pm.HitsTotal, pm.MissesTotal, pm.RetriesTotal, pm.FailuresTotal}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

// SetAmount sets the total number of registered calls.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// IncHits increments the total number of fetches served by an already registered call.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.With(nil).Inc()
}

// IncMisses increments the total number of started remote lookups.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// IncRetries increments the total number of retries.
func (pm *PrometheusMetrics) IncRetries() {
	pm.RetriesTotal.With(nil).Inc()
}

// IncFailures increments the total number of fetches that ended with a reported failure.
func (pm *PrometheusMetrics) IncFailures() {
	pm.FailuresTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int) {}
func (disabledMetrics) IncHits()      {}
func (disabledMetrics) IncMisses()    {}
func (disabledMetrics) IncRetries()   {}
func (disabledMetrics) IncFailures()  {}

var disabledMetricsCollector = disabledMetrics{}
