package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CacheResultHit  = "hit"
	CacheResultMiss = "miss"

	RecalcOutcomeApplied  = "applied"
	RecalcOutcomeNoChange = "no_change"
	RecalcOutcomeDisabled = "disabled"
	RecalcOutcomeFailed   = "failed"
)

// PricingMetrics covers the rule cache, recalculation runs and rate sync.
type PricingMetrics struct {
	cacheLookups       *prometheus.CounterVec
	cacheLoads         *prometheus.CounterVec
	cacheLoadDuration  prometheus.Histogram
	cacheStaleDiscards prometheus.Counter
	cacheInvalidations prometheus.Counter
	recalcRuns         *prometheus.CounterVec
	recalcDuration     *prometheus.HistogramVec
	recalcRowsChanged  prometheus.Counter
	recalcUnsynced     prometheus.Counter
	syncMessages       *prometheus.CounterVec
}

var (
	pricingMetricsOnce sync.Once
	pricingMetrics     *PricingMetrics
)

func Pricing() *PricingMetrics {
	return PricingWithConfig(Config{})
}

// PricingWithConfig returns the singleton pricing metrics registry using config labels.
func PricingWithConfig(cfg Config) *PricingMetrics {
	pricingMetricsOnce.Do(func() {
		pricingMetrics = newPricingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pricingMetrics
}

func ResetPricingMetricsForTest() {
	pricingMetricsOnce = sync.Once{}
	pricingMetrics = nil
}

func newPricingMetrics(registerer prometheus.Registerer, cfg Config) *PricingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	m := &PricingMetrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rms_rule_cache_lookups_total",
			Help:        "Rule snapshot cache lookups by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		cacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rms_rule_cache_loads_total",
			Help:        "Rule snapshot loads from the repository by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		cacheLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "rms_rule_cache_load_duration_seconds",
			Help:        "Latency of loading a rule snapshot from the repository.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			ConstLabels: constLabels,
		}),
		cacheStaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rms_rule_cache_stale_discards_total",
			Help:        "Loaded snapshots not stored because an invalidation raced the load.",
			ConstLabels: constLabels,
		}),
		cacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rms_rule_cache_invalidations_total",
			Help:        "Explicit rule snapshot invalidations.",
			ConstLabels: constLabels,
		}),
		recalcRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rms_recalculation_runs_total",
			Help:        "Recalculation runs by trigger and outcome.",
			ConstLabels: constLabels,
		}, []string{"trigger", "outcome"}),
		recalcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "rms_recalculation_duration_seconds",
			Help:        "Recalculation latency including lock wait and persistence.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		recalcRowsChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rms_recalculation_rows_changed_total",
			Help:        "Restriction rows whose rate or base rate changed.",
			ConstLabels: constLabels,
		}),
		recalcUnsynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rms_recalculation_unsynced_rows_total",
			Help:        "Restriction rows skipped because their rate plan is not synced.",
			ConstLabels: constLabels,
		}),
		syncMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rms_rate_sync_messages_total",
			Help:        "Rate update messages handed to the channel manager by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
	}

	registerer.MustRegister(
		m.cacheLookups,
		m.cacheLoads,
		m.cacheLoadDuration,
		m.cacheStaleDiscards,
		m.cacheInvalidations,
		m.recalcRuns,
		m.recalcDuration,
		m.recalcRowsChanged,
		m.recalcUnsynced,
		m.syncMessages,
	)
	return m
}

func (m *PricingMetrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *PricingMetrics) ObserveCacheLoad(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.cacheLoads.WithLabelValues(status).Inc()
	m.cacheLoadDuration.Observe(duration.Seconds())
}

func (m *PricingMetrics) IncCacheStaleDiscard() {
	if m == nil {
		return
	}
	m.cacheStaleDiscards.Inc()
}

func (m *PricingMetrics) IncCacheInvalidation() {
	if m == nil {
		return
	}
	m.cacheInvalidations.Inc()
}

func (m *PricingMetrics) ObserveRecalculation(trigger, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.recalcRuns.WithLabelValues(trigger, outcome).Inc()
	m.recalcDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func (m *PricingMetrics) AddRowsChanged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recalcRowsChanged.Add(float64(n))
}

func (m *PricingMetrics) AddUnsynced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recalcUnsynced.Add(float64(n))
}

func (m *PricingMetrics) AddSyncMessages(status string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncMessages.WithLabelValues(status).Add(float64(n))
}
