package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the API server and the notifier.
type Metrics struct {
	// Ranking metrics.
	RankCalls     *prometheus.CounterVec // labels: screen={malls,stores,promotions,notify}
	VenuesSkipped *prometheus.CounterVec // labels: screen
	RankDuration  prometheus.Histogram

	// Supabase data service metrics.
	SupabaseRequests *prometheus.CounterVec   // labels: table, outcome={success,error}
	SupabaseDuration *prometheus.HistogramVec // labels: table

	// Session resolution metrics.
	SessionCache *prometheus.CounterVec // labels: result={hit,miss}

	// Notifier metrics.
	NotifierRunning   prometheus.Gauge
	AlertsPublished   prometheus.Counter
	AlertsSuppressed  prometheus.Counter
	NotifyCycleErrors prometheus.Counter
	NotifyCycleTime   prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RankCalls,
		m.VenuesSkipped,
		m.RankDuration,
		m.SupabaseRequests,
		m.SupabaseDuration,
		m.SessionCache,
		m.NotifierRunning,
		m.AlertsPublished,
		m.AlertsSuppressed,
		m.NotifyCycleErrors,
		m.NotifyCycleTime,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RankCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "rank_calls_total",
			Help:      "Ranking pipeline invocations by screen.",
		}, []string{"screen"}),
		VenuesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "venues_skipped_total",
			Help:      "Venues dropped from ranking due to malformed coordinates.",
		}, []string{"screen"}),
		RankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mall_radar",
			Name:      "rank_duration_seconds",
			Help:      "Duration of a single ranking call.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SupabaseRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "supabase_requests_total",
			Help:      "Supabase REST requests by table and outcome.",
		}, []string{"table", "outcome"}),
		SupabaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mall_radar",
			Name:      "supabase_request_duration_seconds",
			Help:      "Supabase REST request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"table"}),
		SessionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "session_cache_total",
			Help:      "Session cache lookups by result.",
		}, []string{"result"}),
		NotifierRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mall_radar",
			Name:      "notifier_running",
			Help:      "1 while the proximity notifier is active, 0 when shut down.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "alerts_published_total",
			Help:      "Proximity alerts published to the alerts topic.",
		}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "alerts_suppressed_total",
			Help:      "Proximity alerts suppressed by the cooldown window.",
		}),
		NotifyCycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mall_radar",
			Name:      "notify_cycle_errors_total",
			Help:      "Background evaluation cycles that ended with an error.",
		}),
		NotifyCycleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mall_radar",
			Name:      "notify_cycle_duration_seconds",
			Help:      "Duration of a complete background proximity cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
