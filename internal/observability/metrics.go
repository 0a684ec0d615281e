package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bh_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Facility loading metrics.
	FacilityLoads        *prometheus.CounterVec // labels: outcome={loaded,empty,error}
	FacilityFiles        *prometheus.CounterVec // labels: outcome={loaded,skipped}
	FacilityRows         *prometheus.CounterVec // labels: outcome={kept,dropped}
	FacilityLoadDuration prometheus.Histogram
	FacilityCache        *prometheus.CounterVec // labels: result={hit,miss}

	// Overlay rendering metrics.
	OverlayRenders prometheus.Counter
	OverlayMarkers prometheus.Histogram

	// Request metrics.
	MapRequests    *prometheus.CounterVec // labels: level, outcome={ok,not_found,error}
	LoginAttempts  *prometheus.CounterVec // labels: outcome={success,failure,throttled}
	ActiveSessions prometheus.Gauge

	FacilitiesPublished prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all dashboard metrics and registers them with reg.
// One-shot commands pass a private registry so their counters stay off the
// process-wide default.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()

	reg.MustRegister(
		m.FacilityLoads,
		m.FacilityFiles,
		m.FacilityRows,
		m.FacilityLoadDuration,
		m.FacilityCache,
		m.OverlayRenders,
		m.OverlayMarkers,
		m.MapRequests,
		m.LoginAttempts,
		m.ActiveSessions,
		m.FacilitiesPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FacilityLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facility_loads_total",
			Help:      "Facility directory loads by outcome.",
		}, []string{"outcome"}),
		FacilityFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facility_files_total",
			Help:      "Facility CSV files processed, by whether they contributed rows or were skipped.",
		}, []string{"outcome"}),
		FacilityRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facility_rows_total",
			Help:      "Facility rows kept or dropped during cleaning.",
		}, []string{"outcome"}),
		FacilityLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "facility_load_duration_seconds",
			Help:      "Duration of a full facility directory load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FacilityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facility_cache_total",
			Help:      "Facility cache lookups by result.",
		}, []string{"result"}),
		OverlayRenders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_renders_total",
			Help:      "Map documents rendered with a facility overlay.",
		}),
		OverlayMarkers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overlay_markers",
			Help:      "Number of facility markers per rendered overlay.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		MapRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_requests_total",
			Help:      "Map document requests by geographic level and outcome.",
		}, []string{"level", "outcome"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Dashboard login attempts by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in the session store.",
		}),
		FacilitiesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facilities_published_total",
			Help:      "Facility records written to the Kafka facility topic.",
		}),
	}
}
