package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	// Weather provider metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,rate_limited,error,timeout}
	WeatherFallbacks   prometheus.Counter
	WeatherAPIDuration prometheus.Histogram

	// Fleet sync metrics.
	SyncDuration prometheus.Histogram
	CitiesSynced prometheus.Gauge
	SyncRunning  prometheus.Gauge

	// Prediction and alerting metrics.
	Predictions     *prometheus.CounterVec // labels: outcome={success,error,skipped,stale}
	AlertsDerived   *prometheus.CounterVec // labels: hazard
	AlertsPublished prometheus.Counter
	ActiveAlerts    prometheus.Gauge
	Briefings       *prometheus.CounterVec // labels: outcome={spoken,failed,dropped}
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather provider attempts by outcome.",
		}, []string{"outcome"}),
		WeatherFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fallbacks_total",
			Help:      "Readings synthesized from city baselines after provider failure.",
		}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete fleet weather sync.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CitiesSynced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cities_synced",
			Help:      "Cities with a reading after the most recent sync.",
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_running",
			Help:      "1 while the sync loop is active, 0 when shut down.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Risk predictions by outcome.",
		}, []string{"outcome"}),
		AlertsDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_derived_total",
			Help:      "Alerts derived from conditions by hazard type.",
		}, []string{"hazard"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Derived alerts written to the alert topic.",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_alerts",
			Help:      "Active alerts in the session.",
		}),
		Briefings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefings_total",
			Help:      "Voice briefing requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.WeatherRequests,
		m.WeatherFallbacks,
		m.WeatherAPIDuration,
		m.SyncDuration,
		m.CitiesSynced,
		m.SyncRunning,
		m.Predictions,
		m.AlertsDerived,
		m.AlertsPublished,
		m.ActiveAlerts,
		m.Briefings,
	)

	return m
}
