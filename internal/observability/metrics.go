package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the service.
type Metrics struct {
	FeedRefreshes *prometheus.CounterVec // labels: outcome={success,failure}
	FeedRetries   prometheus.Counter
	FeedRecords   prometheus.Gauge

	ChatRequests    *prometheus.CounterVec // labels: outcome={success,failure,rejected}
	ChatRenderModes *prometheus.CounterVec // labels: mode={plain_text,evacuation_list,hazard_list}

	ReportsDispatched *prometheus.CounterVec // labels: outcome={success,failure}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeedRefreshes,
		m.FeedRetries,
		m.FeedRecords,
		m.ChatRequests,
		m.ChatRenderModes,
		m.ReportsDispatched,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discentra",
			Name:      "feed_refreshes_total",
			Help:      "Disaster feed refresh cycles by outcome.",
		}, []string{"outcome"}),
		FeedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "discentra",
			Name:      "feed_retries_total",
			Help:      "Automatic retries scheduled after failed feed fetches.",
		}),
		FeedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "discentra",
			Name:      "feed_records",
			Help:      "Number of disaster records in the current feed snapshot.",
		}),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discentra",
			Name:      "chat_requests_total",
			Help:      "Assistant chat requests by outcome.",
		}, []string{"outcome"}),
		ChatRenderModes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discentra",
			Name:      "chat_render_modes_total",
			Help:      "Classified render modes of assistant replies.",
		}, []string{"mode"}),
		ReportsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discentra",
			Name:      "reports_dispatched_total",
			Help:      "Emergency report notifications by outcome.",
		}, []string{"outcome"}),
	}
}
