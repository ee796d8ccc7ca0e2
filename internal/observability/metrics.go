package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "energex_etl"

// Metrics holds the Prometheus collectors for one ETL run.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec // labels: source={demand,outages}
	FetchErrors   *prometheus.CounterVec   // labels: source={demand,outages}
	RowsSaved     *prometheus.CounterVec   // labels: table={demand,data,summary}

	// Latest extracted values.
	NetworkDemand     prometheus.Gauge
	DemandRating      prometheus.Gauge
	OutagesExtracted  prometheus.Gauge
	AffectedCustomers prometheus.Gauge
	SummaryAvailable  prometheus.Gauge

	RunDuration prometheus.Gauge
	LastSuccess prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates all run metrics and registers them, together with the
// Go and process collectors, on a dedicated registry used for pushing.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registry.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them anywhere.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of source page fetches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Source page fetches that failed.",
		}, []string{"source"}),
		RowsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_saved_total",
			Help:      "Rows written to the store by table.",
		}, []string{"table"}),
		NetworkDemand: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_demand",
			Help:      "Network demand in megawatts read this run.",
		}),
		DemandRating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "demand_rating",
			Help:      "Demand rating 1-8 derived this run, 0 when unclassified.",
		}),
		OutagesExtracted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outages_extracted",
			Help:      "Outage rows extracted from the outages page this run.",
		}),
		AffectedCustomers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "affected_customers_total",
			Help:      "Total affected customers stated by the outages caption.",
		}),
		SummaryAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_available",
			Help:      "1 when the outages caption was parsed this run, 0 otherwise.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last complete run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchDuration,
		m.FetchErrors,
		m.RowsSaved,
		m.NetworkDemand,
		m.DemandRating,
		m.OutagesExtracted,
		m.AffectedCustomers,
		m.SummaryAvailable,
		m.RunDuration,
		m.LastSuccess,
	}
}

// Gatherer returns the registry the metrics were registered on, or nil for
// test metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry == nil {
		return nil
	}
	return m.registry
}

// Push sends the registry to a Prometheus Pushgateway under the given job
// name, replacing the previous push for that job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	g := m.Gatherer()
	if g == nil {
		return fmt.Errorf("push metrics: metrics are not registered")
	}
	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
