// Package observability exposes Prometheus metrics for simulation runs.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"fopsim/internal/simulation"
)

const namespace = "fopsim"

// Metrics holds the counters, histograms and gauges for simulation runs.
type Metrics struct {
	DaysSimulated *prometheus.CounterVec   // labels: variant
	DayFailures   *prometheus.CounterVec   // labels: variant, kind
	Replications  *prometheus.CounterVec   // labels: variant
	DayDuration   *prometheus.HistogramVec // labels: variant
	RunActive     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		DaysSimulated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_simulated_total",
			Help:      "Days simulated and emitted to the output sinks.",
		}, []string{"variant"}),
		DayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_failures_total",
			Help:      "Days that failed, by error kind.",
		}, []string{"variant", "kind"}),
		Replications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replications_total",
			Help:      "Monte Carlo replications completed.",
		}, []string{"variant"}),
		DayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "day_duration_seconds",
			Help:      "Wall time to simulate and emit one day.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"variant"}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      "Number of simulation runs in progress.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.DaysSimulated, m.DayFailures, m.Replications, m.DayDuration, m.RunActive}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry registers with a fresh registry that also carries
// the Go runtime and process collectors. Commands use it so a process can
// build its metrics more than once.
func NewMetricsWithRegistry() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m, reg
}

// NewMetricsForTesting registers with a fresh registry to avoid
// "already registered" panics across tests.
func NewMetricsForTesting() (*Metrics, *prometheus.Registry) {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m, reg
}

// WriteTextfile dumps g to path in the text exposition format, for the node
// exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// DaySimulated implements simulation.Observer.
func (m *Metrics) DaySimulated(v simulation.Variant, replications int, elapsed time.Duration) {
	m.DaysSimulated.WithLabelValues(string(v)).Inc()
	m.Replications.WithLabelValues(string(v)).Add(float64(replications))
	m.DayDuration.WithLabelValues(string(v)).Observe(elapsed.Seconds())
}

// DayFailed implements simulation.Observer.
func (m *Metrics) DayFailed(v simulation.Variant, kind string) {
	m.DayFailures.WithLabelValues(string(v), kind).Inc()
}

// RunStarted and RunFinished track the active-run gauge.
func (m *Metrics) RunStarted()  { m.RunActive.Inc() }
func (m *Metrics) RunFinished() { m.RunActive.Dec() }
