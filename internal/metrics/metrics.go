package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billingcore"

// Renewal results
const (
	ResultInvoiced = "invoiced"
	ResultAdvanced = "advanced"
	ResultFailed   = "failed"
)

// Metrics holds the counters the billing services report to
type Metrics struct {
	registry *prometheus.Registry

	renewals        *prometheus.CounterVec
	renewalDuration prometheus.Histogram
	prorations      *prometheus.CounterVec
	invoices        *prometheus.CounterVec
	taxFailures     prometheus.Counter
}

// New creates the billing metrics on their own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		renewals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renewals_total",
				Help:      "Subscription renewals processed, by result",
			},
			[]string{"result"},
		),
		renewalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "renewal_sweep_duration_seconds",
				Help:      "Duration of a renewal sweep in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
		prorations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prorations_total",
				Help:      "Subscription changes prorated, by whether lines were stored",
			},
			[]string{"applied"},
		),
		invoices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoices_built_total",
				Help:      "Invoices built, by kind",
			},
			[]string{"kind"},
		),
		taxFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tax_preview_failures_total",
				Help:      "Tax previews that could not be computed",
			},
		),
	}

	reg.MustRegister(
		m.renewals,
		m.renewalDuration,
		m.prorations,
		m.invoices,
		m.taxFailures,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) RenewalProcessed(result string) {
	m.renewals.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSweep(seconds float64) {
	m.renewalDuration.Observe(seconds)
}

func (m *Metrics) ProrationComputed(applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	m.prorations.WithLabelValues(label).Inc()
}

func (m *Metrics) InvoiceBuilt(kind string) {
	m.invoices.WithLabelValues(kind).Inc()
}

func (m *Metrics) TaxPreviewFailed() {
	m.taxFailures.Inc()
}

// Registry exposes the registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
