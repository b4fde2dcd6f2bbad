// Package metrics exposes Prometheus instrumentation for scrape orchestration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "post_reactors"

// Metrics holds all scrape metrics
type Metrics struct {
	registry *prometheus.Registry

	ScrapesTotal     *prometheus.CounterVec
	ScrapeDuration   prometheus.Histogram
	PollAttempts     prometheus.Histogram
	ProfilesScraped  prometheus.Counter
	ProviderRequests *prometheus.CounterVec
	InFlight         prometheus.Gauge
}

// New registers every metric on a fresh registry, so tests can build as many as they like.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ScrapesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Scrape orchestrations by result category (success or error kind)",
		}, []string{"result"}),
		ScrapeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Wall time of a scrape from validation to persistence",
			Buckets:   []float64{1, 5, 15, 30, 60, 90, 120, 180, 240, 300, 360},
		}),
		PollAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_attempts",
			Help:      "Fetch-output attempts needed per provider job",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 45, 60},
		}),
		ProfilesScraped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_scraped_total",
			Help:      "Profiles persisted after normalization",
		}),
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scrapes_in_flight",
			Help:      "Scrape orchestrations currently running",
		}),
	}
}

// ObserveScrape records one finished orchestration.
func (m *Metrics) ObserveScrape(result string, elapsed time.Duration, attempts, profiles int) {
	m.ScrapesTotal.WithLabelValues(result).Inc()
	m.ScrapeDuration.Observe(elapsed.Seconds())
	if attempts > 0 {
		m.PollAttempts.Observe(float64(attempts))
	}
	if profiles > 0 {
		m.ProfilesScraped.Add(float64(profiles))
	}
}

// ScrapeStarted marks one orchestration as running. Call the returned func when it ends.
func (m *Metrics) ScrapeStarted() func() {
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// ObserveProvider counts one provider call.
func (m *Metrics) ObserveProvider(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderRequests.WithLabelValues(operation, outcome).Inc()
}

// Registry is the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
