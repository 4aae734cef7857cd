// Package metrics exposes Prometheus collectors for the deployment flow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compute_deployer"

// Result labels for deployments_total.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

// Metrics holds the collectors and the registry they are registered with.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	deployments  *prometheus.CounterVec
	duration     prometheus.Histogram
	stepDuration *prometheus.HistogramVec
	inProgress   prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployment requests by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_duration_seconds",
			Help:      "Wall time of deployments that reached the engine.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_step_duration_seconds",
			Help:      "Wall time of each engine step.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "deployments_in_progress",
			Help:      "Deployments currently holding or waiting for a stack.",
		}),
	}
	m.registry.MustRegister(
		m.deployments,
		m.duration,
		m.stepDuration,
		m.inProgress,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDeployment counts a finished deployment. Rejected requests carry no
// duration.
func (m *Metrics) ObserveDeployment(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.deployments.WithLabelValues(result).Inc()
	if result != ResultRejected {
		m.duration.Observe(d.Seconds())
	}
}

// ObserveStep records how long one engine step took.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// Started marks a deployment in progress and returns the func that ends it.
func (m *Metrics) Started() func() {
	if m == nil {
		return func() {}
	}
	m.inProgress.Inc()
	return m.inProgress.Dec
}
