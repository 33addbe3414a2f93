// Package metrics exposes Prometheus metrics for the social service: HTTP and
// gRPC request counters, latency histograms and entity gauges read from the
// repositories on scrape.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "social"

type Metrics struct {
	// Labels: transport (http, grpc), route, status
	RequestsTotal *prometheus.CounterVec
	// Labels: transport, route
	RequestDurationSeconds *prometheus.HistogramVec
	// Labels: transport, error (not_found, conflict, bad_request, ...)
	ErrorsTotal *prometheus.CounterVec
	// Labels: outcome (accepted, rejected)
	BatchJobsTotal *prometheus.CounterVec
}

// New registers the request metrics on reg. Use a fresh registry per
// instance; registering twice on the same one panics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests by transport, route and status",
		}, []string{"transport", "route", "status"}),
		RequestDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by transport and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "route"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors returned to callers by transport and kind",
		}, []string{"transport", "error"}),
		BatchJobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_jobs_total",
			Help:      "Batch connection jobs by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRequest(transport, route, status string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(transport, route, status).Inc()
	m.RequestDurationSeconds.WithLabelValues(transport, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveError(transport, kind string) {
	m.ErrorsTotal.WithLabelValues(transport, kind).Inc()
}

// CountFunc reports the current size of a collection.
type CountFunc func(ctx context.Context) (int, error)

// RegisterEntityGauges exposes collection sizes, queried at scrape time.
// A failing count reports -1.
func RegisterEntityGauges(reg prometheus.Registerer, counts map[string]CountFunc) {
	f := promauto.With(reg)
	for entity, count := range counts {
		count := count
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "entities",
			Help:        "Number of stored entities by kind",
			ConstLabels: prometheus.Labels{"kind": entity},
		}, func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := count(ctx)
			if err != nil {
				return -1
			}
			return float64(n)
		})
	}
}
