package queue

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"heatsim/model"
)

// Metrics is the prometheus view of the queue. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	jobsClaimed  *prometheus.CounterVec
	jobsFinished *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		jobsClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heatsim_jobs_claimed_total",
			Help: "Jobs claimed by the worker.",
		}, []string{"kind"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heatsim_jobs_finished_total",
			Help: "Jobs that left the running state, by final status.",
		}, []string{"kind", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heatsim_job_duration_seconds",
			Help:    "Wall time from claim to final status.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heatsim_queue_depth",
			Help: "Jobs waiting in the queued state.",
		}),
	}
	registry.MustRegister(m.jobsClaimed, m.jobsFinished, m.jobDuration, m.queueDepth)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) claimed(kind model.Kind) {
	if m == nil {
		return
	}
	m.jobsClaimed.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) finished(kind model.Kind, status model.Status, d time.Duration) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(string(kind), string(status)).Inc()
	m.jobDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (m *Metrics) depth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
