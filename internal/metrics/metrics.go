package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	UpstreamDuration *prometheus.HistogramVec
	StreamChunks     prometheus.Counter
	StreamsOpen      prometheus.Gauge
	LimiterKeys      prometheus.Gauge
	RequestLogDrops  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Relay responses by endpoint and outcome code (ok for successes)",
		}, []string{"endpoint", "code"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_rate_limited_total",
			Help: "Requests rejected by the fixed-window limiter",
		}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_upstream_duration_seconds",
			Help:    "Upstream call duration by mode and outcome",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"mode", "outcome"}),
		StreamChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_stream_chunks_total",
			Help: "Text fragments relayed on ndjson streams",
		}),
		StreamsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_streams_open",
			Help: "ndjson streams currently being relayed",
		}),
		LimiterKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_ratelimit_tracked_keys",
			Help: "Client keys held by the in-memory limiter",
		}),
		RequestLogDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_request_log_dropped_total",
			Help: "Request log entries dropped because the queue was full",
		}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, code string) {
	if code == "" {
		code = "ok"
	}
	m.RequestsTotal.WithLabelValues(endpoint, code).Inc()
}

func (m *Metrics) IncrementRateLimited() {
	m.RateLimitedTotal.Inc()
}

// ObserveUpstream and ObserveChunk satisfy upstream.Observer.
func (m *Metrics) ObserveUpstream(mode, outcome string, elapsed time.Duration) {
	m.UpstreamDuration.WithLabelValues(mode, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveChunk() {
	m.StreamChunks.Inc()
}

func (m *Metrics) StreamOpened() {
	m.StreamsOpen.Inc()
}

func (m *Metrics) StreamClosed() {
	m.StreamsOpen.Dec()
}

func (m *Metrics) SetLimiterKeys(n int) {
	m.LimiterKeys.Set(float64(n))
}

func (m *Metrics) IncrementRequestLogDrops() {
	m.RequestLogDrops.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
