// Package metrics экспортирует показатели движка записи в Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jiqing426/video-ai/internal/agent"
	"github.com/jiqing426/video-ai/internal/capability"
	"github.com/jiqing426/video-ai/internal/errs"
	"github.com/jiqing426/video-ai/internal/llm"
)

// Collector implements agent.Metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	recordingsTotal    *prometheus.CounterVec
	recordingDuration  *prometheus.HistogramVec
	stepsTotal         *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
	navigationRetries  prometheus.Counter
	planSourceTotal    *prometheus.CounterVec
	capabilityGauge    *prometheus.GaugeVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

var _ agent.Metrics = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		recordingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Recordings by result type and error kind",
		}, []string{"type", "error_kind"}),

		recordingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_duration_seconds",
			Help:      "Wall clock of one recording",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"type"}),

		stepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Executed plan steps",
		}, []string{"kind", "status", "error_kind"}),

		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of one plan step",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"kind"}),

		navigationRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_retries_total",
			Help:      "Navigations retried with domcontentloaded",
		}),

		planSourceTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_source_total",
			Help:      "Plans by source",
		}, []string{"source"}),

		capabilityGauge: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capability",
			Help:      "Last detected host capabilities, 1 when present",
		}, []string{"capability"}),

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveStep(kind llm.ActionKind, status agent.StepStatus, errKind errs.Kind, d time.Duration) {
	c.stepsTotal.WithLabelValues(string(kind), string(status), errKind.String()).Inc()
	c.stepDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (c *Collector) ObserveRecording(resultType agent.ResultType, errKind errs.Kind, d time.Duration) {
	c.recordingsTotal.WithLabelValues(string(resultType), errKind.String()).Inc()
	c.recordingDuration.WithLabelValues(string(resultType)).Observe(d.Seconds())
}

func (c *Collector) ObserveNavigationRetry() {
	c.navigationRetries.Inc()
}

func (c *Collector) ObservePlanSource(source agent.PlanSource) {
	c.planSourceTotal.WithLabelValues(string(source)).Inc()
}

func (c *Collector) ObserveCapabilities(caps capability.Capabilities) {
	c.capabilityGauge.WithLabelValues("driver").Set(boolGauge(caps.HasAutomationDriver))
	c.capabilityGauge.WithLabelValues("engine").Set(boolGauge(caps.HasBrowserEngine))
	c.capabilityGauge.WithLabelValues("muxer").Set(boolGauge(caps.HasMuxer))
	c.capabilityGauge.WithLabelValues("record").Set(boolGauge(caps.CanRecord()))
}

// ObserveHTTP records one served request. route is the pattern, not the
// raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, http.StatusText(status)).Inc()
	c.httpRequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
