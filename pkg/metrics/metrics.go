package metrics

import (
	"net/http"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compliance"

// Collector records engine metrics. A nil Collector is a no-op.
type Collector struct {
	registry            *prometheus.Registry
	evaluations         *prometheus.CounterVec
	enumerationFailures *prometheus.CounterVec
	stepFailures        *prometheus.CounterVec
	scanDuration        prometheus.Histogram
	complianceScore     prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Resource evaluations by resource type and verdict.",
		}, []string{"resource_type", "verdict"}),
		enumerationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enumeration_failures_total",
			Help:      "Inventory listings that failed, by resource type.",
		}, []string{"resource_type"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Failed optional scan steps.",
		}, []string{"step"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of batch scans.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		complianceScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score_percent",
			Help:      "Compliance score of the last batch scan.",
		}),
	}
	c.registry.MustRegister(
		c.evaluations,
		c.enumerationFailures,
		c.stepFailures,
		c.scanDuration,
		c.complianceScore,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Evaluation(t domain.ResourceType, v domain.Verdict) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(t.String(), string(v)).Inc()
}

func (c *Collector) EnumerationFailure(t domain.ResourceType) {
	if c == nil {
		return
	}
	c.enumerationFailures.WithLabelValues(t.String()).Inc()
}

func (c *Collector) StepFailure(step string) {
	if c == nil {
		return
	}
	c.stepFailures.WithLabelValues(step).Inc()
}

func (c *Collector) ScanFinished(d time.Duration, summary domain.ScanSummary) {
	if c == nil {
		return
	}
	c.scanDuration.Observe(d.Seconds())
	c.complianceScore.Set(summary.ComplianceScore)
}
