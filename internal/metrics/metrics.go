// Package metrics defines the Prometheus collectors exported by the server and
// worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "threatsleuth"

// Reasons an upload is refused before classification.
const (
	ReasonMissingFile = "missing_file"
	ReasonExtension   = "extension"
	ReasonSize        = "size"
)

// Collectors groups the ThreatSleuth metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	classifications *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	rejected        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Files classified, by label and scoring mode.",
			},
			[]string{"label", "mode"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feature_degraded_total",
				Help:      "Feature extraction stages that failed and contributed 0.",
			},
			[]string{"stage"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Time taken to classify one file.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
			},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_rejected_total",
				Help:      "Uploads refused before classification, by reason.",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(c.classifications, c.degraded, c.scanDuration, c.rejected)
	return c
}

// NewRegistry returns a registry holding the ThreatSleuth collectors along
// with the Go runtime and process collectors.
func NewRegistry() (*prometheus.Registry, *Collectors) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, New(reg)
}

// ObserveScan records a completed classification.
func (c *Collectors) ObserveScan(label, mode string, d time.Duration, degraded []string) {
	if c == nil {
		return
	}
	c.classifications.WithLabelValues(label, mode).Inc()
	c.scanDuration.Observe(d.Seconds())
	for _, stage := range degraded {
		c.degraded.WithLabelValues(stage).Inc()
	}
}

// Rejected records an upload refused for reason.
func (c *Collectors) Rejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}
