package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	externalCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "external",
		Name:      "calls_total",
		Help:      "Count of calls to the yield source and swap venue.",
	}, []string{"target", "call", "status"})
	externalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "external",
		Name:      "call_duration_seconds",
		Help:      "Duration of calls to the yield source and swap venue.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target", "call", "status"})
)

// External tracks metrics for calls to one external collaborator.
type External struct {
	target string
}

// NewExternal constructs a collector for target ("source", "venue").
func NewExternal(target string) *External {
	if target == "" {
		target = "unknown"
	}
	return &External{target: target}
}

// Observe records a single call outcome and duration.
func (m External) Observe(call string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	externalCallsTotal.WithLabelValues(m.target, call, status).Inc()
	externalCallDuration.WithLabelValues(m.target, call, status).Observe(time.Since(started).Seconds())
}
