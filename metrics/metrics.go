// Package metrics exposes trace recording activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blockberries/satrace/trace"
)

const metricsNamespace = "satrace"

// Collector implements trace.Metrics.
type Collector struct {
	// EventsTotal counts recorded events.
	// Labels: tag (push-level, backtrack, branch, ...)
	EventsTotal *prometheus.CounterVec

	// DecisionLevel is the current decision level of the traced search.
	DecisionLevel prometheus.Gauge

	// Restarts is the restart count of the last finalized trace.
	Restarts prometheus.Gauge

	// TracesTotal counts finished traces.
	// Labels: outcome (finalized, aborted)
	TracesTotal *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Number of trace events recorded, by tag.",
		}, []string{"tag"}),
		DecisionLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "decision_level",
			Help:      "Current decision level of the traced search.",
		}),
		Restarts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "restarts",
			Help:      "Restart count written to the last finished trace header.",
		}),
		TracesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "traces_total",
			Help:      "Number of traces finished, by outcome.",
		}, []string{"outcome"}),
	}
}

func (c *Collector) EventRecorded(tag trace.Tag) {
	c.EventsTotal.WithLabelValues(tag.Name()).Inc()
}

func (c *Collector) LevelChanged(level int32) {
	c.DecisionLevel.Set(float64(level))
}

func (c *Collector) Finalized(restarts int32, aborted bool) {
	if aborted {
		c.TracesTotal.WithLabelValues("aborted").Inc()
		return
	}
	c.Restarts.Set(float64(restarts))
	c.TracesTotal.WithLabelValues("finalized").Inc()
}

var _ trace.Metrics = (*Collector)(nil)
