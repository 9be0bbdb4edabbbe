// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package metrics exports propagator statistics as Prometheus metrics.
//
package metrics

import (
	"github.com/db47h/lsim"
	"github.com/prometheus/client_golang/prometheus"
)

// Label names.
//
const (
	StatusLabel = "status"
)

// Collector is a prometheus.Collector updated by a propagator. It implements
// lsim.Observer and can be registered with lsim.WithObserver.
//
type Collector struct {
	ticks       *prometheus.CounterVec
	steps       prometheus.Counter
	events      prometheus.Counter
	evals       prometheus.Counter
	dropped     prometheus.Counter
	oscillating prometheus.Gauge
	duration    prometheus.Histogram
}

// New returns a new Collector. All metric names are prefixed with namespace.
//
func New(namespace string) *Collector {
	return &Collector{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Number of propagations, by final status",
		}, []string{StatusLabel}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Number of processed instants",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of applied driver updates",
		}),
		evals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Number of component behavior invocations",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Number of events discarded because their target was removed or after an oscillation",
		}),
		oscillating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oscillating",
			Help:      "1 if the last propagation ended in an oscillation",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "propagation_duration_seconds",
			Help:      "Wall clock duration of propagations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// TickDone implements lsim.Observer.
//
func (c *Collector) TickDone(s lsim.TickStats) {
	c.ticks.WithLabelValues(s.Status.String()).Inc()
	c.steps.Add(float64(s.Steps))
	c.events.Add(float64(s.Events))
	c.evals.Add(float64(s.Evals))
	c.dropped.Add(float64(s.Dropped))
	if s.Status == lsim.Oscillating {
		c.oscillating.Set(1)
	} else {
		c.oscillating.Set(0)
	}
	c.duration.Observe(s.Duration.Seconds())
}

// Describe implements prometheus.Collector.
//
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.ticks.Describe(ch)
	c.steps.Describe(ch)
	c.events.Describe(ch)
	c.evals.Describe(ch)
	c.dropped.Describe(ch)
	c.oscillating.Describe(ch)
	c.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
//
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.ticks.Collect(ch)
	c.steps.Collect(ch)
	c.events.Collect(ch)
	c.evals.Collect(ch)
	c.dropped.Collect(ch)
	c.oscillating.Collect(ch)
	c.duration.Collect(ch)
}
