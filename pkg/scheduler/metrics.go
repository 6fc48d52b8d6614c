// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scheduler's exported series. A nil *Metrics is valid
// and turns every method into a no-op, so callers that don't want a
// prometheus registry can pass nil through New.
type Metrics struct {
	runqueueDepth *prometheus.GaugeVec
	stealsTotal   prometheus.Counter
	behavioursRun prometheus.Counter
	quiesceSecs   prometheus.Histogram
}

// NewMetrics builds the metric set and registers it against registry.
// Pass a nil registry to get an unregistered, fully functional Metrics
// (useful in tests that don't want to share the default registry).
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		runqueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "boc",
			Subsystem: "scheduler",
			Name:      "runqueue_depth",
			Help:      "Number of runnable behaviours queued per worker.",
		}, []string{"worker"}),
		stealsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boc",
			Subsystem: "scheduler",
			Name:      "steals_total",
			Help:      "Total number of behaviours a worker took from a peer's runqueue.",
		}),
		behavioursRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boc",
			Subsystem: "scheduler",
			Name:      "behaviours_executed_total",
			Help:      "Total number of behaviour closures that finished executing.",
		}),
		quiesceSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "boc",
			Subsystem: "scheduler",
			Name:      "quiescence_seconds",
			Help:      "Wall-clock time from parallel Pool.Run start to quiescence.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if registry != nil {
		registry.MustRegister(m.runqueueDepth, m.stealsTotal, m.behavioursRun, m.quiesceSecs)
	}
	return m
}

func (m *Metrics) setDepth(worker string, n int) {
	if m == nil {
		return
	}
	m.runqueueDepth.WithLabelValues(worker).Set(float64(n))
}

func (m *Metrics) incSteals() {
	if m == nil {
		return
	}
	m.stealsTotal.Inc()
}

func (m *Metrics) incBehavioursRun() {
	if m == nil {
		return
	}
	m.behavioursRun.Inc()
}

func (m *Metrics) observeQuiescence(seconds float64) {
	if m == nil {
		return
	}
	m.quiesceSecs.Observe(seconds)
}
