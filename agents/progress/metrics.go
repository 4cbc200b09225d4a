/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rubriceval_rounds_total",
			Help: "Total number of evaluation rounds started",
		},
		[]string{"rubric"},
	)

	criterionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rubriceval_criteria_total",
			Help: "Total number of criteria evaluated, by final state",
		},
		[]string{"rubric", "state"},
	)

	inFlightGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rubriceval_criteria_in_flight",
			Help: "Number of criteria currently being evaluated",
		},
		[]string{"rubric"},
	)

	scoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rubriceval_criterion_score",
			Help:    "Raw scores (0-10) of completed criteria",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"rubric"},
	)
)

// Metrics is a Sink that exports round progress to Prometheus.
type Metrics struct {
	rounds   prometheus.Counter
	done     prometheus.Counter
	failed   prometheus.Counter
	inFlight prometheus.Gauge
	scores   prometheus.Observer
}

var _ Sink = (*Metrics)(nil)

// NewMetrics creates a metrics sink labelled with the rubric name.
func NewMetrics(rubric string) *Metrics {
	return &Metrics{
		rounds:   roundCounter.WithLabelValues(rubric),
		done:     criterionCounter.WithLabelValues(rubric, Done.String()),
		failed:   criterionCounter.WithLabelValues(rubric, Failed.String()),
		inFlight: inFlightGauge.WithLabelValues(rubric),
		scores:   scoreHistogram.WithLabelValues(rubric),
	}
}

// OnReset implements Sink.
func (m *Metrics) OnReset(int) {
	m.rounds.Inc()
}

// OnStateChange implements Sink.
func (m *Metrics) OnStateChange(_ int, state State, score *int) {
	switch state {
	case Evaluating:
		m.inFlight.Inc()
	case Done:
		m.inFlight.Dec()
		m.done.Inc()
		if score != nil {
			m.scores.Observe(float64(*score))
		}
	case Failed:
		m.inFlight.Dec()
		m.failed.Inc()
	}
}
