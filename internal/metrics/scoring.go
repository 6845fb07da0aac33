// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics owns the Prometheus collectors of the scoring service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/isic-scoring/internal/score"
)

// Run outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeScoreError = "score_error"
	OutcomeInternal   = "internal_error"
	OutcomeCanceled   = "canceled"
)

var (
	scoringRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isic_scoring_runs_total",
		Help: "Scoring runs by task and outcome",
	}, []string{"task", "outcome"}) // outcome=success|score_error|internal_error|canceled

	scoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "isic_scoring_duration_seconds",
		Help:    "Wall time of a scoring run, unpacking included",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"task"})

	scoringImagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isic_scoring_images_total",
		Help: "Images (or masks) scored by task",
	}, []string{"task"})

	submissionsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "isic_submissions_queued",
		Help: "Submissions waiting for or undergoing scoring",
	})

	scoreValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "isic_score_value",
		Help: "Aggregate metric values of the last successful run per task",
	}, []string{"task", "dataset", "metric"})
)

// RecordScoringRun records one finished run.
func RecordScoringRun(task score.Task, outcome string, d time.Duration, images int) {
	label := task.Label()
	scoringRunsTotal.WithLabelValues(label, outcome).Inc()
	scoringDuration.WithLabelValues(label).Observe(d.Seconds())
	if images > 0 {
		scoringImagesTotal.WithLabelValues(label).Add(float64(images))
	}
}

// RecordScores exports the aggregate dataset of scores.
func RecordScores(task score.Task, scores score.Scores) {
	for _, d := range scores {
		if d.Dataset != score.DatasetAggregate {
			continue
		}
		for _, m := range d.Metrics {
			scoreValue.WithLabelValues(task.Label(), d.Dataset, m.Name).Set(m.Value)
		}
	}
}

// IncSubmissionsQueued marks a submission as accepted.
func IncSubmissionsQueued() { submissionsQueued.Inc() }

// DecSubmissionsQueued marks a submission as finished.
func DecSubmissionsQueued() { submissionsQueued.Dec() }

// Outcome classifies a scoring error.
func Outcome(err error, canceled bool) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case canceled:
		return OutcomeCanceled
	case score.IsScoreError(err):
		return OutcomeScoreError
	default:
		return OutcomeInternal
	}
}

func statusLabel(code int) string { return strconv.Itoa(code) }
