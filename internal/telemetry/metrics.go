// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "isic.scoring"

// Instrument names exported through the global meter provider.
const (
	MetricScoringRuns   = "isic_scoring_runs_total"
	MetricScoringImages = "isic_scoring_images_total"
)

// RecordScoring emits one scoring run to the global meter provider. The
// provider is looked up per call so tests can swap it in.
func RecordScoring(ctx context.Context, task int, outcome string, images int) {
	meter := otel.GetMeterProvider().Meter(meterName)
	attrs := metric.WithAttributes(
		attribute.String("task", strconv.Itoa(task)),
		attribute.String("outcome", outcome),
	)

	runs, err := meter.Int64Counter(MetricScoringRuns, metric.WithDescription("Scoring runs by task and outcome"))
	if err == nil {
		runs.Add(ctx, 1, attrs)
	}
	if images <= 0 {
		return
	}
	imgs, err := meter.Int64Counter(MetricScoringImages, metric.WithDescription("Images compared by successful runs"))
	if err == nil {
		imgs.Add(ctx, int64(images), metric.WithAttributes(attribute.String("task", strconv.Itoa(task))))
	}
}
