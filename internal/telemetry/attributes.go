// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by scoring spans.
const (
	TaskKey          = "isic.task"
	SubmissionIDKey  = "isic.submission_id"
	DigestKey        = "isic.digest"
	ImagesKey        = "isic.images"
	OutcomeKey       = "isic.outcome"
	AggregateKey     = "isic.aggregate"
	SubmittedFileKey = "isic.submitted_file"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ScoringAttributes describes a scoring run before it starts.
func ScoringAttributes(task int, submissionID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(TaskKey, task)}
	if submissionID != "" {
		attrs = append(attrs, attribute.String(SubmissionIDKey, submissionID))
	}
	return attrs
}

// ResultAttributes describes a finished scoring run.
func ResultAttributes(outcome, digest, submittedFile string, images int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(OutcomeKey, outcome),
		attribute.Int(ImagesKey, images),
	}
	if digest != "" {
		attrs = append(attrs, attribute.String(DigestKey, digest))
	}
	if submittedFile != "" {
		attrs = append(attrs, attribute.String(SubmittedFileKey, submittedFile))
	}
	return attrs
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
