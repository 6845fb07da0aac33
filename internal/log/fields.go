// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Field names shared by every log line.
const (
	// Identity fields
	FieldService      = "service"
	FieldVersion      = "version"
	FieldRequestID    = "request_id"
	FieldSubmissionID = "submission_id"
	FieldComponent    = "component"
	FieldEvent        = "event"
	FieldTraceID      = "trace_id"

	// Scoring fields
	FieldTask       = "task"
	FieldDigest     = "digest"
	FieldImages     = "images"
	FieldDurationMS = "duration_ms"
	FieldPath       = "path"

	// HTTP fields
	FieldMethod = "method"
	FieldRoute  = "route"
	FieldStatus = "status"
	FieldRemote = "remote_addr"
	FieldBytes  = "bytes"
)
