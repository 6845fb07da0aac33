// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package score defines the result records every challenge task produces and
// the participant-facing error type used to reject a submission.
//
// A scoring run yields Scores: an ordered list of datasets, each holding an
// ordered list of named metric values. The JSON form is the wire format
// consumed by the challenge leaderboard:
//
//	[{"dataset": "aggregate", "metrics": [{"name": "balanced_accuracy", "value": 0.71}]}]
//
// Metrics whose denominator is zero are NaN in memory and null on the wire.
package score
