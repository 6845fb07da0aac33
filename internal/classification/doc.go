// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package classification scores lesion diagnosis submissions: one CSV of
// per-category probabilities per image, compared against the ground truth CSV.
package classification
