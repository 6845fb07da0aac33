// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package measure implements the challenge metrics: confusion-matrix ratios,
// ROC AUC, partial AUC above a sensitivity floor and balanced multiclass accuracy.
//
// Every ratio returns NaN when its denominator is zero.
package measure
