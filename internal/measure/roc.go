// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package measure

import (
	"fmt"
	"math"
	"sort"
)

// Point is a vertex of a ROC curve.
type Point struct {
	FPR, TPR float64
}

// ROC builds the ROC curve of scores against binary truth, one vertex per
// distinct score threshold, from (0,0) to (1,1). Tied scores form one vertex.
// ok is false when truth holds only one class.
func ROC(truth []bool, scores []float64) (curve []Point, ok bool, err error) {
	if len(truth) != len(scores) {
		return nil, false, fmt.Errorf("measure: length mismatch: %d truth vs %d scores", len(truth), len(scores))
	}

	var pos, neg float64
	for _, t := range truth {
		if t {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, false, nil
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	curve = append(curve, Point{})
	var tp, fp float64
	for i := 0; i < len(order); {
		threshold := scores[order[i]]
		for ; i < len(order) && scores[order[i]] == threshold; i++ {
			if truth[order[i]] {
				tp++
			} else {
				fp++
			}
		}
		curve = append(curve, Point{FPR: fp / neg, TPR: tp / pos})
	}
	return curve, true, nil
}

// AUC is the area under the ROC curve by trapezoidal integration.
func AUC(truth []bool, scores []float64) (float64, error) {
	curve, ok, err := ROC(truth, scores)
	if err != nil || !ok {
		return math.NaN(), err
	}
	var area float64
	for i := 1; i < len(curve); i++ {
		dx := curve[i].FPR - curve[i-1].FPR
		area += dx * (curve[i].TPR + curve[i-1].TPR) / 2
	}
	return area, nil
}

// AUCAboveSensitivity is the ROC area lying above the horizontal line
// TPR = minSensitivity, i.e. the integral over FPR of max(0, TPR-minSensitivity).
// Segments crossing the floor are split at the exact intersection.
// The result lies in [0, 1-minSensitivity].
func AUCAboveSensitivity(truth []bool, scores []float64, minSensitivity float64) (float64, error) {
	if minSensitivity < 0 || minSensitivity > 1 {
		return math.NaN(), fmt.Errorf("measure: sensitivity floor %v outside [0, 1]", minSensitivity)
	}
	curve, ok, err := ROC(truth, scores)
	if err != nil || !ok {
		return math.NaN(), err
	}

	var area float64
	for i := 1; i < len(curve); i++ {
		area += segmentAbove(curve[i-1], curve[i], minSensitivity)
	}
	return area, nil
}

func segmentAbove(p0, p1 Point, floor float64) float64 {
	dx := p1.FPR - p0.FPR
	if dx <= 0 {
		return 0
	}
	h0 := p0.TPR - floor
	h1 := p1.TPR - floor
	switch {
	case h0 >= 0 && h1 >= 0:
		return dx * (h0 + h1) / 2
	case h0 <= 0 && h1 <= 0:
		return 0
	case h0 < 0:
		// rising through the floor: triangle right of the crossing
		cross := dx * (-h0) / (h1 - h0)
		return (dx - cross) * h1 / 2
	default:
		cross := dx * h0 / (h0 - h1)
		return cross * h0 / 2
	}
}
