// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package measure

import (
	"fmt"
	"math"
)

// ArgMax returns the index of the largest value; the first one wins ties.
func ArgMax(row []float64) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

// BalancedMulticlassAccuracy labels each row by its argmax and returns the mean
// per-class recall over the classes that occur in truth.
func BalancedMulticlassAccuracy(truth, prediction [][]float64) (float64, error) {
	if len(truth) != len(prediction) {
		return math.NaN(), fmt.Errorf("measure: length mismatch: %d truth rows vs %d prediction rows", len(truth), len(prediction))
	}
	if len(truth) == 0 {
		return math.NaN(), nil
	}

	width := len(truth[0])
	support := make([]float64, width)
	correct := make([]float64, width)
	for i := range truth {
		if len(truth[i]) != width || len(prediction[i]) != width {
			return math.NaN(), fmt.Errorf("measure: row %d has inconsistent width", i)
		}
		want := ArgMax(truth[i])
		support[want]++
		if ArgMax(prediction[i]) == want {
			correct[want]++
		}
	}

	var sum, classes float64
	for k := range support {
		if support[k] == 0 {
			continue
		}
		sum += correct[k] / support[k]
		classes++
	}
	return sum / classes, nil
}
