// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package measure

import (
	"fmt"
	"math"
)

// Confusion holds binary confusion counts. Counts are float64 so that pixel
// totals of large masks accumulate without overflow concerns.
type Confusion struct {
	TP, TN, FP, FN float64
}

// NewConfusion counts paired truth/prediction labels.
func NewConfusion(truth, prediction []bool) (Confusion, error) {
	if len(truth) != len(prediction) {
		return Confusion{}, fmt.Errorf("measure: length mismatch: %d truth vs %d prediction", len(truth), len(prediction))
	}
	var c Confusion
	for i := range truth {
		c.Observe(truth[i], prediction[i])
	}
	return c, nil
}

// Observe adds one labelled sample.
func (c *Confusion) Observe(truth, prediction bool) {
	switch {
	case truth && prediction:
		c.TP++
	case !truth && !prediction:
		c.TN++
	case !truth && prediction:
		c.FP++
	default:
		c.FN++
	}
}

// Add accumulates other into c.
func (c *Confusion) Add(other Confusion) {
	c.TP += other.TP
	c.TN += other.TN
	c.FP += other.FP
	c.FN += other.FN
}

// Total is the number of observed samples.
func (c Confusion) Total() float64 {
	return c.TP + c.TN + c.FP + c.FN
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func (c Confusion) Accuracy() float64    { return ratio(c.TP+c.TN, c.Total()) }
func (c Confusion) Sensitivity() float64 { return ratio(c.TP, c.TP+c.FN) }
func (c Confusion) Specificity() float64 { return ratio(c.TN, c.TN+c.FP) }
func (c Confusion) PPV() float64         { return ratio(c.TP, c.TP+c.FP) }
func (c Confusion) NPV() float64         { return ratio(c.TN, c.TN+c.FN) }
func (c Confusion) Jaccard() float64     { return ratio(c.TP, c.TP+c.FP+c.FN) }

// F1 is the harmonic mean of PPV and sensitivity.
func (c Confusion) F1() float64 { return ratio(2*c.TP, 2*c.TP+c.FP+c.FN) }

// Dice equals F1 on binary masks: 2|A∩B| / (|A|+|B|).
func (c Confusion) Dice() float64 { return c.F1() }
