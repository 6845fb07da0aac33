// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package measure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgMaxFirstWins(t *testing.T) {
	assert.Equal(t, 0, ArgMax([]float64{0.5, 0.5, 0.1}))
	assert.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.7}))
}

func TestBalancedMulticlassAccuracy(t *testing.T) {
	truth := [][]float64{
		{1, 0, 0},
		{1, 0, 0},
		{1, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 1, 0},
	}
	prediction := [][]float64{
		{0.9, 0.1, 0},   // correct
		{0.8, 0.2, 0},   // correct
		{0.7, 0.3, 0},   // correct
		{0.2, 0.8, 0},   // wrong
		{0.1, 0.9, 0},   // correct
		{0.1, 0.2, 0.7}, // wrong
	}

	got, err := BalancedMulticlassAccuracy(truth, prediction)
	require.NoError(t, err)
	// class 0: 3/4, class 1: 1/2, class 2 absent from truth
	assert.InDelta(t, (0.75+0.5)/2, got, 1e-12)
}

func TestBalancedMulticlassAccuracyEdgeCases(t *testing.T) {
	got, err := BalancedMulticlassAccuracy(nil, nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))

	_, err = BalancedMulticlassAccuracy([][]float64{{1, 0}}, nil)
	assert.Error(t, err)

	_, err = BalancedMulticlassAccuracy([][]float64{{1, 0}}, [][]float64{{1}})
	assert.Error(t, err)
}
