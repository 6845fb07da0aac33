// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segmentation

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/isic-scoring/internal/score"
)

// writeGray writes a 2x2 grayscale PNG with pixels in row-major order.
func writeGray(t *testing.T, dir, name string, pix ...uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, len(pix)/2))
	copy(img.Pix, pix)
	return writePNG(t, dir, name, img)
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestLoadMask(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadMask(writeGray(t, dir, "binary.png", 0, 255, 255, 0))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 255, 255, 0}, m.Pix)
	assert.Equal(t, 2, m.Width)
	assert.Equal(t, 2, m.Height)

	m, err = LoadMask(writeGray(t, dir, "ones.png", 1, 0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 0, 0, 255}, m.Pix, "single high value is rescaled")

	m, err = LoadMask(writeGray(t, dir, "blank.png", 0, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0, 0, 0}, m.Pix)
}

func TestLoadMaskErrors(t *testing.T) {
	dir := t.TempDir()

	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	rgba.Set(0, 0, color.RGBA{R: 255, A: 255})
	writePNG(t, dir, "color.png", rgba)
	writeGray(t, dir, "levels.png", 0, 100, 255, 0)
	writeGray(t, dir, "two_high.png", 0, 100, 200, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.png"), []byte("not a png"), 0o600))

	tests := map[string]string{
		"color.png":    "Image color.png is not single-channel (grayscale).",
		"levels.png":   "Image levels.png contains values other than 0 and 255.",
		"two_high.png": "Image two_high.png contains values other than 0 and 255.",
		"junk.png":     "Could not decode image: junk.png",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMask(filepath.Join(dir, name))
			require.Error(t, err)
			assert.Equal(t, want, score.Message(err))
		})
	}
}

func TestCompareDimensionMismatch(t *testing.T) {
	truth := &Mask{Name: "truth.png", Width: 4, Height: 3, Pix: make([]uint8, 12)}
	pred := &Mask{Name: "pred.png", Width: 3, Height: 4, Pix: make([]uint8, 12)}

	_, err := Compare(truth, pred)
	require.Error(t, err)
	assert.Equal(t, "Image pred.png has dimensions (4, 3); expected (3, 4).", score.Message(err))
}

func TestMatchPrediction(t *testing.T) {
	files := []string{"ISIC_0000001_a.png", "ISIC_0000002_a.png", "ISIC_0000002_b.png"}

	got, err := MatchPrediction("ISIC_0000002_Segmentation.png", files)
	require.NoError(t, err)
	assert.Equal(t, "ISIC_0000002_a.png", got)

	_, err = MatchPrediction("ISIC_0000009_Segmentation.png", files)
	assert.Equal(t, "No matching submission image for: ISIC_0000009_Segmentation.png", score.Message(err))

	_, err = MatchPrediction("nounderscore.png", files)
	assert.Error(t, err)
}

func TestScoreLesions(t *testing.T) {
	truthDir, predDir := t.TempDir(), t.TempDir()
	writeGray(t, truthDir, "ISIC_0000001_segmentation.png", 255, 255, 0, 0)
	writeGray(t, truthDir, "ISIC_0000002_segmentation.png", 255, 0, 0, 0)
	writeGray(t, predDir, "ISIC_0000001_pred.png", 255, 0, 0, 0)
	writeGray(t, predDir, "ISIC_0000002.png", 1, 0, 0, 0)

	scores, images, err := ScoreLesions(context.Background(), truthDir, predDir, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, images)
	require.Len(t, scores, 3)
	assert.Equal(t, "ISIC_0000001", scores[0].Dataset)
	assert.Equal(t, "ISIC_0000002", scores[1].Dataset)
	assert.Equal(t, score.DatasetAggregate, scores[2].Dataset)

	want := map[string]map[string]float64{
		"ISIC_0000001": {"accuracy": 0.75, "jaccard": 0.5, "dice": 2.0 / 3, "sensitivity": 0.5, "specificity": 1},
		"ISIC_0000002": {"accuracy": 1, "jaccard": 1, "dice": 1, "sensitivity": 1, "specificity": 1},
		score.DatasetAggregate: {
			"accuracy": 0.875, "jaccard": 0.75, "dice": 5.0 / 6, "sensitivity": 0.75, "specificity": 1,
			"threshold_jaccard": 0.5,
		},
	}
	for dataset, metrics := range want {
		for metric, expected := range metrics {
			got, ok := scores.Lookup(dataset, metric)
			require.True(t, ok, "%s/%s", dataset, metric)
			assert.InDelta(t, expected, got, 1e-12, "%s/%s", dataset, metric)
		}
	}
}

func TestScoreLesionsMissingPrediction(t *testing.T) {
	truthDir, predDir := t.TempDir(), t.TempDir()
	writeGray(t, truthDir, "ISIC_0000001_segmentation.png", 255, 255, 0, 0)
	writeGray(t, predDir, "ISIC_0000002.png", 255, 0, 0, 0)

	_, _, err := ScoreLesions(context.Background(), truthDir, predDir, 1)
	require.Error(t, err)
	assert.Equal(t, "No matching submission image for: ISIC_0000001_segmentation.png", score.Message(err))
}

func TestScoreLesionsCanceled(t *testing.T) {
	truthDir, predDir := t.TempDir(), t.TempDir()
	writeGray(t, truthDir, "ISIC_0000001_segmentation.png", 255, 255, 0, 0)
	writeGray(t, predDir, "ISIC_0000001.png", 255, 0, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ScoreLesions(ctx, truthDir, predDir, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreAttributes(t *testing.T) {
	truthDir, predDir := t.TempDir(), t.TempDir()
	writeGray(t, truthDir, "ISIC_0000001_attribute_streaks.png", 255, 0, 0, 0)
	writeGray(t, predDir, "ISIC_0000001_attribute_streaks.png", 255, 255, 0, 0)
	writeGray(t, truthDir, "ISIC_0000002_attribute_streaks.png", 0, 0, 0, 0)
	writeGray(t, predDir, "ISIC_0000002_attribute_streaks.png", 0, 0, 0, 0)
	writeGray(t, truthDir, "ISIC_0000001_attribute_globules.png", 255, 255, 255, 255)
	writeGray(t, predDir, "ISIC_0000001_attribute_globules.png", 255, 255, 255, 255)

	scores, masks, err := ScoreAttributes(context.Background(), truthDir, predDir, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, masks)
	require.Len(t, scores, 3)
	assert.Equal(t, "streaks", scores[0].Dataset)
	assert.Equal(t, "globules", scores[1].Dataset)
	assert.Equal(t, score.DatasetAggregate, scores[2].Dataset)

	want := map[string]map[string]float64{
		"streaks": {
			"jaccard": 0.5, "dice": 2.0 / 3, "sensitivity": 1, "specificity": 6.0 / 7, "accuracy": 7.0 / 8,
		},
		"globules":             {"jaccard": 1, "dice": 1, "sensitivity": 1},
		score.DatasetAggregate: {"jaccard": 0.75, "dice": 5.0 / 6},
	}
	for dataset, metrics := range want {
		for metric, expected := range metrics {
			got, ok := scores.Lookup(dataset, metric)
			require.True(t, ok, "%s/%s", dataset, metric)
			assert.InDelta(t, expected, got, 1e-12, "%s/%s", dataset, metric)
		}
	}
}

func TestScoreAttributesErrors(t *testing.T) {
	truthDir, predDir := t.TempDir(), t.TempDir()
	writeGray(t, truthDir, "ISIC_0000001_attribute_streaks.png", 255, 0, 0, 0)

	_, _, err := ScoreAttributes(context.Background(), truthDir, predDir, 1)
	assert.Equal(t, "Missing prediction image for: ISIC_0000001_attribute_streaks.png", score.Message(err))

	writeGray(t, truthDir, "ISIC_0000001_attribute_freckles.png", 255, 0, 0, 0)
	_, _, err = ScoreAttributes(context.Background(), truthDir, predDir, 1)
	assert.Equal(t, "Internal error: unknown attribute in truth image: ISIC_0000001_attribute_freckles.png.",
		score.Message(err))
}
