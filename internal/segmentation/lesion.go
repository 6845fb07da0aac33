// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segmentation

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/measure"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// ThresholdJaccardFloor is the per-image jaccard below which an image counts as a failure.
const ThresholdJaccardFloor = 0.65

var lesionMetrics = []string{"accuracy", "jaccard", "dice", "sensitivity", "specificity"}

func lesionValues(c measure.Confusion) []score.Metric {
	return []score.Metric{
		{Name: "accuracy", Value: c.Accuracy()},
		{Name: "jaccard", Value: c.Jaccard()},
		{Name: "dice", Value: c.Dice()},
		{Name: "sensitivity", Value: c.Sensitivity()},
		{Name: "specificity", Value: c.Specificity()},
	}
}

// ScoreLesions scores every truth mask in truthDir against its matching
// prediction, at most workers images at a time. Datasets keep truth order and
// are followed by the aggregate. It also returns the number of images scored.
func ScoreLesions(ctx context.Context, truthDir, predictionDir string, workers int) (score.Scores, int, error) {
	truthFiles, err := fsutil.FilesWithExt(truthDir, ".png")
	if err != nil {
		return nil, 0, fmt.Errorf("list truth directory: %w", err)
	}
	predFiles, _, err := fsutil.Entries(predictionDir)
	if err != nil {
		return nil, 0, fmt.Errorf("list prediction directory: %w", err)
	}

	results := make(score.Scores, len(truthFiles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, truthName := range truthFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			predName, err := MatchPrediction(truthName, predFiles)
			if err != nil {
				return err
			}
			c, err := compareFiles(filepath.Join(truthDir, truthName), filepath.Join(predictionDir, predName))
			if err != nil {
				return err
			}
			results[i] = score.Dataset{Dataset: datasetName(truthName), Metrics: lesionValues(c)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return append(results, lesionAggregate(results)), len(truthFiles), nil
}

// datasetName drops the last "_" component: ISIC_0000003_Segmentation.png -> ISIC_0000003.
func datasetName(truthName string) string {
	if i := strings.LastIndex(truthName, "_"); i >= 0 {
		return truthName[:i]
	}
	return truthName
}

func lesionAggregate(images score.Scores) score.Dataset {
	agg := score.Dataset{Dataset: score.DatasetAggregate}
	for _, name := range lesionMetrics {
		values := make([]float64, 0, len(images))
		for _, d := range images {
			v, _ := d.Value(name)
			values = append(values, v)
		}
		agg.Metrics = append(agg.Metrics, score.Metric{Name: name, Value: nanMean(values)})
	}

	thresholded := make([]float64, 0, len(images))
	for _, d := range images {
		v, _ := d.Value("jaccard")
		if v < ThresholdJaccardFloor {
			v = 0
		}
		thresholded = append(thresholded, v)
	}
	agg.Metrics = append(agg.Metrics, score.Metric{Name: "threshold_jaccard", Value: nanMean(thresholded)})
	return agg
}

// nanMean averages the non-NaN values; NaN when there are none.
func nanMean(values []float64) float64 {
	var sum, n float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / n
}
