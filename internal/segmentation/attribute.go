// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package segmentation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/measure"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// Attributes are the dermoscopic features of the attribute task, in output order.
var Attributes = []string{"pigment_network", "negative_network", "streaks", "milia_like_cyst", "globules"}

var attributeFilePattern = regexp.MustCompile(`^ISIC_[0-9]+_attribute_([a-z_]+)\.png$`)

type attributeMask struct {
	name      string
	attribute int
}

// ScoreAttributes scores each ISIC_<id>_attribute_<attr>.png truth mask
// against the identically named prediction. Pixel counts are pooled over all
// images of an attribute. It also returns the number of masks scored.
func ScoreAttributes(ctx context.Context, truthDir, predictionDir string, workers int) (score.Scores, int, error) {
	truthFiles, err := fsutil.FilesWithExt(truthDir, ".png")
	if err != nil {
		return nil, 0, fmt.Errorf("list truth directory: %w", err)
	}

	masks := make([]attributeMask, 0, len(truthFiles))
	for _, name := range truthFiles {
		m := attributeFilePattern.FindStringSubmatch(name)
		if m == nil {
			return nil, 0, score.Errorf("Internal error: unrecognized truth image: %s.", name)
		}
		idx := attributeIndex(m[1])
		if idx < 0 {
			return nil, 0, score.Errorf("Internal error: unknown attribute in truth image: %s.", name)
		}
		masks = append(masks, attributeMask{name: name, attribute: idx})
	}

	counts := make([]measure.Confusion, len(masks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, m := range masks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			predPath := filepath.Join(predictionDir, m.name)
			if _, err := os.Stat(predPath); errors.Is(err, fs.ErrNotExist) {
				return score.Errorf("Missing prediction image for: %s", m.name)
			}
			c, err := compareFiles(filepath.Join(truthDir, m.name), predPath)
			if err != nil {
				return err
			}
			counts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	pooled := make([]measure.Confusion, len(Attributes))
	present := make([]bool, len(Attributes))
	for i, m := range masks {
		pooled[m.attribute].Add(counts[i])
		present[m.attribute] = true
	}

	var scores score.Scores
	var jaccards, dices []float64
	for k, attr := range Attributes {
		if !present[k] {
			continue
		}
		c := pooled[k]
		scores = append(scores, score.Dataset{
			Dataset: attr,
			Metrics: []score.Metric{
				{Name: "jaccard", Value: c.Jaccard()},
				{Name: "dice", Value: c.Dice()},
				{Name: "sensitivity", Value: c.Sensitivity()},
				{Name: "specificity", Value: c.Specificity()},
				{Name: "accuracy", Value: c.Accuracy()},
			},
		})
		jaccards = append(jaccards, c.Jaccard())
		dices = append(dices, c.Dice())
	}
	scores = append(scores, score.Dataset{
		Dataset: score.DatasetAggregate,
		Metrics: []score.Metric{
			{Name: "jaccard", Value: nanMean(jaccards)},
			{Name: "dice", Value: nanMean(dices)},
		},
	})
	return scores, len(masks), nil
}

func attributeIndex(name string) int {
	for i, a := range Attributes {
		if a == name {
			return i
		}
	}
	return -1
}
