// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package classification

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/measure"
	"github.com/ManuGH/isic-scoring/internal/score"
)

const (
	// binaryThreshold turns a probability into a positive call.
	binaryThreshold = 0.5
	// partialAUCSensitivity is the TPR floor of the auc_sens_80 metric.
	partialAUCSensitivity = 0.80
)

var truthFilePattern = regexp.MustCompile(`^ISIC.*GroundTruth\.csv$`)

// ComputeMetrics parses both tables and scores prediction against truth.
func ComputeMetrics(truth, prediction io.Reader) (score.Scores, error) {
	truthTable, err := ParseCSV(truth)
	if err != nil {
		return nil, err
	}
	predTable, err := ParseCSV(prediction)
	if err != nil {
		return nil, err
	}
	return compare(truthTable, predTable)
}

func compare(truth, prediction *Table) (score.Scores, error) {
	truth.Exclude(ExcludeLabels)
	prediction.Exclude(ExcludeLabels)

	if err := ValidateRows(truth, prediction); err != nil {
		return nil, err
	}
	truth.Sort()
	prediction.Sort()

	balanced, err := measure.BalancedMulticlassAccuracy(truth.Values, prediction.Values)
	if err != nil {
		return nil, err
	}
	scores := score.Scores{{
		Dataset: score.DatasetAggregate,
		Metrics: []score.Metric{{Name: "balanced_accuracy", Value: balanced}},
	}}

	for k, category := range Categories {
		truthProb := truth.Column(k)
		predProb := prediction.Column(k)
		truthBin := threshold(truthProb)

		c, err := measure.NewConfusion(truthBin, threshold(predProb))
		if err != nil {
			return nil, err
		}
		auc, err := measure.AUC(truthBin, predProb)
		if err != nil {
			return nil, err
		}
		aucSens, err := measure.AUCAboveSensitivity(truthBin, predProb, partialAUCSensitivity)
		if err != nil {
			return nil, err
		}

		scores = append(scores, score.Dataset{
			Dataset: category,
			Metrics: []score.Metric{
				{Name: "accuracy", Value: c.Accuracy()},
				{Name: "sensitivity", Value: c.Sensitivity()},
				{Name: "specificity", Value: c.Specificity()},
				{Name: "f1_score", Value: c.F1()},
				{Name: "ppv", Value: c.PPV()},
				{Name: "npv", Value: c.NPV()},
				{Name: "auc", Value: auc},
				{Name: "auc_sens_80", Value: aucSens},
			},
		})
	}
	return scores, nil
}

func threshold(values []float64) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v > binaryThreshold
	}
	return out
}

// Score scores the single prediction CSV in predictionDir against the ground
// truth CSV in truthDir. It also returns the number of images scored.
func Score(truthDir, predictionDir string) (score.Scores, int, error) {
	truthPath, err := findTruthFile(truthDir)
	if err != nil {
		return nil, 0, err
	}

	predFiles, err := fsutil.FilesWithExt(predictionDir, ".csv")
	if err != nil {
		return nil, 0, fmt.Errorf("list prediction directory: %w", err)
	}
	switch {
	case len(predFiles) > 1:
		return nil, 0, score.Errorf("Multiple prediction files submitted. Exactly one CSV file should be submitted.")
	case len(predFiles) < 1:
		return nil, 0, score.Errorf("No prediction files submitted. Exactly one CSV file should be submitted.")
	}

	truthTable, err := parseFile(truthPath)
	if err != nil {
		return nil, 0, err
	}
	predTable, err := parseFile(filepath.Join(predictionDir, predFiles[0]))
	if err != nil {
		return nil, 0, err
	}
	scores, err := compare(truthTable, predTable)
	if err != nil {
		return nil, 0, err
	}
	return scores, truthTable.Len(), nil
}

func findTruthFile(dir string) (string, error) {
	files, _, err := fsutil.Entries(dir)
	if err != nil {
		return "", fmt.Errorf("list truth directory: %w", err)
	}
	for _, f := range files {
		if truthFilePattern.MatchString(f) {
			return filepath.Join(dir, f), nil
		}
	}
	return "", score.Errorf("Internal error, truth file could not be found.")
}

func parseFile(path string) (*Table, error) {
	// #nosec G304 -- path is a listing of an unpacked scratch directory
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseCSV(f)
}
