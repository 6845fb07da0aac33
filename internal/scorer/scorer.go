// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scorer runs one scoring job end to end: unpack truth and
// prediction, check the manuscript, dispatch to the task scorer, clean up.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/isic-scoring/internal/classification"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/metrics"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/segmentation"
	"github.com/ManuGH/isic-scoring/internal/submission"
	"github.com/ManuGH/isic-scoring/internal/telemetry"
)

const tracerName = "github.com/ManuGH/isic-scoring/internal/scorer"

// Scorer scores submissions. The zero value is usable.
type Scorer struct {
	// Workers bounds the images compared concurrently (<= 0 means 1).
	Workers int
	// ScratchDir is where inputs are unpacked ("" = os.TempDir()).
	ScratchDir string
}

// Request names the inputs of one run. Both directories must hold exactly
// one file; the prediction directory may also hold the manuscript directory.
type Request struct {
	TruthDir          string
	PredictionDir     string
	Task              score.Task
	RequireManuscript bool
}

// Result is a successful run.
type Result struct {
	Task          score.Task    `json:"task"`
	Scores        score.Scores  `json:"scores"`
	Digest        string        `json:"digest"`
	SubmittedFile string        `json:"submitted_file"`
	Images        int           `json:"images"`
	Duration      time.Duration `json:"duration_ns"`
}

// Score runs req. Participant-facing failures are *score.Error values.
func (s *Scorer) Score(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	logger := log.WithComponentFromContext(ctx, "scorer")

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "scorer.score")
	span.SetAttributes(telemetry.ScoringAttributes(int(req.Task), log.SubmissionIDFromContext(ctx))...)

	defer func() {
		elapsed := time.Since(start)
		canceled := ctx.Err() != nil && errors.Is(err, ctx.Err())
		outcome := metrics.Outcome(err, canceled)
		metrics.RecordScoringRun(req.Task, outcome, elapsed, res.Images)
		telemetry.RecordScoring(ctx, int(req.Task), outcome, res.Images)

		span.SetAttributes(telemetry.ResultAttributes(outcome, res.Digest, res.SubmittedFile, res.Images)...)
		if outcome != metrics.OutcomeSuccess {
			span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()

		ev := logger.Info()
		event := "scoring.completed"
		switch outcome {
		case metrics.OutcomeSuccess:
			metrics.RecordScores(req.Task, res.Scores)
		case metrics.OutcomeScoreError:
			ev = logger.Warn().Str("reason", score.Message(err))
			event = "scoring.rejected"
		default:
			ev = logger.Error().Err(err)
			event = "scoring.failed"
		}
		ev.Str(log.FieldEvent, event).
			Str(log.FieldTask, req.Task.Label()).
			Str(log.FieldDigest, res.Digest).
			Int(log.FieldImages, res.Images).
			Int64(log.FieldDurationMS, elapsed.Milliseconds()).
			Msg("scoring finished")
	}()

	truth, prediction, err := s.unpack(ctx, req)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := truth.Cleanup(); cerr != nil {
			logger.Warn().Err(cerr).Str(log.FieldPath, truth.Dir).Msg("failed to remove scratch directory")
		}
		if cerr := prediction.Cleanup(); cerr != nil {
			logger.Warn().Err(cerr).Str(log.FieldPath, prediction.Dir).Msg("failed to remove scratch directory")
		}
	}()

	res = Result{Task: req.Task, Digest: prediction.Digest, SubmittedFile: prediction.SubmittedFile}

	if req.RequireManuscript {
		if err := submission.EnsureManuscript(prediction.Dir); err != nil {
			return res, err
		}
	}

	// checked after unpacking so archive and manuscript problems are reported first
	if !req.Task.Valid() {
		return res, score.Errorf("Internal error: unknown ground truth phase number: %d.", int(req.Task))
	}

	var scores score.Scores
	var images int
	switch req.Task {
	case score.TaskLesionSegmentation:
		scores, images, err = segmentation.ScoreLesions(ctx, truth.Dir, prediction.Dir, s.Workers)
	case score.TaskAttributeDetection:
		scores, images, err = segmentation.ScoreAttributes(ctx, truth.Dir, prediction.Dir, s.Workers)
	case score.TaskClassification:
		scores, images, err = classification.Score(truth.Dir, prediction.Dir)
	}
	if err != nil {
		return res, err
	}

	res.Scores = scores
	res.Images = images
	res.Duration = time.Since(start)
	return res, nil
}

// unpack extracts truth and prediction side by side. A truth failure is
// reported ahead of a prediction failure.
func (s *Scorer) unpack(ctx context.Context, req Request) (truth, prediction *submission.Unpacked, err error) {
	var truthErr, predErr error
	var g errgroup.Group
	g.Go(func() error {
		truth, truthErr = submission.Unpack(ctx, req.TruthDir, submission.Options{ScratchDir: s.ScratchDir})
		return nil
	})
	g.Go(func() error {
		prediction, predErr = submission.Unpack(ctx, req.PredictionDir, submission.Options{
			AllowManuscriptDirectory: true,
			ScratchDir:               s.ScratchDir,
		})
		return nil
	})
	_ = g.Wait()

	if truthErr == nil && predErr == nil {
		return truth, prediction, nil
	}
	_ = truth.Cleanup()
	_ = prediction.Cleanup()
	if truthErr != nil {
		return nil, nil, fmt.Errorf("ground truth: %w", truthErr)
	}
	return nil, nil, predErr
}
