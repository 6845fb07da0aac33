// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package jobs schedules asynchronous scoring of accepted submissions.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/metrics"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
	"github.com/ManuGH/isic-scoring/internal/store"
	"github.com/ManuGH/isic-scoring/internal/submission"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("jobs: queue closed")
	// ErrTaskNotConfigured is returned for a task without a ground truth directory.
	ErrTaskNotConfigured = errors.New("jobs: task not configured")
)

// Messages stored for failures that are not the participant's fault.
const (
	internalFailure = "Internal error: scoring failed."
	canceledFailure = "Internal error: scoring was canceled."
)

// Store is the persistence the queue drives.
type Store interface {
	Create(ctx context.Context, id string, task score.Task) (*store.Submission, error)
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id, digest, submittedFile string, scores score.Scores) error
	Fail(ctx context.Context, id, message string) error
	FindByDigest(ctx context.Context, task score.Task, digest string) (*store.Submission, error)
}

// Scorer runs one scoring request.
type Scorer interface {
	Score(ctx context.Context, req scorer.Request) (scorer.Result, error)
}

// Config controls a Queue.
type Config struct {
	// Workers is the number of submissions scored at once (<= 0 means 1).
	Workers int
	// ResultsDir receives one <id>.json artifact per finished submission.
	ResultsDir string
	// Dedupe reuses the scores of an earlier identical prediction file.
	Dedupe bool
	// TruthDir resolves the ground truth directory of a task ("" = not configured).
	TruthDir func(score.Task) string
}

// Job is a submission to score. The queue owns PredictionDir from Submit on
// and removes it once the job finishes.
type Job struct {
	Task              score.Task
	PredictionDir     string
	RequireManuscript bool
}

// Queue scores jobs on a bounded worker pool.
type Queue struct {
	cfg    Config
	store  Store
	scorer Scorer
	pool   *workerpool.WorkerPool

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// New starts a queue.
func New(cfg Config, st Store, sc Scorer) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:     cfg,
		store:   st,
		scorer:  sc,
		pool:    workerpool.New(max(cfg.Workers, 1)),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Submit records job as queued and schedules it. It returns the submission id.
func (q *Queue) Submit(ctx context.Context, job Job) (string, error) {
	if !job.Task.Valid() || q.truthDir(job.Task) == "" {
		return "", fmt.Errorf("%w: %d", ErrTaskNotConfigured, int(job.Task))
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	if _, err := q.store.Create(ctx, id, job.Task); err != nil {
		return "", err
	}
	metrics.IncSubmissionsQueued()

	jobCtx := log.ContextWithSubmissionID(q.baseCtx, id)
	if rid := log.RequestIDFromContext(ctx); rid != "" {
		jobCtx = log.ContextWithRequestID(jobCtx, rid)
	}
	logger := log.WithComponentFromContext(jobCtx, "jobs")
	logger.Info().
		Str(log.FieldEvent, "submission.queued").
		Str(log.FieldTask, job.Task.Label()).
		Int("waiting", q.pool.WaitingQueueSize()).
		Msg("submission queued")

	q.pool.Submit(func() {
		defer metrics.DecSubmissionsQueued()
		q.run(jobCtx, id, job)
	})
	return id, nil
}

// Waiting returns the number of jobs not yet picked up by a worker.
func (q *Queue) Waiting() int { return q.pool.WaitingQueueSize() }

// Close stops accepting jobs and waits for queued and running ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.pool.StopWait()
	q.cancel()
}

// Abort cancels running jobs, then waits like Close. Queued jobs fail fast.
func (q *Queue) Abort() {
	q.cancel()
	q.Close()
}

func (q *Queue) truthDir(task score.Task) string {
	if q.cfg.TruthDir == nil {
		return ""
	}
	return q.cfg.TruthDir(task)
}

func (q *Queue) run(ctx context.Context, id string, job Job) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	defer func() {
		if err := os.RemoveAll(job.PredictionDir); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, job.PredictionDir).Msg("failed to remove staged prediction")
		}
	}()

	if err := q.store.MarkRunning(context.WithoutCancel(ctx), id); err != nil {
		logger.Error().Err(err).Msg("failed to mark submission running")
		// a row left queued would never be picked up again
		q.finish(ctx, id, job.Task, "", "", nil, fmt.Errorf("mark running: %w", err))
		return
	}

	if cached, digest := q.cached(ctx, job); cached != nil {
		logger.Info().
			Str(log.FieldEvent, "submission.deduplicated").
			Str(log.FieldDigest, digest).
			Str("source_id", cached.ID).
			Msg("reusing scores of identical submission")
		q.finish(ctx, id, job.Task, digest, cached.SubmittedFile, cached.Scores, nil)
		return
	}

	res, err := q.scorer.Score(ctx, scorer.Request{
		TruthDir:          q.truthDir(job.Task),
		PredictionDir:     job.PredictionDir,
		Task:              job.Task,
		RequireManuscript: job.RequireManuscript,
	})
	q.finish(ctx, id, job.Task, res.Digest, res.SubmittedFile, res.Scores, err)
}

// cached looks up an earlier succeeded submission with the same prediction file.
// Jobs that must carry a manuscript are always scored.
func (q *Queue) cached(ctx context.Context, job Job) (*store.Submission, string) {
	if !q.cfg.Dedupe || job.RequireManuscript {
		return nil, ""
	}
	digest, err := digestSingleFile(job.PredictionDir)
	if err != nil {
		return nil, ""
	}
	sub, err := q.store.FindByDigest(ctx, job.Task, digest)
	if err != nil {
		return nil, digest
	}
	return sub, digest
}

func (q *Queue) finish(ctx context.Context, id string, task score.Task, digest, file string, scores score.Scores, runErr error) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	// Persist even when the job context is canceled.
	dbCtx := context.WithoutCancel(ctx)

	artifact := Artifact{ID: id, Task: task, Digest: digest, SubmittedFile: file}
	if runErr == nil {
		artifact.State = store.StateSucceeded
		artifact.Scores = scores
		if err := q.store.Complete(dbCtx, id, digest, file, scores); err != nil {
			logger.Error().Err(err).Msg("failed to record scores")
			return
		}
	} else {
		msg := score.Message(runErr)
		switch {
		case msg != "":
		case ctx.Err() != nil:
			msg = canceledFailure
		default:
			msg = internalFailure
			logger.Error().Err(runErr).Str(log.FieldEvent, "submission.failed").Msg("scoring failed")
		}
		artifact.State = store.StateFailed
		artifact.Error = msg
		if err := q.store.Fail(dbCtx, id, msg); err != nil {
			logger.Error().Err(err).Msg("failed to record failure")
			return
		}
	}

	if q.cfg.ResultsDir == "" {
		return
	}
	if err := WriteArtifact(dbCtx, q.cfg.ResultsDir, artifact); err != nil {
		logger.Error().Err(err).Msg("failed to write result artifact")
	}
}

// digestSingleFile digests the only regular file in dir.
func digestSingleFile(dir string) (string, error) {
	files, _, err := fsutil.Entries(dir)
	if err != nil {
		return "", err
	}
	if len(files) != 1 {
		return "", fmt.Errorf("expected one file in %s, found %d", dir, len(files))
	}
	return submission.Digest(filepath.Join(dir, files[0]))
}
