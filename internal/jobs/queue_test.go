// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/isic-scoring/internal/persistence/sqlite"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
	"github.com/ManuGH/isic-scoring/internal/store"
	"github.com/ManuGH/isic-scoring/internal/testutil"
)

type fakeScorer struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req scorer.Request) (scorer.Result, error)
}

func (f *fakeScorer) Score(ctx context.Context, req scorer.Request) (scorer.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeScorer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var fixedScores = score.Scores{
	{Dataset: score.DatasetAggregate, Metrics: []score.Metric{{Name: "balanced_accuracy", Value: 0.5}}},
}

func succeed(_ context.Context, req scorer.Request) (scorer.Result, error) {
	return scorer.Result{Task: req.Task, Scores: fixedScores, Digest: "d1", SubmittedFile: "upload.zip", Images: 3}, nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "submissions.db"), sqlite.DefaultConfig())
	require.NoError(t, err)
	return st
}

func stagePrediction(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "staged")
	testutil.WriteFile(t, dir, "upload.zip", []byte(content))
	return dir
}

func newQueue(t *testing.T, st Store, sc Scorer, dedupe bool) (*Queue, string) {
	t.Helper()
	results := t.TempDir()
	truth := t.TempDir()
	q := New(Config{
		Workers:    1,
		ResultsDir: results,
		Dedupe:     dedupe,
		TruthDir: func(task score.Task) string {
			if task == score.TaskClassification {
				return truth
			}
			return ""
		},
	}, st, sc)
	return q, results
}

func waitTerminal(t *testing.T, st *store.Store, id string) *store.Submission {
	t.Helper()
	var sub *store.Submission
	require.Eventually(t, func() bool {
		var err error
		sub, err = st.Get(context.Background(), id)
		return err == nil && sub.State.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return sub
}

func TestSubmitScoresAndWritesArtifact(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	q, results := newQueue(t, st, &fakeScorer{fn: succeed}, false)
	defer q.Close()

	staged := stagePrediction(t, "zip bytes")
	id, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: staged})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sub := waitTerminal(t, st, id)
	assert.Equal(t, store.StateSucceeded, sub.State)
	assert.Equal(t, "d1", sub.Digest)

	q.Close()
	a, err := ReadArtifact(results, id)
	require.NoError(t, err)
	assert.Equal(t, store.StateSucceeded, a.State)
	assert.Equal(t, fixedScores[0].Metrics[0].Value, a.Scores[0].Metrics[0].Value)
	assert.NoDirExists(t, staged, "staged prediction is removed")
}

func TestSubmitRecordsScoreError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	q, results := newQueue(t, st, &fakeScorer{fn: func(context.Context, scorer.Request) (scorer.Result, error) {
		return scorer.Result{}, score.Errorf("Missing images in CSV: ['ISIC_1'].")
	}}, false)
	defer q.Close()

	id, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: stagePrediction(t, "x")})
	require.NoError(t, err)

	sub := waitTerminal(t, st, id)
	assert.Equal(t, store.StateFailed, sub.State)
	assert.Equal(t, "Missing images in CSV: ['ISIC_1'].", sub.Error)

	q.Close()
	a, err := ReadArtifact(results, id)
	require.NoError(t, err)
	assert.Equal(t, store.StateFailed, a.State)
}

func TestSubmitHidesInternalErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	q, _ := newQueue(t, st, &fakeScorer{fn: func(context.Context, scorer.Request) (scorer.Result, error) {
		return scorer.Result{}, errors.New("open /var/lib/secret: permission denied")
	}}, false)
	defer q.Close()

	id, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: stagePrediction(t, "x")})
	require.NoError(t, err)
	assert.Equal(t, internalFailure, waitTerminal(t, st, id).Error)
}

// markRunningFails is a store whose queued -> running transition errors.
type markRunningFails struct {
	*store.Store
}

func (markRunningFails) MarkRunning(context.Context, string) error {
	return errors.New("database is locked")
}

func TestMarkRunningFailureFailsSubmission(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	sc := &fakeScorer{fn: succeed}
	q, results := newQueue(t, markRunningFails{st}, sc, false)
	defer q.Close()

	staged := stagePrediction(t, "x")
	id, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: staged})
	require.NoError(t, err)

	sub := waitTerminal(t, st, id)
	assert.Equal(t, store.StateFailed, sub.State)
	assert.Equal(t, internalFailure, sub.Error)
	assert.Zero(t, sc.Calls(), "a submission that never ran is not scored")

	q.Close()
	a, err := ReadArtifact(results, id)
	require.NoError(t, err)
	assert.Equal(t, store.StateFailed, a.State)
	assert.NoDirExists(t, staged)
}

func TestDedupeReusesScores(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	// The first run must store the real digest so the second can find it.
	fake := &fakeScorer{}
	fake.fn = func(_ context.Context, req scorer.Request) (scorer.Result, error) {
		return scorer.Result{Task: req.Task, Scores: fixedScores, Digest: digestOf(t, req.PredictionDir), SubmittedFile: "upload.zip"}, nil
	}
	q, _ := newQueue(t, st, fake, true)
	defer q.Close()

	first, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: stagePrediction(t, "same")})
	require.NoError(t, err)
	waitTerminal(t, st, first)

	second, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: stagePrediction(t, "same")})
	require.NoError(t, err)
	sub := waitTerminal(t, st, second)

	assert.Equal(t, store.StateSucceeded, sub.State)
	assert.Equal(t, 1, fake.Calls())
	require.Len(t, sub.Scores, 1)

	third, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: stagePrediction(t, "different")})
	require.NoError(t, err)
	waitTerminal(t, st, third)
	assert.Equal(t, 2, fake.Calls())
}

func digestOf(t *testing.T, dir string) string {
	t.Helper()
	d, err := digestSingleFile(dir)
	require.NoError(t, err)
	return d
}

func TestSubmitRejects(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	q, _ := newQueue(t, st, &fakeScorer{fn: succeed}, false)

	_, err := q.Submit(context.Background(), Job{Task: score.TaskLesionSegmentation, PredictionDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrTaskNotConfigured)
	_, err = q.Submit(context.Background(), Job{Task: score.Task(9), PredictionDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrTaskNotConfigured)

	q.Close()
	_, err = q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAbortCancelsRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	st := openStore(t)
	defer func() { _ = st.Close() }()

	started := make(chan struct{})
	q, _ := newQueue(t, st, &fakeScorer{fn: func(ctx context.Context, _ scorer.Request) (scorer.Result, error) {
		close(started)
		<-ctx.Done()
		return scorer.Result{}, ctx.Err()
	}}, false)

	id, err := q.Submit(context.Background(), Job{Task: score.TaskClassification, PredictionDir: stagePrediction(t, "x")})
	require.NoError(t, err)
	<-started

	q.Abort()
	sub, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StateFailed, sub.State)
	assert.Equal(t, canceledFailure, sub.Error)
}
