// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/isic-scoring/internal/jobs"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/persistence/sqlite"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
	"github.com/ManuGH/isic-scoring/internal/store"
	"github.com/ManuGH/isic-scoring/internal/testutil"
)

type scorerFunc func(ctx context.Context, req scorer.Request) (scorer.Result, error)

func (f scorerFunc) Score(ctx context.Context, req scorer.Request) (scorer.Result, error) {
	return f(ctx, req)
}

func drainFixture(t *testing.T, sc scorerFunc) (*Daemon, *store.Store, string) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "submissions.db"), sqlite.DefaultConfig())
	require.NoError(t, err)

	truth := t.TempDir()
	q := jobs.New(jobs.Config{
		Workers:  1,
		TruthDir: func(score.Task) string { return truth },
	}, st, sc)
	d := &Daemon{logger: log.WithComponent("daemon"), queue: q}

	staged := filepath.Join(t.TempDir(), "staged")
	testutil.WriteFile(t, staged, "upload.zip", []byte("x"))
	id, err := q.Submit(context.Background(), jobs.Job{Task: score.TaskClassification, PredictionDir: staged})
	require.NoError(t, err)
	return d, st, id
}

func TestDrainAbortsAfterTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	d, st, id := drainFixture(t, func(ctx context.Context, _ scorer.Request) (scorer.Result, error) {
		close(started)
		<-ctx.Done()
		return scorer.Result{}, ctx.Err()
	})
	defer func() { _ = st.Close() }()
	<-started

	begin := time.Now()
	d.drain(50 * time.Millisecond)
	assert.Less(t, time.Since(begin), 5*time.Second)

	sub, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StateFailed, sub.State)
	assert.Equal(t, "Internal error: scoring was canceled.", sub.Error)
}

func TestDrainWaitsForRunningSubmission(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	d, st, id := drainFixture(t, func(ctx context.Context, req scorer.Request) (scorer.Result, error) {
		<-release
		return scorer.Result{Task: req.Task, Digest: "d1", SubmittedFile: "upload.zip"}, nil
	})
	defer func() { _ = st.Close() }()
	time.AfterFunc(20*time.Millisecond, func() { close(release) })

	d.drain(5 * time.Second)

	sub, err := st.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, store.StateSucceeded, sub.State)
}
