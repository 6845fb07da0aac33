// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package inbox turns ZIP files dropped into <root>/task<N>/ into queued submissions.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/jobs"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/score"
)

const (
	// ProcessedDir receives files that were queued.
	ProcessedDir = "processed"
	// RejectedDir receives files the queue refused.
	RejectedDir = "rejected"

	defaultSettle = 500 * time.Millisecond
)

// Submitter queues a staged submission.
type Submitter interface {
	Submit(ctx context.Context, job jobs.Job) (string, error)
}

// Config controls a Watcher.
type Config struct {
	// Root holds one task<N> directory per task.
	Root string
	// ScratchDir is where uploads are staged for the queue ("" = os.TempDir()).
	ScratchDir string
	// Settle is how long a file must stay unchanged before it is picked up.
	Settle time.Duration
	// RequireManuscript is passed on to every job.
	RequireManuscript bool
}

// Watcher watches the inbox directories.
type Watcher struct {
	cfg    Config
	sub    Submitter
	logger zerolog.Logger
}

// New creates a watcher; call Run to start it.
func New(cfg Config, sub Submitter) *Watcher {
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	return &Watcher{cfg: cfg, sub: sub, logger: log.WithComponent("inbox")}
}

// TaskDir returns the drop directory of task.
func TaskDir(root string, task score.Task) string {
	return filepath.Join(root, "task"+task.Label())
}

// Run creates the inbox layout, submits files already present, then watches
// for new ones until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range []string{ProcessedDir, RejectedDir} {
		if err := os.MkdirAll(filepath.Join(w.cfg.Root, dir), 0o750); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}
	for _, task := range score.Tasks {
		dir := TaskDir(w.cfg.Root, task)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.logger.Info().
		Str(log.FieldEvent, "inbox.started").
		Str(log.FieldPath, w.cfg.Root).
		Msg("watching inbox for submissions")

	for _, task := range score.Tasks {
		files, err := fsutil.FilesWithExt(TaskDir(w.cfg.Root, task), ".zip")
		if err != nil {
			return err
		}
		for _, f := range files {
			w.handle(ctx, filepath.Join(TaskDir(w.cfg.Root, task), f))
		}
	}

	timers := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str(log.FieldEvent, "inbox.stopped").Msg("inbox watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".zip") {
				continue
			}
			// Debounce: a file is handled once writes have stopped for Settle.
			path := event.Name
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.cfg.Settle, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			w.handle(ctx, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Str(log.FieldEvent, "inbox.watcher_error").Msg("inbox watcher error")
		}
	}
}

// handle stages path, submits it and moves it out of the task directory.
func (w *Watcher) handle(ctx context.Context, path string) {
	if err := fsutil.IsRegularFile(path); err != nil {
		return
	}
	name := filepath.Base(path)
	logger := w.logger.With().Str(log.FieldPath, path).Logger()

	task, err := score.ParseTask(strings.TrimPrefix(filepath.Base(filepath.Dir(path)), "task"))
	if err != nil {
		logger.Warn().Err(err).Msg("file outside a task directory")
		return
	}

	staged, err := os.MkdirTemp(w.cfg.ScratchDir, "isic-inbox-*")
	if err != nil {
		logger.Error().Err(err).Msg("failed to create staging directory")
		return
	}
	if _, err := fsutil.CopyFile(path, staged); err != nil {
		_ = os.RemoveAll(staged)
		logger.Error().Err(err).Msg("failed to stage submission")
		return
	}

	id, err := w.sub.Submit(ctx, jobs.Job{Task: task, PredictionDir: staged, RequireManuscript: w.cfg.RequireManuscript})
	if err != nil {
		_ = os.RemoveAll(staged)
		logger.Warn().Err(err).Str(log.FieldEvent, "inbox.rejected").Msg("submission rejected")
		w.move(logger, path, filepath.Join(w.cfg.Root, RejectedDir, name))
		return
	}

	logger.Info().
		Str(log.FieldEvent, "inbox.submitted").
		Str(log.FieldSubmissionID, id).
		Str(log.FieldTask, task.Label()).
		Msg("inbox submission queued")
	w.move(logger, path, filepath.Join(w.cfg.Root, ProcessedDir, id+"_"+name))
}

func (w *Watcher) move(logger zerolog.Logger, from, to string) {
	if err := os.Rename(from, to); err != nil {
		logger.Error().Err(err).Str("target", to).Msg("failed to move inbox file")
	}
}
