// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists submissions and their scores in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/isic-scoring/internal/persistence/sqlite"
	"github.com/ManuGH/isic-scoring/internal/score"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	task INTEGER NOT NULL,
	state TEXT NOT NULL,
	digest TEXT NOT NULL DEFAULT '',
	submitted_file TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	scores TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
CREATE INDEX IF NOT EXISTS idx_submissions_digest ON submissions(task, digest, state);
`

// State is the lifecycle position of a submission.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// ErrNotFound is returned when no submission matches.
var ErrNotFound = errors.New("store: submission not found")

// ErrInvalidTransition is returned when a state change skips the lifecycle.
var ErrInvalidTransition = errors.New("store: invalid state transition")

// Submission is one scoring request and its outcome.
type Submission struct {
	ID            string       `json:"id"`
	Task          score.Task   `json:"task"`
	State         State        `json:"state"`
	Digest        string       `json:"digest,omitempty"`
	SubmittedFile string       `json:"submitted_file,omitempty"`
	Error         string       `json:"error,omitempty"`
	Scores        score.Scores `json:"scores,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Store is the SQLite-backed submission repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, cfg sqlite.Config) (*Store, error) {
	db, err := sqlite.Open(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := sqlite.Migrate(ctx, db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("submission store: migration failed: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Create inserts a queued submission.
func (s *Store) Create(ctx context.Context, id string, task score.Task) (*Submission, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, task, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, int(task), string(StateQueued), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create submission %s: %w", id, err)
	}
	return &Submission{ID: id, Task: task, State: StateQueued, CreatedAt: now, UpdatedAt: now}, nil
}

// MarkRunning moves a queued submission to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.transition(ctx, id, StateQueued, StateRunning,
		`UPDATE submissions SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(StateRunning), formatTime(s.now()), id, string(StateQueued))
}

// Complete records the scores of a running submission.
func (s *Store) Complete(ctx context.Context, id, digest, submittedFile string, scores score.Scores) error {
	payload, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	return s.transition(ctx, id, StateRunning, StateSucceeded,
		`UPDATE submissions SET state = ?, digest = ?, submitted_file = ?, scores = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(StateSucceeded), digest, submittedFile, string(payload), formatTime(s.now()), id, string(StateRunning))
}

// Fail records the failure message of a queued or running submission.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET state = ?, error = ?, updated_at = ? WHERE id = ? AND state IN (?, ?)`,
		string(StateFailed), message, formatTime(s.now()), id, string(StateQueued), string(StateRunning))
	if err != nil {
		return fmt.Errorf("fail submission %s: %w", id, err)
	}
	return s.checkAffected(ctx, res, id)
}

func (s *Store) transition(ctx context.Context, id string, from, to State, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("submission %s %s -> %s: %w", id, from, to, err)
	}
	return s.checkAffected(ctx, res, id)
}

// checkAffected distinguishes an unknown id from a disallowed transition.
func (s *Store) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, id)
}

const selectColumns = `SELECT id, task, state, digest, submitted_file, error, scores, created_at, updated_at FROM submissions`

// Get returns the submission with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sub, err
}

// List returns the most recent submissions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// FindByDigest returns the latest succeeded submission of task with digest, or ErrNotFound.
func (s *Store) FindByDigest(ctx context.Context, task score.Task, digest string) (*Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		selectColumns+` WHERE task = ? AND digest = ? AND state = ? ORDER BY updated_at DESC LIMIT 1`,
		int(task), digest, string(StateSucceeded)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: digest %s", ErrNotFound, digest)
	}
	return sub, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*Submission, error) {
	var (
		sub                  Submission
		task                 int
		state                string
		scores               sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&sub.ID, &task, &state, &sub.Digest, &sub.SubmittedFile, &sub.Error, &scores, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sub.Task = score.Task(task)
	sub.State = State(state)
	if scores.Valid && scores.String != "" {
		if err := json.Unmarshal([]byte(scores.String), &sub.Scores); err != nil {
			return nil, fmt.Errorf("decode scores of %s: %w", sub.ID, err)
		}
	}
	sub.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	sub.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &sub, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
