// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/store"
)

// Artifact is the on-disk record of a finished submission.
type Artifact struct {
	ID            string       `json:"id"`
	Task          score.Task   `json:"task"`
	State         store.State  `json:"state"`
	Digest        string       `json:"digest,omitempty"`
	SubmittedFile string       `json:"submitted_file,omitempty"`
	Error         string       `json:"error,omitempty"`
	Scores        score.Scores `json:"scores,omitempty"`
}

// ArtifactPath returns where the artifact of id is stored under dir.
func ArtifactPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

// WriteArtifact writes a atomically: readers see the old file or the complete new one.
func WriteArtifact(ctx context.Context, dir string, a Artifact) error {
	logger := log.WithComponentFromContext(ctx, "jobs")

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(ArtifactPath(dir, a.ID), renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending result file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending result file")
		}
	}()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace result file: %w", err)
	}
	return nil
}

// ReadArtifact loads the artifact of id from dir.
func ReadArtifact(dir, id string) (*Artifact, error) {
	// #nosec G304 -- id is a server-generated uuid
	data, err := os.ReadFile(ArtifactPath(dir, id))
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &a, nil
}
