// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package submission normalizes a truth or prediction input directory into a
// flat scratch directory the task scorers can read.
package submission

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// ManuscriptDir is the only subdirectory a prediction input may carry.
const ManuscriptDir = "Abstract"

// Options controls Unpack.
type Options struct {
	// AllowManuscriptDirectory permits an "Abstract" directory holding one manuscript file.
	AllowManuscriptDirectory bool
	// ScratchDir is the parent of the temporary output directory ("" = os.TempDir()).
	ScratchDir string
}

// Unpacked is a normalized input. Call Cleanup once scoring is done.
type Unpacked struct {
	// Dir holds the extracted (or copied) content, flattened.
	Dir string
	// SubmittedFile is the name of the single input file.
	SubmittedFile string
	// Digest is the BLAKE3 hex digest of the submitted file.
	Digest string
}

// Cleanup removes the scratch directory.
func (u *Unpacked) Cleanup() error {
	if u == nil || u.Dir == "" {
		return nil
	}
	return os.RemoveAll(u.Dir)
}

// Unpack validates that inputDir holds exactly one file (plus an optional
// manuscript directory), then extracts it when it is a ZIP or copies it otherwise.
func Unpack(ctx context.Context, inputDir string, opts Options) (*Unpacked, error) {
	files, dirs, err := fsutil.Entries(inputDir)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	switch {
	case len(files) > 1:
		return nil, score.Errorf("Multiple files submitted. Exactly one ZIP file should be submitted.")
	case len(files) < 1:
		return nil, score.Errorf("No files submitted. Exactly one ZIP file should be submitted.")
	}
	inputFile := filepath.Join(inputDir, files[0])

	manuscript, err := findManuscript(inputDir, dirs, opts.AllowManuscriptDirectory)
	if err != nil {
		return nil, err
	}

	digest, err := Digest(inputFile)
	if err != nil {
		return nil, fmt.Errorf("digest input: %w", err)
	}

	outDir, err := os.MkdirTemp(opts.ScratchDir, "isic-unpack-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	u := &Unpacked{Dir: outDir, SubmittedFile: files[0], Digest: digest}

	if strings.EqualFold(filepath.Ext(inputFile), ".zip") {
		err = ExtractZip(ctx, inputFile, outDir, true)
	} else {
		_, err = fsutil.CopyFile(inputFile, outDir)
	}
	if err == nil && manuscript != "" {
		_, err = fsutil.CopyFile(manuscript, outDir)
	}
	if err != nil {
		_ = u.Cleanup()
		return nil, err
	}
	return u, nil
}

func findManuscript(inputDir string, dirs []string, allowed bool) (string, error) {
	if !allowed {
		if len(dirs) > 0 {
			return "", score.Errorf("Internal error: unexpected directory found.")
		}
		return "", nil
	}

	switch {
	case len(dirs) > 1:
		return "", score.Errorf("Internal error: multiple directories found.")
	case len(dirs) == 0:
		return "", nil
	}
	if dirs[0] != ManuscriptDir {
		return "", score.Errorf("Internal error: unexpected directory found: %s.", dirs[0])
	}

	entries, err := os.ReadDir(filepath.Join(inputDir, ManuscriptDir))
	if err != nil {
		return "", fmt.Errorf("list manuscript directory: %w", err)
	}
	switch {
	case len(entries) == 0:
		return "", score.Errorf("Empty manuscript directory found.")
	case len(entries) > 1:
		return "", score.Errorf("Multiple files found in manuscript directory.")
	}
	return filepath.Join(inputDir, ManuscriptDir, entries[0].Name()), nil
}

// Digest returns the BLAKE3 hex digest of the file at path.
func Digest(path string) (string, error) {
	// #nosec G304 -- path comes from the submission directory listing
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
