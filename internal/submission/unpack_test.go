// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// writeZip creates a ZIP at path with the given members; names ending in "/" become directories.
func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if body != "" {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestExtractZipFlattens(t *testing.T) {
	src := filepath.Join(t.TempDir(), "submission.zip")
	writeZip(t, src, map[string]string{
		"predictions/":                    "",
		"predictions/ISIC_0000000.png":    "img0",
		"predictions/nested/response.csv": "csv",
		"__MACOSX/predictions/._x.png":    "junk",
	})
	out := t.TempDir()

	require.NoError(t, ExtractZip(context.Background(), src, out, true))

	files, dirs, err := fsutil.Entries(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"ISIC_0000000.png", "response.csv"}, files)
	assert.Empty(t, dirs)
}

func TestExtractZipKeepsTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "truth.zip")
	writeZip(t, src, map[string]string{
		"a/b/c.txt": "deep",
	})
	out := t.TempDir()

	require.NoError(t, ExtractZip(context.Background(), src, out, false))

	data, err := os.ReadFile(filepath.Join(out, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestExtractZipRejectsTraversalWhenKeepingTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, map[string]string{"../escape.txt": "x"})

	err := ExtractZip(context.Background(), src, t.TempDir(), false)
	require.Error(t, err)
	assert.True(t, score.IsScoreError(err))
}

func TestExtractZipBadArchive(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.zip")
	writeFile(t, src, "definitely not a zip")

	err := ExtractZip(context.Background(), src, t.TempDir(), true)
	require.Error(t, err)
	assert.True(t, score.IsScoreError(err))
	assert.Contains(t, err.Error(), `Could not read ZIP file "broken.zip"`)
}

func TestUnpackZip(t *testing.T) {
	in := t.TempDir()
	writeZip(t, filepath.Join(in, "Upload.ZIP"), map[string]string{"dir/pred.csv": "image,MEL\n"})

	u, err := Unpack(context.Background(), in, Options{ScratchDir: t.TempDir()})
	require.NoError(t, err)
	defer func() { require.NoError(t, u.Cleanup()) }()

	assert.Equal(t, "Upload.ZIP", u.SubmittedFile)
	assert.Len(t, u.Digest, 64)
	assert.FileExists(t, filepath.Join(u.Dir, "pred.csv"))
}

func TestUnpackCopiesPlainFileAndManuscript(t *testing.T) {
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "pred.csv"), "image,MEL\n")
	writeFile(t, filepath.Join(in, ManuscriptDir, "paper.pdf"), "%PDF")

	u, err := Unpack(context.Background(), in, Options{AllowManuscriptDirectory: true})
	require.NoError(t, err)
	defer func() { _ = u.Cleanup() }()

	assert.FileExists(t, filepath.Join(u.Dir, "pred.csv"))
	assert.FileExists(t, filepath.Join(u.Dir, "paper.pdf"))
	require.NoError(t, EnsureManuscript(u.Dir))

	require.NoError(t, u.Cleanup())
	assert.NoDirExists(t, u.Dir)
}

func TestUnpackErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string)
		opts    Options
		wantMsg string
	}{
		{
			name:    "no files",
			setup:   func(t *testing.T, dir string) {},
			wantMsg: "No files submitted. Exactly one ZIP file should be submitted.",
		},
		{
			name: "multiple files",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "a.zip"), "")
				writeFile(t, filepath.Join(dir, "b.zip"), "")
			},
			wantMsg: "Multiple files submitted. Exactly one ZIP file should be submitted.",
		},
		{
			name: "directory without manuscripts",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "a.zip"), "")
				require.NoError(t, os.Mkdir(filepath.Join(dir, ManuscriptDir), 0o750))
			},
			wantMsg: "Internal error: unexpected directory found.",
		},
		{
			name: "wrong manuscript directory",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "a.zip"), "")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "Extra"), 0o750))
			},
			opts:    Options{AllowManuscriptDirectory: true},
			wantMsg: "Internal error: unexpected directory found: Extra.",
		},
		{
			name: "multiple directories",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "a.zip"), "")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "One"), 0o750))
				require.NoError(t, os.Mkdir(filepath.Join(dir, "Two"), 0o750))
			},
			opts:    Options{AllowManuscriptDirectory: true},
			wantMsg: "Internal error: multiple directories found.",
		},
		{
			name: "empty manuscript directory",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "a.zip"), "")
				require.NoError(t, os.Mkdir(filepath.Join(dir, ManuscriptDir), 0o750))
			},
			opts:    Options{AllowManuscriptDirectory: true},
			wantMsg: "Empty manuscript directory found.",
		},
		{
			name: "two manuscripts",
			setup: func(t *testing.T, dir string) {
				writeFile(t, filepath.Join(dir, "a.zip"), "")
				writeFile(t, filepath.Join(dir, ManuscriptDir, "one.pdf"), "")
				writeFile(t, filepath.Join(dir, ManuscriptDir, "two.pdf"), "")
			},
			opts:    Options{AllowManuscriptDirectory: true},
			wantMsg: "Multiple files found in manuscript directory.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			u, err := Unpack(context.Background(), dir, tt.opts)
			require.Error(t, err)
			assert.Nil(t, u)
			assert.Equal(t, tt.wantMsg, score.Message(err))
		})
	}
}

func TestEnsureManuscript(t *testing.T) {
	dir := t.TempDir()
	err := EnsureManuscript(dir)
	require.Error(t, err)
	assert.Contains(t, score.Message(err), "No PDF submitted.")

	writeFile(t, filepath.Join(dir, "a.PDF"), "")
	require.NoError(t, EnsureManuscript(dir))

	writeFile(t, filepath.Join(dir, "b.pdf"), "")
	err = EnsureManuscript(dir)
	require.Error(t, err)
	assert.Contains(t, score.Message(err), "Multiple PDFs submitted.")
}

func TestDigestIsStable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	writeFile(t, a, "same bytes")
	writeFile(t, b, "same bytes")

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	writeFile(t, b, "other bytes")
	db, err = Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}
