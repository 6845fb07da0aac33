// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// macMetadataPrefix marks resource-fork members added by the macOS archiver.
const macMetadataPrefix = "__MACOSX"

// ExtractZip unpacks zipPath into outputDir. With flatten, every member lands
// directly in outputDir under its base name; directories and macOS metadata
// are dropped. Without flatten, member paths are kept and confined to outputDir.
func ExtractZip(ctx context.Context, zipPath, outputDir string, flatten bool) error {
	// #nosec G304 -- zipPath comes from the submission directory listing
	f, err := os.Open(zipPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	err = archives.Zip{}.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := info.NameInArchive
		if info.LinkTarget != "" {
			return nil
		}

		var dst string
		if flatten {
			if strings.HasPrefix(name, macMetadataPrefix) {
				return nil
			}
			base := path.Base(name)
			if info.IsDir() || strings.HasSuffix(name, "/") || base == "." || base == "/" {
				return nil
			}
			dst = filepath.Join(outputDir, base)
		} else {
			confined, err := fsutil.ConfineRelPath(outputDir, name)
			if err != nil {
				return score.Errorf("Could not read ZIP file %q: unsafe member path %q.", filepath.Base(zipPath), name)
			}
			if info.IsDir() {
				return os.MkdirAll(confined, 0o750)
			}
			if err := os.MkdirAll(filepath.Dir(confined), 0o750); err != nil {
				return err
			}
			dst = confined
		}

		rc, err := info.Open()
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		return fsutil.WriteFrom(dst, rc)
	})
	if err != nil {
		if score.IsScoreError(err) || ctx.Err() != nil {
			return err
		}
		return score.Errorf("Could not read ZIP file %q: %s.", filepath.Base(zipPath), err)
	}
	return nil
}
