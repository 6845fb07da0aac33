// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import (
	"fmt"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// EnsureManuscript requires exactly one PDF in an unpacked prediction directory.
func EnsureManuscript(dir string) error {
	pdfs, err := fsutil.FilesWithExt(dir, ".pdf")
	if err != nil {
		return fmt.Errorf("list prediction directory: %w", err)
	}
	switch {
	case len(pdfs) > 1:
		return score.Errorf("Multiple PDFs submitted. Exactly one PDF file, containing the descriptive manuscript, " +
			"must included in the submission.")
	case len(pdfs) < 1:
		return score.Errorf("No PDF submitted. Exactly one PDF file, containing the descriptive manuscript, " +
			"must included in the submission.")
	}
	return nil
}
