// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package segmentation scores binary mask submissions: lesion boundaries
// (one mask per image) and dermoscopic attributes (one mask per image and attribute).
package segmentation

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/isic-scoring/internal/measure"
	"github.com/ManuGH/isic-scoring/internal/score"
)

// foreground is the binarization threshold; pixels above it are lesion.
const foreground = 128

// Mask is a decoded single-channel image whose pixels are 0 or 255.
type Mask struct {
	Name   string
	Width  int
	Height int
	Pix    []uint8
}

// LoadMask decodes the PNG at path. A binary image whose high value is not
// 255 is rescaled so that value becomes 255.
func LoadMask(path string) (*Mask, error) {
	name := filepath.Base(path)

	// #nosec G304 -- path is a listing of an unpacked scratch directory
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mask: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return nil, score.Errorf("Could not decode image: %s", name)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, score.Errorf("Image %s is not single-channel (grayscale).", name)
	}

	b := gray.Bounds()
	m := &Mask{Name: name, Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, 0, b.Dx()*b.Dy())}
	var seen [256]bool
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := gray.PixOffset(b.Min.X, y)
		row := gray.Pix[off : off+b.Dx()]
		for _, v := range row {
			seen[v] = true
		}
		m.Pix = append(m.Pix, row...)
	}

	var high []uint8
	for v := 1; v < 256; v++ {
		if seen[v] {
			high = append(high, uint8(v))
		}
	}
	switch {
	case len(high) == 0 || (len(high) == 1 && high[0] == 255):
		// already 0/255
	case len(high) == 1:
		for i, v := range m.Pix {
			if v != 0 {
				m.Pix[i] = 255
			}
		}
	default:
		return nil, score.Errorf("Image %s contains values other than 0 and 255.", name)
	}
	return m, nil
}

// Compare counts the pixel agreement of prediction against truth.
func Compare(truth, prediction *Mask) (measure.Confusion, error) {
	if truth.Width != prediction.Width || truth.Height != prediction.Height {
		return measure.Confusion{}, score.Errorf("Image %s has dimensions (%d, %d); expected (%d, %d).",
			prediction.Name, prediction.Height, prediction.Width, truth.Height, truth.Width)
	}
	var tp, tn, fp, fn int
	for i, t := range truth.Pix {
		p := prediction.Pix[i] > foreground
		switch {
		case t > foreground && p:
			tp++
		case t > foreground:
			fn++
		case p:
			fp++
		default:
			tn++
		}
	}
	return measure.Confusion{TP: float64(tp), TN: float64(tn), FP: float64(fp), FN: float64(fn)}, nil
}

// MatchPrediction returns the first of files (sorted) whose name contains the
// ISIC ID of truthName, the second "_"-separated token of e.g. ISIC_0000003_Segmentation.png.
func MatchPrediction(truthName string, files []string) (string, error) {
	parts := strings.Split(truthName, "_")
	if len(parts) > 1 {
		for _, f := range files {
			if strings.Contains(f, parts[1]) {
				return f, nil
			}
		}
	}
	return "", score.Errorf("No matching submission image for: %s", truthName)
}

func compareFiles(truthPath, predictionPath string) (measure.Confusion, error) {
	truth, err := LoadMask(truthPath)
	if err != nil {
		return measure.Confusion{}, err
	}
	prediction, err := LoadMask(predictionPath)
	if err != nil {
		return measure.Confusion{}, err
	}
	return Compare(truth, prediction)
}
