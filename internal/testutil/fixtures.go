// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// ClassificationTruthCSV has three scored images plus one excluded image.
const ClassificationTruthCSV = "image,MEL,NV,BCC,AKIEC,BKL,DF,VASC\n" +
	"ISIC_0000001,1.0,0.0,0.0,0.0,0.0,0.0,0.0\n" +
	"ISIC_0000002,0.0,1.0,0.0,0.0,0.0,0.0,0.0\n" +
	"ISIC_0000003,0.0,1.0,0.0,0.0,0.0,0.0,0.0\n" +
	"ISIC_0035068,1.0,0.0,0.0,0.0,0.0,0.0,0.0\n"

// ClassificationPredictionCSV scores a balanced accuracy of 0.75 against ClassificationTruthCSV.
const ClassificationPredictionCSV = "image,MEL,NV,BCC,AKIEC,BKL,DF,VASC\n" +
	"ISIC_0000001,0.8,0.2,0.0,0.0,0.0,0.0,0.0\n" +
	"ISIC_0000002,0.6,0.4,0.0,0.0,0.0,0.0,0.0\n" +
	"ISIC_0000003,0.0,0.9,0.0,0.0,0.0,0.0,0.1\n"

// ClassificationTruthFile is the member name of the zipped ground truth.
const ClassificationTruthFile = "ISIC2018_Task3_Test_GroundTruth.csv"

// Zip builds an in-memory ZIP archive; members are written in name order.
func Zip(t testing.TB, members map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(members[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data to dir/name, creating dir, and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// GrayPNG encodes a grayscale image of the given width; pix is row-major.
func GrayPNG(t testing.TB, width int, pix ...uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, len(pix)/width))
	copy(img.Pix, pix)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// ClassificationTruthDir returns a directory holding the zipped classification ground truth.
func ClassificationTruthDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteFile(t, dir, "truth.zip", Zip(t, map[string][]byte{
		ClassificationTruthFile: []byte(ClassificationTruthCSV),
	}))
	return dir
}

// ClassificationPredictionZip zips ClassificationPredictionCSV, with a
// manuscript PDF when withManuscript is set.
func ClassificationPredictionZip(t testing.TB, withManuscript bool) []byte {
	t.Helper()
	members := map[string][]byte{"predictions/response.csv": []byte(ClassificationPredictionCSV)}
	if withManuscript {
		members["predictions/manuscript.pdf"] = []byte("%PDF-1.4\n")
	}
	return Zip(t, members)
}
