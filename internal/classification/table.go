// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package classification

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ManuGH/isic-scoring/internal/score"
)

// ImageColumn is the row label column.
const ImageColumn = "image"

// Categories are the diagnosis columns, in output order.
var Categories = []string{"MEL", "NV", "BCC", "AKIEC", "BKL", "DF", "VASC"}

// ExcludeLabels are images dropped from both truth and prediction before scoring.
var ExcludeLabels = []string{"ISIC_0035068"}

// missingMarkers are cell values read as "no value".
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Table holds one probability row per image, columns in Categories order.
type Table struct {
	Images []string
	Values [][]float64
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Images) }

// Column returns the values of category column k.
func (t *Table) Column(k int) []float64 {
	out := make([]float64, len(t.Values))
	for i, row := range t.Values {
		out[i] = row[k]
	}
	return out
}

// Exclude drops rows whose image is in labels. Unknown labels are ignored.
func (t *Table) Exclude(labels []string) {
	drop := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		drop[l] = struct{}{}
	}
	images := t.Images[:0]
	values := t.Values[:0]
	for i, img := range t.Images {
		if _, ok := drop[img]; ok {
			continue
		}
		images = append(images, img)
		values = append(values, t.Values[i])
	}
	t.Images, t.Values = images, values
}

// Sort orders rows by image ID.
func (t *Table) Sort() { sort.Sort(byImage{t}) }

type byImage struct{ t *Table }

func (b byImage) Len() int           { return len(b.t.Images) }
func (b byImage) Less(i, j int) bool { return b.t.Images[i] < b.t.Images[j] }
func (b byImage) Swap(i, j int) {
	b.t.Images[i], b.t.Images[j] = b.t.Images[j], b.t.Images[i]
	b.t.Values[i], b.t.Values[j] = b.t.Values[j], b.t.Values[i]
}

// ParseCSV reads a probability table. The first row is the header; it must
// hold the image column and exactly the Categories columns, in any order.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, score.Errorf("Could not parse CSV: line %d: %s.", pe.Line, pe.Err)
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, score.Errorf("Could not parse CSV: no header row.")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := records[1:]

	imageIdx := -1
	colIdx := make(map[string]int, len(header))
	var duplicateCols []string
	for i, name := range header {
		if name == ImageColumn && imageIdx < 0 {
			imageIdx = i
			continue
		}
		if _, seen := colIdx[name]; seen || name == ImageColumn {
			duplicateCols = append(duplicateCols, name)
			continue
		}
		colIdx[name] = i
	}
	if imageIdx < 0 {
		return nil, score.Errorf(`Missing column in CSV: "image".`)
	}
	if len(duplicateCols) > 0 {
		return nil, score.Errorf("Duplicate columns in CSV: %s.", score.FormatList(uniqueSorted(duplicateCols)))
	}

	images := make([]string, len(rows))
	for i, row := range rows {
		if imageIdx < len(row) {
			images[i] = row[imageIdx]
		}
	}
	if dups := duplicates(images); len(dups) > 0 {
		return nil, score.Errorf("Duplicate image IDs in CSV: %s.", score.FormatList(dups))
	}

	var missingCols, extraCols []string
	for _, c := range Categories {
		if _, ok := colIdx[c]; !ok {
			missingCols = append(missingCols, c)
		}
	}
	for name := range colIdx {
		if !isCategory(name) {
			extraCols = append(extraCols, name)
		}
	}
	if len(missingCols) > 0 {
		return nil, score.Errorf("Missing columns in CSV: %s.", score.FormatList(uniqueSorted(missingCols)))
	}
	if len(extraCols) > 0 {
		return nil, score.Errorf("Extra columns in CSV: %s.", score.FormatList(uniqueSorted(extraCols)))
	}

	var ragged []string
	for i, row := range rows {
		if len(row) != len(header) {
			ragged = append(ragged, images[i])
		}
	}
	if len(ragged) > 0 {
		return nil, score.Errorf("Extra or missing fields in CSV row for images: %s.", score.FormatList(ragged))
	}

	order := make([]int, len(Categories))
	for k, c := range Categories {
		order[k] = colIdx[c]
	}

	var missingRows []string
	for i, row := range rows {
		for _, idx := range order {
			if _, ok := missingMarkers[strings.TrimSpace(row[idx])]; ok {
				missingRows = append(missingRows, images[i])
				break
			}
		}
	}
	if len(missingRows) > 0 {
		return nil, score.Errorf("Missing value(s) in CSV for images: %s.", score.FormatList(missingRows))
	}

	values := make([][]float64, len(rows))
	badCol := make([]bool, len(Categories))
	for i, row := range rows {
		values[i] = make([]float64, len(Categories))
		for k, idx := range order {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				badCol[k] = true
				continue
			}
			values[i][k] = v
		}
	}
	var nonFloat []string
	for k, bad := range badCol {
		if bad {
			nonFloat = append(nonFloat, Categories[k])
		}
	}
	if len(nonFloat) > 0 {
		return nil, score.Errorf("CSV contains non-floating-point value(s) in columns: %s.", score.FormatList(nonFloat))
	}

	var outOfRange []string
	for i, row := range values {
		for _, v := range row {
			if v < 0 || v > 1 || math.IsNaN(v) {
				outOfRange = append(outOfRange, images[i])
				break
			}
		}
	}
	if len(outOfRange) > 0 {
		return nil, score.Errorf("Values in CSV are outside the interval [0.0, 1.0] for images: %s.",
			score.FormatList(outOfRange))
	}

	return &Table{Images: images, Values: values}, nil
}

// ValidateRows requires prediction to hold exactly the images of truth.
func ValidateRows(truth, prediction *Table) error {
	if missing := difference(truth.Images, prediction.Images); len(missing) > 0 {
		return score.Errorf("Missing images in CSV: %s.", score.FormatList(missing))
	}
	if extra := difference(prediction.Images, truth.Images); len(extra) > 0 {
		return score.Errorf("Extra images in CSV: %s.", score.FormatList(extra))
	}
	return nil
}

func isCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// difference returns the sorted members of a that are absent from b.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return uniqueSorted(out)
}

func duplicates(items []string) []string {
	seen := make(map[string]int, len(items))
	var out []string
	for _, s := range items {
		seen[s]++
		if seen[s] == 2 {
			out = append(out, s)
		}
	}
	return uniqueSorted(out)
}

func uniqueSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := append([]string(nil), items...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
