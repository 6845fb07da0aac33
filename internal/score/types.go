// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package score

import (
	"encoding/json"
	"math"
)

// DatasetAggregate names the summary dataset of a run.
const DatasetAggregate = "aggregate"

// Metric is one named value.
type Metric struct {
	Name  string
	Value float64
}

type metricJSON struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// MarshalJSON encodes non-finite values as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	out := metricJSON{Name: m.Name}
	if !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0) {
		v := m.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null as NaN.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var in metricJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Name = in.Name
	if in.Value == nil {
		m.Value = math.NaN()
	} else {
		m.Value = *in.Value
	}
	return nil
}

// Dataset groups the metrics computed for one image, category or attribute.
type Dataset struct {
	Dataset string   `json:"dataset"`
	Metrics []Metric `json:"metrics"`
}

// Value returns the named metric of d.
func (d Dataset) Value(name string) (float64, bool) {
	for _, m := range d.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

// Scores is the ordered output of a scoring run.
type Scores []Dataset

// Lookup returns the value of metric in dataset.
func (s Scores) Lookup(dataset, metric string) (float64, bool) {
	for _, d := range s {
		if d.Dataset == dataset {
			return d.Value(metric)
		}
	}
	return 0, false
}
