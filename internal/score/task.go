// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package score

import (
	"strconv"
	"strings"
)

// Task identifies a challenge phase.
type Task int

const (
	TaskLesionSegmentation Task = 1
	TaskAttributeDetection Task = 2
	TaskClassification     Task = 3
)

// Tasks lists every known task in ascending order.
var Tasks = []Task{TaskLesionSegmentation, TaskAttributeDetection, TaskClassification}

// Valid reports whether t is a known task.
func (t Task) Valid() bool {
	switch t {
	case TaskLesionSegmentation, TaskAttributeDetection, TaskClassification:
		return true
	default:
		return false
	}
}

func (t Task) String() string {
	switch t {
	case TaskLesionSegmentation:
		return "segmentation"
	case TaskAttributeDetection:
		return "attributes"
	case TaskClassification:
		return "classification"
	default:
		return "task" + strconv.Itoa(int(t))
	}
}

// Label is the stable metric/label value for t ("1", "2", "3").
func (t Task) Label() string {
	return strconv.Itoa(int(t))
}

// ParseTask accepts a task number or its name.
func ParseTask(s string) (Task, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tasks {
		if s == t.Label() || s == t.String() {
			return t, nil
		}
	}
	return 0, Errorf("Internal error: unknown ground truth phase number: %s.", s)
}
