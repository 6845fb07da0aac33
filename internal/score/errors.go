// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package score

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a scoring failure caused by the submission itself. Its message is
// shown verbatim to the participant.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// Errorf builds a participant-facing scoring error.
func Errorf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// IsScoreError reports whether err (or anything it wraps) is a participant-facing error.
func IsScoreError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// Message returns the participant-facing message of err, or "" if err is internal.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.msg
	}
	return ""
}

// FormatList renders names the way participant messages list them: ['a', 'b'].
func FormatList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
