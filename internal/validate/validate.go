// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate accumulates field-level configuration errors so a single
// load reports every problem at once.
package validate

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
)

// LogLevels are the accepted log level names.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Error is one failed field check.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is the aggregate returned by Validator.Err.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fields lists the failing field names in report order.
func (e Errors) Fields() []string {
	out := make([]string, len(e))
	for i, err := range e {
		out[i] = err.Field
	}
	return out
}

// Validator collects Errors. The zero value is ready to use.
type Validator struct {
	errs Errors
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// AddError records a failure for field.
func (v *Validator) AddError(field, message string, value any) {
	v.errs = append(v.errs, Error{Field: field, Value: value, Message: message})
}

// Err returns nil or a copy of the collected Errors.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return slices.Clone(v.errs)
}

// Range checks minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

// Fraction checks 0 <= value <= 1.
func (v *Validator) Fraction(field string, value float64) {
	if value < 0 || value > 1 {
		v.AddError(field, fmt.Sprintf("must be between 0 and 1, got %g", value), value)
	}
}

// Positive checks value > 0.
func (v *Validator) Positive(field string, value int64) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("must be positive, got %d", value), value)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "cannot be empty", value)
	}
}

// OneOf checks value against a closed set.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, ", "), value), value)
	}
}

// LogLevel checks a case-insensitive level name.
func (v *Validator) LogLevel(field, level string) {
	v.OneOf(field, strings.ToLower(level), LogLevels...)
}

// ListenAddr checks a host:port pair where host is empty, localhost or an IP.
func (v *Validator) ListenAddr(field, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		v.AddError(field, fmt.Sprintf("host must be an IP address, got %q", host), addr)
		return
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 0 and 65535, got %q", port), addr)
	}
}

// Directory checks that path is a directory. With create set, a missing
// directory is made instead of reported.
func (v *Validator) Directory(field, path string, create bool) {
	abs, ok := v.cleanPath(field, path)
	if !ok {
		return
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err) && create:
		if err := os.MkdirAll(abs, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
	case os.IsNotExist(err):
		v.AddError(field, "directory does not exist", path)
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case !info.IsDir():
		v.AddError(field, "path is not a directory", path)
	}
}

// SingleFileDirectory checks that path is an existing directory holding
// exactly one regular file and nothing else.
func (v *Validator) SingleFileDirectory(field, path string) {
	abs, ok := v.cleanPath(field, path)
	if !ok {
		return
	}
	files, dirs, err := fsutil.Entries(abs)
	switch {
	case os.IsNotExist(err):
		v.AddError(field, "directory does not exist", path)
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot read directory: %v", err), path)
	case len(files) != 1:
		v.AddError(field, fmt.Sprintf("must hold exactly one file, found %d", len(files)), path)
	case len(dirs) > 0:
		v.AddError(field, "must not contain subdirectories", path)
	}
}

func (v *Validator) cleanPath(field, path string) (string, bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return "", false
	}
	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		v.AddError(field, "path contains traversal sequences (..)", path)
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid path: %v", err), path)
		return "", false
	}
	return abs, true
}
