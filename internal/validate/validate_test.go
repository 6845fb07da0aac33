// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeAndFraction(t *testing.T) {
	v := New()
	v.Range("workers", 1, 1, 64)
	v.Range("workers", 64, 1, 64)
	v.Fraction("rate", 0)
	v.Fraction("rate", 1)
	require.NoError(t, v.Err())

	v.Range("low", 0, 1, 64)
	v.Range("high", 65, 1, 64)
	v.Fraction("neg", -0.1)
	v.Fraction("big", 1.01)

	var errs Errors
	require.ErrorAs(t, v.Err(), &errs)
	assert.Equal(t, []string{"low", "high", "neg", "big"}, errs.Fields())
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{":8090", true},
		{"127.0.0.1:8090", true},
		{"[::1]:8090", true},
		{"localhost:8090", true},
		{"127.0.0.1", false},
		{"example.com:80", false},
		{":99999", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("listenAddr", tt.addr)
			assert.Equal(t, tt.valid, v.Err() == nil, "%v", v.Err())
		})
	}
}

func TestLogLevel(t *testing.T) {
	v := New()
	for _, l := range []string{"debug", "INFO", "Warn", "error"} {
		v.LogLevel("level", l)
	}
	require.NoError(t, v.Err())

	v.LogLevel("level", "trace")
	assert.ErrorContains(t, v.Err(), `got "trace"`)
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	t.Run("existing", func(t *testing.T) {
		v := New()
		v.Directory("dir", root, false)
		assert.NoError(t, v.Err())
	})
	t.Run("missing", func(t *testing.T) {
		v := New()
		v.Directory("dir", filepath.Join(root, "nope"), false)
		assert.ErrorContains(t, v.Err(), "does not exist")
	})
	t.Run("created", func(t *testing.T) {
		target := filepath.Join(root, "created", "nested")
		v := New()
		v.Directory("dir", target, true)
		require.NoError(t, v.Err())
		assert.DirExists(t, target)
	})
	t.Run("regular file", func(t *testing.T) {
		v := New()
		v.Directory("dir", file, false)
		assert.ErrorContains(t, v.Err(), "not a directory")
	})
	t.Run("traversal", func(t *testing.T) {
		v := New()
		v.Directory("dir", "../outside", true)
		assert.ErrorContains(t, v.Err(), "traversal")
	})
	t.Run("dots in name", func(t *testing.T) {
		v := New()
		v.Directory("dir", filepath.Join(root, "a..b"), true)
		assert.NoError(t, v.Err())
	})
}

func TestSingleFileDirectory(t *testing.T) {
	mk := func(t *testing.T, files ...string) string {
		dir := t.TempDir()
		for _, f := range files {
			require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, f)), 0o750))
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o600))
		}
		return dir
	}

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"one file", mk(t, "truth.zip"), ""},
		{"empty", mk(t), "found 0"},
		{"two files", mk(t, "a.csv", "b.csv"), "found 2"},
		{"subdirectory", mk(t, "truth.zip", "extra/x"), "subdirectories"},
		{"missing", filepath.Join(t.TempDir(), "gone"), "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.SingleFileDirectory("truth", tt.dir)
			if tt.want == "" {
				assert.NoError(t, v.Err())
				return
			}
			assert.ErrorContains(t, v.Err(), tt.want)
		})
	}
}

func TestErrorsAggregate(t *testing.T) {
	var v Validator
	v.NotEmpty("a", "  ")
	v.OneOf("b", "trace", "debug", "info")
	v.Positive("c", 0)

	err := v.Err()
	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 3)
	assert.Equal(t, `validation failed: a: cannot be empty; b: must be one of debug, info, got "trace"; c: must be positive, got 0`, err.Error())

	v.AddError("d", "late", nil)
	assert.Len(t, errs, 3, "Err returns a snapshot")
}
