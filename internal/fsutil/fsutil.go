// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil holds filesystem helpers shared by submission intake and the scorers.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entries splits the direct children of dir into regular files and directories,
// each sorted by name. Other entry types (symlinks, devices) are ignored.
func Entries(dir string) (files, dirs []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		switch {
		case e.Type().IsRegular():
			files = append(files, e.Name())
		case e.IsDir():
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}

// FilesWithExt lists regular files in dir whose extension matches ext case-insensitively.
func FilesWithExt(dir, ext string) ([]string, error) {
	files, _, err := Entries(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ext) {
			out = append(out, f)
		}
	}
	return out, nil
}

// CopyFile copies src into dstDir, keeping its base name, and returns the new path.
func CopyFile(src, dstDir string) (string, error) {
	// #nosec G304 -- src comes from a directory listing owned by the caller
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	dst := filepath.Join(dstDir, filepath.Base(src))
	return dst, WriteFrom(dst, in)
}

// WriteFrom creates path (truncating) and fills it from r.
func WriteFrom(path string, r io.Reader) error {
	// #nosec G304 -- path is built by the caller under a confined directory
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("%s: writing file: %w", path, err)
	}
	return out.Close()
}

// IsRegularFile checks if path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
