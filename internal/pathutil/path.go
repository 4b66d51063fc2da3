// Copyright 2024 The mbs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pathutil provides OS-portable path canonicalisation, glob
// expansion and basename-suffix helpers used throughout the lowering
// pipeline to turn target properties into concrete file paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Canonical returns the absolute, cleaned form of path. If path is relative
// and parent is non-empty, path is first joined onto parent. Symlinks are
// not resolved: canonicalisation is purely lexical, normalising separators
// and "..".
func Canonical(path string, parent ...string) (string, error) {
	p := path
	if !filepath.IsAbs(p) && len(parent) > 0 && parent[0] != "" {
		p = filepath.Join(parent[0], p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("pathutil: canonical %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// Rel returns path relative to base. If the relative form would need to
// escape base via ".." and nopar is true, the absolute canonical path is
// returned instead.
func Rel(path, base string, nopar bool) (string, error) {
	absPath, err := Canonical(path)
	if err != nil {
		return "", err
	}
	absBase, err := Canonical(base)
	if err != nil {
		return "", err
	}
	r, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", fmt.Errorf("pathutil: rel %q from %q: %w", path, base, err)
	}
	if nopar && strings.HasPrefix(r, "..") {
		return absPath, nil
	}
	return r, nil
}

// Glob expands patterns (which may contain "**") rooted at parent, applying
// excludes (also glob patterns) and optionally including dotfiles. Results
// are returned sorted for determinism, since the build graph's content hash
// depends on stable input ordering.
func Glob(patterns []string, parent string, excludes []string, includeDotfiles bool) ([]string, error) {
	fsys := os.DirFS(parent)
	seen := map[string]bool{}
	var out []string
	for _, pat := range patterns {
		matches, err := doublestar.Glob(fsys, pat)
		if err != nil {
			return nil, fmt.Errorf("pathutil: glob %q: %w", pat, err)
		}
		for _, m := range matches {
			if !includeDotfiles && hasDotComponent(m) {
				continue
			}
			if seen[m] {
				continue
			}
			excluded := false
			for _, ex := range excludes {
				if ok, _ := doublestar.Match(ex, m); ok {
					excluded = true
					break
				}
			}
			if excluded {
				continue
			}
			seen[m] = true
			out = append(out, filepath.Join(parent, m))
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasDotComponent(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Addprefix prepends prefix to the basename of each file, preserving
// directories.
func Addprefix(files []string, prefix string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		dir, base := filepath.Split(f)
		out[i] = filepath.Join(dir, prefix+base)
	}
	return out
}

// Addsuffix appends suffix to the basename of each file.
func Addsuffix(files []string, suffix string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f + suffix
	}
	return out
}

// Setsuffix replaces the final extension of each file's basename with
// suffix (which should include the leading dot, if any).
func Setsuffix(files []string, suffix string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		ext := filepath.Ext(f)
		out[i] = strings.TrimSuffix(f, ext) + suffix
	}
	return out
}

// Rmvsuffix strips the final extension from each file's basename.
func Rmvsuffix(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = strings.TrimSuffix(f, filepath.Ext(f))
	}
	return out
}

// Move relocates files from oldbase to newbase, preserving their relative
// position. Any file outside oldbase is a fatal configuration error.
func Move(files []string, oldbase, newbase string) ([]string, error) {
	out := make([]string, len(files))
	for i, f := range files {
		r, err := Rel(f, oldbase, true)
		if err != nil {
			return nil, err
		}
		if filepath.IsAbs(r) {
			return nil, fmt.Errorf("pathutil: move: %q is not inside %q", f, oldbase)
		}
		out[i] = filepath.Join(newbase, r)
	}
	return out, nil
}

// Commonpath returns the longest common ancestor directory of paths. It is
// an error to call it with an empty list or a mix of absolute and relative
// paths.
func Commonpath(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("pathutil: commonpath: empty list")
	}
	abs := filepath.IsAbs(paths[0])
	for _, p := range paths[1:] {
		if filepath.IsAbs(p) != abs {
			return "", fmt.Errorf("pathutil: commonpath: mixed absolute and relative paths")
		}
	}
	common := strings.Split(filepath.Clean(paths[0]), string(filepath.Separator))
	for _, p := range paths[1:] {
		parts := strings.Split(filepath.Clean(p), string(filepath.Separator))
		common = commonPrefix(common, parts)
		if len(common) == 0 {
			break
		}
	}
	joined := strings.Join(common, string(filepath.Separator))
	if abs && !strings.HasPrefix(joined, string(filepath.Separator)) {
		joined = string(filepath.Separator) + joined
	}
	if joined == "" {
		joined = "."
	}
	return joined, nil
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// Makedirs creates path and all parents, succeeding silently if it already
// exists as a directory.
func Makedirs(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("pathutil: makedirs %q: %w", path, err)
	}
	return nil
}

// Remove deletes path. If recursive, directories are removed with their
// contents; if silent, a not-exist error is swallowed.
func Remove(path string, recursive, silent bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !(silent && os.IsNotExist(err)) {
		return fmt.Errorf("pathutil: remove %q: %w", path, err)
	}
	return nil
}
