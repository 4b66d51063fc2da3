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

package pathutil

import (
	"fmt"
	"os"
)

// TempFile is a scoped temporary file whose deletion is deferred until
// Close is called, typically via defer at the call site.
type TempFile struct {
	Path string
	f    *os.File
}

// NewTempFile creates a temporary file in dir (os.TempDir if empty) with
// the given name pattern (as accepted by os.CreateTemp).
func NewTempFile(dir, pattern string) (*TempFile, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("pathutil: tempfile: %w", err)
	}
	return &TempFile{Path: f.Name(), f: f}, nil
}

// File returns the underlying *os.File for writing.
func (t *TempFile) File() *os.File { return t.f }

// Close closes the file handle and removes it from disk.
func (t *TempFile) Close() error {
	cerr := t.f.Close()
	rerr := os.Remove(t.Path)
	if cerr != nil {
		return cerr
	}
	if rerr != nil && !os.IsNotExist(rerr) {
		return rerr
	}
	return nil
}
