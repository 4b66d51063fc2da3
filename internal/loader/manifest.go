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

// Package loader implements the declarative YAML project manifest: a
// script-free way to drive Factories, resolving the "scripting host" Open
// Question for embedders who don't want to write Go. Each manifest target
// entry maps 1:1 onto a factory(name=..., parent=..., deps=..., **kwargs)
// call, the same protocol internal/cell.Factory implements for direct Go
// callers.
package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// maxManifestSize bounds how large a manifest file this reads, the same
// defense-in-depth size guard the pack's own YAML-consuming CLI applies to
// untrusted script input.
const maxManifestSize = 8 * 1024 * 1024

// Manifest is the top-level project file: a list of cells, each owning an
// ordered list of targets.
type Manifest struct {
	Cells []CellManifest `yaml:"cells"`
}

// CellManifest declares one cell and the targets constructed inside it, in
// declaration order — the order factory(...) calls would run in an
// imperative build script.
type CellManifest struct {
	Name      string           `yaml:"name"`
	Version   string           `yaml:"version"`
	Directory string           `yaml:"directory"`
	Targets   []TargetManifest `yaml:"targets"`
}

// TargetManifest is one factory(...) call: Factory names a Registry entry,
// Kwargs carries the trait-specific keyword arguments as parsed YAML
// scalars/sequences/mappings, converted by the registered FactoryFunc.
type TargetManifest struct {
	Name     string                 `yaml:"name"`
	Factory  string                 `yaml:"factory"`
	Parent   string                 `yaml:"parent"`
	Deps     []string               `yaml:"deps"`
	Explicit bool                   `yaml:"explicit"`
	Console  bool                   `yaml:"console"`
	Kwargs   map[string]interface{} `yaml:"kwargs"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %q: %w", path, err)
	}
	if len(data) > maxManifestSize {
		return nil, fmt.Errorf("loader: %q exceeds maximum manifest size of %d bytes", path, maxManifestSize)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("loader: %q contains a null byte, not a text manifest", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("loader: parse %q: %w", path, err)
	}
	return &m, nil
}
