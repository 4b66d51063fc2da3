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

package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile serialises the graph to path as a top-level JSON array of node
// objects (in Order, not map iteration order, to keep a write/read
// roundtrip stable), via a temp-file-then-rename so a concurrent reader
// never observes a half-written graph.
func (g *BuildGraph) WriteFile(path string) error {
	nodes := make([]*BuildNode, 0, len(g.Order))
	for _, name := range g.Order {
		nodes = append(nodes, g.Nodes[name])
	}
	raw, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return fmt.Errorf("graph: marshal: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".graph-*.json.tmp")
	if err != nil {
		return fmt.Errorf("graph: write: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("graph: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("graph: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("graph: write: %w", err)
	}
	return nil
}

// ReadFile loads a graph previously written by WriteFile.
func ReadFile(path string) (*BuildGraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read: %w", err)
	}
	var nodes []*BuildNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("graph: read: %w", err)
	}
	g := New()
	for _, n := range nodes {
		if err := g.add(n); err != nil {
			return nil, err
		}
	}
	return g, nil
}
