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
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/craftr-build/mbs/internal/target"
)

// BuildGraph is the flat dictionary of build nodes produced by flattening
// every completed and translated target's actions. It is the hand-off
// point between the lowering pipeline and everything downstream: the
// ninja emitter, the action server and the direct executor all build
// from a *BuildGraph and never see a *target.Target again.
type BuildGraph struct {
	Nodes map[string]*BuildNode
	// Order preserves the order nodes were added in, for deterministic
	// iteration (manifest emission must be stable across re-runs so
	// unrelated diffs don't show up in version control).
	Order []string
	// ScriptPaths are the manifest files that contributed to this graph.
	// Not persisted: a graph reloaded from disk answers node lookups only
	// and has no need to re-derive staleness against scripts it no longer
	// has a handle on.
	ScriptPaths []string
}

// SetScriptPaths records the manifest files Mtime should stat.
func (g *BuildGraph) SetScriptPaths(paths []string) {
	g.ScriptPaths = paths
}

// Mtime returns the most recent modification time across every script
// path set via SetScriptPaths, used to detect that a manifest has
// changed on disk since this graph was built.
func (g *BuildGraph) Mtime() (time.Time, error) {
	var latest time.Time
	for _, p := range g.ScriptPaths {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("graph: mtime: %w", err)
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// New returns an empty BuildGraph.
func New() *BuildGraph {
	return &BuildGraph{Nodes: map[string]*BuildNode{}}
}

// DuplicateOutputError reports that two nodes both claim to produce the
// same output file.
type DuplicateOutputError struct {
	Output    string
	Producer1 string
	Producer2 string
}

func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("graph: output %q produced by both %q and %q", e.Output, e.Producer1, e.Producer2)
}

// Build flattens every target's actions (after the lowering pipeline has
// completed and translated them) into the graph, verifying that the
// resulting node names and output files are unique.
func Build(targets []*target.Target) (*BuildGraph, error) {
	g := New()
	outputOwner := map[string]string{}
	for _, t := range targets {
		for _, a := range t.Actions() {
			for _, n := range fromAction(a) {
				if err := g.add(n); err != nil {
					return nil, err
				}
				for _, out := range n.OutputFiles {
					if owner, ok := outputOwner[out]; ok && owner != n.LongName {
						return nil, &DuplicateOutputError{Output: out, Producer1: owner, Producer2: n.LongName}
					}
					outputOwner[out] = n.LongName
				}
			}
		}
	}
	g.expandDeps()
	return g, nil
}

// expandDeps rewrites each node's Deps — populated by fromAction with the
// bare long name of the owning dependency Action — into the full set of
// node long names that action actually produced. For a foreach dependency
// that bare name was never added to Nodes (only its indexed pairs were),
// so without this a dependent would either fail to resolve (Selected) or
// be treated as having no real dependency to wait on (a direct executor).
func (g *BuildGraph) expandDeps() {
	byActionID := map[string][]string{}
	for _, name := range g.Order {
		n := g.Nodes[name]
		byActionID[n.ActionID] = append(byActionID[n.ActionID], name)
	}
	for _, name := range g.Order {
		n := g.Nodes[name]
		expanded := make([]string, 0, len(n.Deps))
		for _, dep := range n.Deps {
			if names, ok := byActionID[dep]; ok {
				expanded = append(expanded, names...)
			} else {
				expanded = append(expanded, dep)
			}
		}
		n.Deps = expanded
	}
}

func (g *BuildGraph) add(n *BuildNode) error {
	if _, exists := g.Nodes[n.LongName]; exists {
		return fmt.Errorf("graph: duplicate node %q", n.LongName)
	}
	g.Nodes[n.LongName] = n
	g.Order = append(g.Order, n.LongName)
	return nil
}

// Selected returns the nodes reachable from the given root long names via
// Deps edges, in the graph's stable order. Passing no roots returns every
// node not marked Explicit — mirroring ninja's own default build set: an
// explicit node is only built when named on the command line.
func (g *BuildGraph) Selected(roots []string) ([]*BuildNode, error) {
	if len(roots) == 0 {
		for _, name := range g.Order {
			if !g.Nodes[name].Explicit {
				roots = append(roots, name)
			}
		}
	}
	seen := map[string]bool{}
	var visit func(name string) error
	var out []*BuildNode
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		n, ok := g.Nodes[name]
		if !ok {
			return fmt.Errorf("graph: unknown node %q", name)
		}
		seen[name] = true
		for _, dep := range n.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		out = append(out, n)
		return nil
	}
	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortedNames returns every node's long name in lexical order.
func (g *BuildGraph) SortedNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
