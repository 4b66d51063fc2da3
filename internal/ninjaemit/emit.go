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

package ninjaemit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/craftr-build/mbs/internal/graph"
)

// lineWidth matches ninja's own generator convention of writing very wide
// lines rather than wrapping long command invocations; 4096 is comfortably
// above any realistic re-exec command length.
const lineWidth = 4096

// Options configures manifest emission.
type Options struct {
	// Exec is the path to the mbs binary itself, used to build the
	// re-exec command each rule runs.
	Exec string
	// Script is the build script path passed back to Exec on re-entry.
	Script string
	// BuildDirectory is passed to Exec via --build-directory.
	BuildDirectory string
}

// Emit writes a complete build.ninja manifest for g to w.
func Emit(w io.Writer, g *graph.BuildGraph, opts Options) error {
	bw := &bufWriter{w: w}
	fmt.Fprintf(bw, "# This file is generated by mbs. Do not edit.\n")
	fmt.Fprintf(bw, "ninja_required_version = 1.7.1\n\n")
	fmt.Fprintf(bw, "exec = %s\n", escapePath(opts.Exec))
	fmt.Fprintf(bw, "script = %s\n", escapePath(opts.Script))
	fmt.Fprintf(bw, "builddir = %s\n\n", escapePath(opts.BuildDirectory))
	fmt.Fprintf(bw, "pool console\n  depth = 1\n\n")

	groups := groupByAction(g)
	actionIDs := make([]string, 0, len(groups))
	for id := range groups {
		actionIDs = append(actionIDs, id)
	}
	sort.Strings(actionIDs)

	var defaults []string
	for _, actionID := range actionIDs {
		nodes := groups[actionID]
		rule := ruleName(actionID)
		fmt.Fprintf(bw, "rule %s\n", rule)
		fmt.Fprintf(bw, "  command = $exec $script --build-directory $builddir --run-node ${long_name}^${hash}\n")
		fmt.Fprintf(bw, "  description = mbs %s\n", actionID)
		if nodes[0].Console {
			fmt.Fprintf(bw, "  pool = console\n")
		}
		fmt.Fprintln(bw)

		var allOutputs []string
		for _, n := range nodes {
			fmt.Fprintf(bw, "build %s: %s %s", joinPaths(n.OutputFiles), rule, joinPaths(n.InputFiles))
			if order := orderOnlyDeps(g, n); len(order) > 0 {
				fmt.Fprintf(bw, " || %s", strings.Join(order, " "))
			}
			fmt.Fprintln(bw)
			fmt.Fprintf(bw, "  long_name = %s\n", n.LongName)
			fmt.Fprintf(bw, "  hash = %s\n\n", n.Hash())
			allOutputs = append(allOutputs, n.OutputFiles...)
			if !n.Explicit {
				defaults = append(defaults, n.OutputFiles...)
			}
		}

		fmt.Fprintf(bw, "build %s: phony %s\n\n", phonyName(actionID), joinPaths(allOutputs))
	}

	if len(defaults) > 0 {
		fmt.Fprintf(bw, "default %s\n", joinPaths(defaults))
	}
	return bw.err
}

// groupByAction buckets the graph's nodes by their owning action, so a
// foreach action's pairs share one rule declaration.
func groupByAction(g *graph.BuildGraph) map[string][]*graph.BuildNode {
	out := map[string][]*graph.BuildNode{}
	for _, name := range g.Order {
		n := g.Nodes[name]
		out[n.ActionID] = append(out[n.ActionID], n)
	}
	return out
}

// orderOnlyDeps resolves a node's dependency long names to the phony
// alias names of their owning actions, so a dependency's actual output
// filenames never leak into the dependent's build stanza. All pairs of a
// foreach dependency map to that action's single phony alias.
func orderOnlyDeps(g *graph.BuildGraph, n *graph.BuildNode) []string {
	var out []string
	seen := map[string]bool{}
	for _, dep := range n.Deps {
		id := dep
		if d, ok := g.Nodes[dep]; ok {
			id = d.ActionID
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, phonyName(id))
		}
	}
	return out
}

func joinPaths(paths []string) string {
	escaped := make([]string, len(paths))
	for i, p := range paths {
		escaped[i] = escapePath(p)
	}
	return strings.Join(escaped, " ")
}

// escapePath escapes the three characters ninja's lexer treats specially
// in an unquoted path token: '$', ':' and space.
func escapePath(s string) string {
	r := strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ")
	return r.Replace(s)
}

// bufWriter wraps an io.Writer to let Emit use fmt.Fprintf repeatedly
// without checking every individual error return; the first error is
// latched and surfaced once at the end.
type bufWriter struct {
	w   io.Writer
	err error
}

func (b *bufWriter) Write(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	n, err := b.w.Write(p)
	if err != nil {
		b.err = err
	}
	return n, err
}
