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
	"io"
)

// WriteDot renders the graph as GraphViz dot source, following the same
// rankdir/fontsize conventions ninja itself uses for -t graph output.
// Each node is labelled with its first output file (or its long name,
// for nodes with none) and drawn as a box, or as an ellipse when it has
// more than one output; edges point from a node's dependencies into the
// node itself.
func (g *BuildGraph) WriteDot(w io.Writer) error {
	fmt.Fprintln(w, "digraph mbs {")
	fmt.Fprintln(w, `rankdir="LR"`)
	fmt.Fprintln(w, "node [fontsize=10, shape=box, height=0.25]")
	fmt.Fprintln(w, "edge [fontsize=10]")

	for _, name := range g.Order {
		n := g.Nodes[name]
		label := name
		if len(n.OutputFiles) > 0 {
			label = n.OutputFiles[0]
		}
		shape := "box"
		if len(n.OutputFiles) > 1 {
			shape = "ellipse"
		}
		fmt.Fprintf(w, "%q [label=%q, shape=%s]\n", name, label, shape)
	}
	for _, name := range g.Order {
		n := g.Nodes[name]
		for _, dep := range n.Deps {
			fmt.Fprintf(w, "%q -> %q\n", dep, name)
		}
	}
	fmt.Fprintln(w, "}")
	return nil
}
