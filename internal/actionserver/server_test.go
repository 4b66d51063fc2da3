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

package actionserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/graph"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/stretchr/testify/require"
)

func buildTestGraph(t *testing.T) (*graph.BuildGraph, string) {
	t.Helper()
	reg := schema.NewRegistry()
	lib := target.New("app", "lib", reg)
	require.NoError(t, lib.AddAction(&action.Action{
		Name:        "compile",
		OutputFiles: []string{"lib.o"},
		Commands:    [][]string{{"cc", "-c", "lib.c"}},
	}))
	lib.MarkTranslated()

	g, err := graph.Build([]*target.Target{lib})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, g.WriteFile(path))
	return g, path
}

func startServer(t *testing.T, g *graph.BuildGraph, graphPath string) (*Server, string) {
	t.Helper()
	ln, addr, err := Listen()
	require.NoError(t, err)
	srv := NewServer(g, graphPath, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx, ln)
	return srv, addr
}

func TestFetchNodeRoundtrip(t *testing.T) {
	g, graphPath := buildTestGraph(t)
	_, addr := startServer(t, g, graphPath)

	node, additional, err := FetchNode(addr, "//app:lib#compile", g.Nodes["//app:lib#compile"].Hash())
	require.NoError(t, err)
	require.Empty(t, additional)
	require.Equal(t, "//app:lib#compile", node.LongName)
	require.Equal(t, []string{"lib.o"}, node.OutputFiles)
}

func TestFetchNodeUnknownTargetErrors(t *testing.T) {
	g, graphPath := buildTestGraph(t)
	_, addr := startServer(t, g, graphPath)

	_, _, err := FetchNode(addr, "//app:nope#compile", "deadbeef")
	require.Error(t, err)
}

func TestFetchNodeStaleHashErrors(t *testing.T) {
	g, graphPath := buildTestGraph(t)
	_, addr := startServer(t, g, graphPath)

	_, _, err := FetchNode(addr, "//app:lib#compile", "not-the-real-hash")
	require.Error(t, err)
}

func TestFetchNodeReturnsAdditionalArgs(t *testing.T) {
	g, graphPath := buildTestGraph(t)
	srv, addr := startServer(t, g, graphPath)
	srv.SetRunArgs("//app:lib#compile", []string{"--extra", "flag"})

	_, additional, err := FetchNode(addr, "//app:lib#compile", g.Nodes["//app:lib#compile"].Hash())
	require.NoError(t, err)
	require.Equal(t, []string{"--extra", "flag"}, additional)
}

func TestRequestReloadReReadsGraph(t *testing.T) {
	g, graphPath := buildTestGraph(t)
	_, addr := startServer(t, g, graphPath)

	require.NoError(t, RequestReload(addr))
	// A second fetch after reload still resolves against the (unchanged
	// on disk) graph.
	_, _, err := FetchNode(addr, "//app:lib#compile", g.Nodes["//app:lib#compile"].Hash())
	require.NoError(t, err)
}

func TestFetchNodeResolvesForeachFirstPair(t *testing.T) {
	reg := schema.NewRegistry()
	gen := target.New("app", "gen", reg)
	require.NoError(t, gen.AddAction(&action.Action{
		Name:        "copy",
		InputFiles:  []string{"a.in", "b.in"},
		OutputFiles: []string{"a.out", "b.out"},
		Commands:    [][]string{{"cp", "a.in", "a.out"}, {"cp", "b.in", "b.out"}},
		Foreach:     true,
	}))
	gen.MarkTranslated()

	g, err := graph.Build([]*target.Target{gen})
	require.NoError(t, err)
	graphPath := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, g.WriteFile(graphPath))

	_, addr := startServer(t, g, graphPath)

	firstName := "//app:gen#copy#0"
	node, _, err := FetchNode(addr, firstName, g.Nodes[firstName].Hash())
	require.NoError(t, err)
	require.Equal(t, firstName, node.LongName)
}

func TestParseRunNodeSplitsLongNameAndHash(t *testing.T) {
	longName, hash, err := ParseRunNode("//app:lib#compile^abc123")
	require.NoError(t, err)
	require.Equal(t, "//app:lib#compile", longName)
	require.Equal(t, "abc123", hash)
}

func TestSplitLongNameForeachPair(t *testing.T) {
	tgt, operator, buildSet, err := SplitLongName("//app:gen#copy#3")
	require.NoError(t, err)
	require.Equal(t, "//app:gen", tgt)
	require.Equal(t, "copy", operator)
	require.Equal(t, 3, buildSet)
}
