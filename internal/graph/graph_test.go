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
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T) []*target.Target {
	t.Helper()
	reg := schema.NewRegistry()
	lib := target.New("app", "lib", reg)
	compile := &action.Action{
		Name:        "compile",
		Commands:    [][]string{{"cc", "-c", "lib.c"}},
		InputFiles:  []string{"lib.c"},
		OutputFiles: []string{"lib.o"},
	}
	require.NoError(t, lib.AddAction(compile))
	lib.MarkTranslated()

	bin := target.New("app", "bin", reg)
	require.NoError(t, bin.AddTransitiveDep(lib))
	require.NoError(t, bin.AddAction(&action.Action{
		Name:        "link",
		Commands:    [][]string{{"cc", "-o", "bin", "lib.o"}},
		InputFiles:  []string{"lib.o"},
		OutputFiles: []string{"bin"},
		Deps:        []*action.Action{compile},
		Explicit:    true,
	}))
	bin.MarkTranslated()
	return []*target.Target{lib, bin}
}

func TestBuildFlattensActionsIntoNodes(t *testing.T) {
	g, err := Build(buildChain(t))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Contains(t, g.Nodes, "//app:lib#compile")
	require.Contains(t, g.Nodes, "//app:bin#link")
}

func TestBuildDetectsDuplicateOutputs(t *testing.T) {
	reg := schema.NewRegistry()
	a := target.New("app", "a", reg)
	require.NoError(t, a.AddAction(&action.Action{Name: "x", OutputFiles: []string{"out.bin"}}))
	a.MarkTranslated()
	b := target.New("app", "b", reg)
	require.NoError(t, b.AddAction(&action.Action{Name: "x", OutputFiles: []string{"out.bin"}}))
	b.MarkTranslated()

	_, err := Build([]*target.Target{a, b})
	require.Error(t, err)
	var dup *DuplicateOutputError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "out.bin", dup.Output)
}

func TestForeachActionExpandsToOneNodePerPair(t *testing.T) {
	reg := schema.NewRegistry()
	tg := target.New("app", "gen", reg)
	require.NoError(t, tg.AddAction(&action.Action{
		Name:        "copy",
		Foreach:     true,
		InputFiles:  []string{"a.txt", "b.txt"},
		OutputFiles: []string{"a.out", "b.out"},
	}))
	tg.MarkTranslated()

	g, err := Build([]*target.Target{tg})
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Contains(t, g.Nodes, "//app:gen#copy#0")
	require.Contains(t, g.Nodes, "//app:gen#copy#1")
}

func TestForeachDependencyExpandsToEveryPair(t *testing.T) {
	reg := schema.NewRegistry()
	tg := target.New("app", "hello", reg)
	compile := &action.Action{
		Name:        "compile",
		Foreach:     true,
		InputFiles:  []string{"a.c", "b.c"},
		OutputFiles: []string{"a.o", "b.o"},
	}
	require.NoError(t, tg.AddAction(compile))
	require.NoError(t, tg.AddAction(&action.Action{
		Name:        "link",
		InputFiles:  []string{"a.o", "b.o"},
		OutputFiles: []string{"hello"},
		Deps:        []*action.Action{compile},
		Explicit:    true,
	}))
	tg.MarkTranslated()

	g, err := Build([]*target.Target{tg})
	require.NoError(t, err)

	link := g.Nodes["//app:hello#link"]
	require.ElementsMatch(t, []string{"//app:hello#compile#0", "//app:hello#compile#1"}, link.Deps)

	selected, err := g.Selected([]string{"//app:hello#link"})
	require.NoError(t, err)
	require.Len(t, selected, 3)
}

func TestHashIsStableAcrossEnvironOrdering(t *testing.T) {
	n1 := &BuildNode{Environ: map[string]string{"A": "1", "B": "2"}}
	n2 := &BuildNode{Environ: map[string]string{"B": "2", "A": "1"}}
	require.Equal(t, n1.Hash(), n2.Hash())
}

func TestHashDiffersOnCommandChange(t *testing.T) {
	n1 := &BuildNode{Commands: [][]string{{"cc", "a.c"}}}
	n2 := &BuildNode{Commands: [][]string{{"cc", "b.c"}}}
	require.NotEqual(t, n1.Hash(), n2.Hash())
}

func TestSelectedDefaultsToNonExplicitNodes(t *testing.T) {
	reg := schema.NewRegistry()
	lib := target.New("app", "lib", reg)
	require.NoError(t, lib.AddAction(&action.Action{
		Name: "compile", OutputFiles: []string{"lib.o"},
	}))
	lib.MarkTranslated()

	test := target.New("app", "test_run", reg)
	require.NoError(t, test.AddTransitiveDep(lib))
	require.NoError(t, test.AddAction(&action.Action{
		Name: "run", InputFiles: []string{"lib.o"}, Explicit: true, Console: true,
	}))
	test.MarkTranslated()

	g, err := Build([]*target.Target{lib, test})
	require.NoError(t, err)

	selected, err := g.Selected(nil)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, "//app:lib#compile", selected[0].LongName)
}

func TestWriteFileReadFileRoundtrip(t *testing.T) {
	g, err := Build(buildChain(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, g.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, len(g.Nodes), len(got.Nodes))
	for name, n := range g.Nodes {
		require.Equal(t, n.Hash(), got.Nodes[name].Hash())
	}
}

func TestMtimeReflectsLatestScriptModification(t *testing.T) {
	g, err := Build(buildChain(t))
	require.NoError(t, err)

	dir := t.TempDir()
	older := filepath.Join(dir, "older.yml")
	newer := filepath.Join(dir, "newer.yml")
	require.NoError(t, writeFileAt(older, 0))
	require.NoError(t, writeFileAt(newer, time.Second))

	g.SetScriptPaths([]string{older, newer})
	mtime, err := g.Mtime()
	require.NoError(t, err)

	newerInfo, err := os.Stat(newer)
	require.NoError(t, err)
	require.Equal(t, newerInfo.ModTime(), mtime)
}

func writeFileAt(path string, offset time.Duration) error {
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		return err
	}
	t := time.Now().Add(offset)
	return os.Chtimes(path, t, t)
}

func TestWriteDotContainsNodesAndEdges(t *testing.T) {
	g, err := Build(buildChain(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.WriteDot(&buf))
	out := buf.String()
	require.Contains(t, out, "digraph mbs")
	require.Contains(t, out, `"//app:lib#compile" -> "//app:bin#link"`)
}
