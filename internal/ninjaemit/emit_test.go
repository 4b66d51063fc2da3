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
	"bytes"
	"strings"
	"testing"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/graph"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/stretchr/testify/require"
)

func buildSimpleGraph(t *testing.T) *graph.BuildGraph {
	t.Helper()
	reg := schema.NewRegistry()
	lib := target.New("app", "lib", reg)
	require.NoError(t, lib.AddAction(&action.Action{
		Name:        "compile",
		InputFiles:  []string{"lib.c"},
		OutputFiles: []string{"lib.o"},
	}))
	lib.MarkTranslated()

	bin := target.New("app", "bin", reg)
	require.NoError(t, bin.AddTransitiveDep(lib))
	require.NoError(t, bin.AddAction(&action.Action{
		Name:        "link",
		InputFiles:  []string{"lib.o"},
		OutputFiles: []string{"bin"},
		Deps:        []*action.Action{{OwnerLongName: "//app:lib", Name: "compile"}},
	}))
	bin.MarkTranslated()

	g, err := graph.Build([]*target.Target{lib, bin})
	require.NoError(t, err)
	return g
}

func TestEmitProducesRuleAndBuildStanzas(t *testing.T) {
	g := buildSimpleGraph(t)
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, g, Options{Exec: "/usr/bin/mbs", Script: "build.craftr", BuildDirectory: "build"}))
	out := buf.String()

	require.Contains(t, out, "rule rule_"+sanitize("//app:lib#compile"))
	require.Contains(t, out, "rule rule_"+sanitize("//app:bin#link"))
	require.Contains(t, out, "build lib.o: rule_"+sanitize("//app:lib#compile")+" lib.c")
	require.Contains(t, out, "long_name = //app:lib#compile")
	require.Contains(t, out, "pool console")
}

func TestEmitOrderOnlyDepsReferencePhonyAlias(t *testing.T) {
	g := buildSimpleGraph(t)
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, g, Options{Exec: "mbs", Script: "build.craftr", BuildDirectory: "build"}))
	out := buf.String()
	require.Contains(t, out, "|| "+phonyName("//app:lib#compile"))
}

func TestEmitDefaultListExcludesExplicitNodes(t *testing.T) {
	reg := schema.NewRegistry()
	tg := target.New("app", "test_run", reg)
	require.NoError(t, tg.AddAction(&action.Action{
		Name:        "run",
		OutputFiles: []string{"test.log"},
		Explicit:    true,
		Console:     true,
	}))
	tg.MarkTranslated()
	g, err := graph.Build([]*target.Target{tg})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, g, Options{Exec: "mbs", Script: "build.craftr", BuildDirectory: "build"}))
	out := buf.String()
	require.NotContains(t, out, "default test.log")
	require.Contains(t, out, "pool = console")
}

func TestEmitForeachSharesOneRule(t *testing.T) {
	reg := schema.NewRegistry()
	tg := target.New("app", "gen", reg)
	require.NoError(t, tg.AddAction(&action.Action{
		Name:        "copy",
		Foreach:     true,
		InputFiles:  []string{"a.txt", "b.txt"},
		OutputFiles: []string{"a.out", "b.out"},
	}))
	tg.MarkTranslated()
	g, err := graph.Build([]*target.Target{tg})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, g, Options{Exec: "mbs", Script: "build.craftr", BuildDirectory: "build"}))
	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "rule rule_"+sanitize("//app:gen#copy")+"\n"))
	require.Contains(t, out, "long_name = //app:gen#copy#0")
	require.Contains(t, out, "long_name = //app:gen#copy#1")
}

func TestSanitizeCollapsesUnsafeChars(t *testing.T) {
	require.Equal(t, "__app_hello_compile", sanitize("//app:hello#compile"))
}

func TestEscapePathEscapesDollarColonSpace(t *testing.T) {
	require.Equal(t, `a$ b$:c$$d`, escapePath("a b:c$d"))
}

func TestCompareVersionsOrdering(t *testing.T) {
	require.True(t, compareVersions("1.11.1", "1.7.1") > 0)
	require.True(t, compareVersions("1.7.1", "1.7.1") == 0)
	require.True(t, compareVersions("1.6.0", "1.7.1") < 0)
}
