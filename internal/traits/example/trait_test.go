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

package example

import (
	"path/filepath"
	"testing"

	"github.com/craftr-build/mbs/internal/cell"
	"github.com/craftr-build/mbs/internal/lower"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/stretchr/testify/require"
)

func buildTarget(t *testing.T, reg *schema.Registry, srcs []string, data Data) *target.Target {
	t.Helper()
	require.NoError(t, Adapter{}.Init(reg))
	tg := target.New("app", "hello", reg)
	require.NoError(t, tg.SetTrait(&Trait{Data: &data, Srcs: srcs}))
	return tg
}

func TestTranslateEmitsForeachCompileThenLink(t *testing.T) {
	reg := schema.NewRegistry()
	tg := buildTarget(t, reg, []string{"a.c", "b.c"}, Data{})

	p := lower.New(nil)
	require.NoError(t, p.Run([]*target.Target{tg}))

	actions := tg.Actions()
	require.Len(t, actions, 2)

	compile := actions[0]
	require.Equal(t, "compile", compile.Name)
	require.True(t, compile.Foreach)
	require.Equal(t, []string{"a.c", "b.c"}, compile.InputFiles)
	require.Equal(t, []string{
		filepath.Join("obj", "hello", "a.o"),
		filepath.Join("obj", "hello", "b.o"),
	}, compile.OutputFiles)
	require.Contains(t, compile.Commands[0], "${<src}")
	require.Contains(t, compile.Commands[0], "${@obj}")

	link := actions[1]
	require.Equal(t, "link", link.Name)
	require.Equal(t, []string{"hello"}, link.OutputFiles)
	require.Equal(t, compile.OutputFiles, link.InputFiles)
	require.Equal(t, append(append([]string{"cc"}, compile.OutputFiles...), "-o", "hello"), link.Commands[0])
	require.Len(t, link.Deps, 1)
	require.Equal(t, compile, link.Deps[0])
}

func TestTranslateStaticLibraryUsesArchiver(t *testing.T) {
	reg := schema.NewRegistry()
	tg := buildTarget(t, reg, []string{"a.c"}, Data{Type: "static_library"})

	p := lower.New(nil)
	require.NoError(t, p.Run([]*target.Target{tg}))

	link := tg.Actions()[1]
	require.Equal(t, []string{"libhello.a"}, link.OutputFiles)
	require.Equal(t, "ar", link.Commands[0][0])
}

func TestDefinesAndIncludesFlowIntoCompileCommand(t *testing.T) {
	reg := schema.NewRegistry()
	tg := buildTarget(t, reg, []string{"a.c"}, Data{})
	require.NoError(t, tg.Append("cc.defines", "DEBUG=1"))
	require.NoError(t, tg.Append("cc.includes", "include"))

	p := lower.New(nil)
	require.NoError(t, p.Run([]*target.Target{tg}))

	compile := tg.Actions()[0]
	require.Contains(t, compile.Commands[0], "-DDEBUG=1")
	require.Contains(t, compile.Commands[0], "-Iinclude")
}

func TestFactoryBuildRegistersTargetInCell(t *testing.T) {
	session, err := cell.New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	require.NoError(t, Adapter{}.Init(session.Schema))

	c := session.Cell("app")
	factory := NewFactory()
	tg, err := factory.Build(c, cell.BuildOpts{Name: "hello"}, Params{Srcs: []string{"a.c"}})
	require.NoError(t, err)
	require.Equal(t, "//app:hello", tg.LongName())
}

func TestFactoryBuildRejectsEmptySrcs(t *testing.T) {
	session, err := cell.New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	c := session.Cell("app")
	_, err = NewFactory().Build(c, cell.BuildOpts{Name: "hello"}, Params{})
	require.Error(t, err)
}
