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

package lower

import (
	"testing"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/stretchr/testify/require"
)

type countingTrait struct {
	completions, translations *int
	emitAction                bool
}

func (c *countingTrait) Complete(target.Context, *target.Target) error {
	*c.completions++
	return nil
}

func (c *countingTrait) Translate(ctx target.Context, t *target.Target) error {
	*c.translations++
	if c.emitAction {
		return t.AddAction(&action.Action{Name: "build"})
	}
	return nil
}

func (c *countingTrait) SubTraits() []target.Trait { return nil }

func newCounted(reg *schema.Registry, cell, name string, emit bool) (*target.Target, *int, *int) {
	var completions, translations int
	tg := target.New(cell, name, reg)
	_ = tg.SetTrait(&countingTrait{completions: &completions, translations: &translations, emitAction: emit})
	return tg, &completions, &translations
}

func TestRunCompletesDepsBeforeDependents(t *testing.T) {
	reg := schema.NewRegistry()
	lib, libC, _ := newCounted(reg, "app", "lib", false)
	bin, binC, _ := newCounted(reg, "app", "bin", true)
	require.NoError(t, bin.AddTransitiveDep(lib))

	p := New(nil)
	require.NoError(t, p.Run([]*target.Target{bin}))

	require.Equal(t, 1, *libC)
	require.Equal(t, 1, *binC)
	require.True(t, lib.IsCompleted())
	require.True(t, bin.IsTranslated())
	require.Len(t, bin.Actions(), 1)
}

func TestRunIsIdempotent(t *testing.T) {
	reg := schema.NewRegistry()
	tg, completions, translations := newCounted(reg, "app", "bin", false)

	p := New(nil)
	require.NoError(t, p.Run([]*target.Target{tg}))
	require.NoError(t, p.Run([]*target.Target{tg}))

	require.Equal(t, 1, *completions)
	require.Equal(t, 1, *translations)
}

func TestRunDetectsCycle(t *testing.T) {
	reg := schema.NewRegistry()
	a := target.New("app", "a", reg)
	b := target.New("app", "b", reg)
	_ = a.SetTrait(&countingTrait{completions: new(int), translations: new(int)})
	_ = b.SetTrait(&countingTrait{completions: new(int), translations: new(int)})
	require.NoError(t, a.AddTransitiveDep(b))
	require.NoError(t, b.AddTransitiveDep(a))

	p := New(nil)
	err := p.Run([]*target.Target{a})
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestResolveLinkageDefaultsStaticOnConflict(t *testing.T) {
	reg := schema.NewRegistry()
	lib := target.New("app", "lib", reg)
	binStatic := target.New("app", "bin-static", reg)
	binShared := target.New("app", "bin-shared", reg)
	require.NoError(t, binStatic.AddTransitiveDep(lib))
	require.NoError(t, binShared.AddTransitiveDep(lib))

	p := New(nil)
	p.indexDependents([]*target.Target{binStatic, binShared})

	got := ResolveLinkage(p, lib, func(dependent *target.Target) (string, bool) {
		if dependent == binStatic {
			return "static", true
		}
		return "shared", true
	})
	require.Equal(t, "static", got)
}

func TestResolveLinkageAllShared(t *testing.T) {
	reg := schema.NewRegistry()
	lib := target.New("app", "lib", reg)
	bin := target.New("app", "bin", reg)
	require.NoError(t, bin.AddTransitiveDep(lib))

	p := New(nil)
	p.indexDependents([]*target.Target{bin})

	got := ResolveLinkage(p, lib, func(dependent *target.Target) (string, bool) { return "shared", true })
	require.Equal(t, "shared", got)
}

func TestResolveOptimizeInvalidIsFatal(t *testing.T) {
	reg := schema.NewRegistry()
	tg := target.New("app", "bin", reg)
	p := New(nil)
	p.indexDependents([]*target.Target{tg})

	_, err := ResolveOptimize(p, tg,
		func() (OptimizeLevel, bool) { return "bogus", true },
		func(*target.Target) (OptimizeLevel, bool) { return "", false },
		func() (OptimizeLevel, bool) { return "", false },
	)
	require.Error(t, err)
}

func TestResolveOptimizeFallsBackToSpeed(t *testing.T) {
	reg := schema.NewRegistry()
	tg := target.New("app", "bin", reg)
	p := New(nil)
	p.indexDependents([]*target.Target{tg})

	got, err := ResolveOptimize(p, tg,
		func() (OptimizeLevel, bool) { return "", false },
		func(*target.Target) (OptimizeLevel, bool) { return "", false },
		func() (OptimizeLevel, bool) { return "", false },
	)
	require.NoError(t, err)
	require.Equal(t, OptimizeSpeed, got)
}
