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

package cell

import (
	"fmt"

	"github.com/craftr-build/mbs/internal/target"
)

// DepRef is one entry of a Factory's deps=[...] argument: either a string
// reference ("//cell:name" or ":name", resolved against the current cell)
// or a target constructed by an earlier factory call in the same script.
type DepRef struct {
	ref string
	t   *target.Target
}

// Dep builds a DepRef from a string reference.
func Dep(ref string) DepRef { return DepRef{ref: ref} }

// DepT builds a DepRef directly from a previously constructed target.
func DepT(t *target.Target) DepRef { return DepRef{t: t} }

func (d DepRef) resolve(s *Session, fromCell string) (*target.Target, error) {
	if d.t != nil {
		return d.t, nil
	}
	return s.Target(d.ref, fromCell)
}

// BuildOpts carries the factory(name=..., parent=..., deps=..., ...)
// arguments common to every trait kind.
type BuildOpts struct {
	Name     string
	Parent   *target.Target
	Deps     []DepRef
	Explicit bool
	Console  bool
}

// Factory wraps a Trait constructor for one trait kind K (the per-trait
// kwargs type). Factories map 1-to-1 with trait variants, giving each a
// typed kwargs struct instead of a duck-typed options bag.
type Factory[K any] struct {
	// New constructs the trait for a freshly allocated, not-yet-registered
	// target. It may call t.Set/t.Append to seed properties from kwargs.
	New func(t *target.Target, kwargs K) (target.Trait, error)

	// Preprocess optionally adjusts kwargs before New is called — the
	// nested-factory default-injection hook.
	Preprocess func(kwargs *K)

	// Partition decides whether a dependency is internal (true) or
	// transitive (false, the default). Nil means every dep is transitive.
	Partition func(ref DepRef) bool
}

// Build runs the full factory(...) construction protocol against cell c:
// resolve deps, partition them, construct the Target and its trait, run
// Preprocess, and register the result. Duplicate registration is fatal.
func (f *Factory[K]) Build(c *Cell, opts BuildOpts, kwargs K) (*target.Target, error) {
	if f.Preprocess != nil {
		f.Preprocess(&kwargs)
	}

	tg := c.New(opts.Name)
	tg.Parent = opts.Parent
	tg.Explicit = opts.Explicit
	tg.Console = opts.Console

	for _, d := range opts.Deps {
		dep, err := d.resolve(c.session, c.Name)
		if err != nil {
			return nil, fmt.Errorf("cell: factory %s: %w", opts.Name, err)
		}
		internal := f.Partition != nil && f.Partition(d)
		if internal {
			if err := tg.AddInternalDep(dep); err != nil {
				return nil, err
			}
		} else {
			if err := tg.AddTransitiveDep(dep); err != nil {
				return nil, err
			}
		}
	}

	tr, err := f.New(tg, kwargs)
	if err != nil {
		return nil, fmt.Errorf("cell: factory %s: %w", opts.Name, err)
	}
	if err := tg.SetTrait(tr); err != nil {
		return nil, err
	}
	if err := c.Register(tg); err != nil {
		return nil, err
	}
	return tg, nil
}
