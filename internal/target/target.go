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

// Package target implements the core Target/Trait/Factory object model:
// a polymorphic, property-bearing build target and the two-phase
// complete/translate lifecycle its traits run through during lowering.
package target

import (
	"fmt"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/schema"
)

// Context is the pipeline context passed to every trait lifecycle call. It
// exposes the pieces of global graph knowledge a trait cannot derive from
// its own target alone — who depends on it, and how to surface a
// non-fatal warning (tie-break policies, e.g. conflicting preferred
// linkage between dependents).
type Context interface {
	// Dependents returns every target that lists t as an internal or
	// transitive dependency, across the whole selected graph.
	Dependents(t *Target) []*Target
	// Warn surfaces a non-fatal diagnostic (warnings are stderr-only
	// and never fatal).
	Warn(format string, args ...interface{})
}

// Trait is the behavioural implementation attached to a target. Complete
// finalises inherited properties and may instantiate sub-traits; it must
// not emit actions. Translate emits actions onto its target and must not
// mutate the properties of any other target.
type Trait interface {
	Complete(ctx Context, t *Target) error
	Translate(ctx Context, t *Target) error
	// SubTraits returns nested traits installed by this one (e.g. an
	// embed-resources trait installing a compile-library trait). Nil is
	// fine when there are none.
	SubTraits() []Trait
}

// Target is a named unit of build intent, identified by (cell, name).
type Target struct {
	CellName string
	Name     string
	Parent   *Target

	MainTrait Trait
	subTraits []Trait

	InternalDeps   []*Target // visible only to direct dependents
	TransitiveDeps []*Target // exported to transitive dependents

	Explicit bool
	Console  bool

	isCompleted  bool
	isTranslated bool

	registry *schema.Registry
	props    *schema.Bag

	actionOrder []string
	actions     map[string]*action.Action
}

// New constructs an unregistered Target. Cells call this when registering
// a factory-built target; it is exported so the target package stays
// decoupled from cell (see internal/cell for the registration protocol).
func New(cellName, name string, registry *schema.Registry) *Target {
	return &Target{
		CellName: cellName,
		Name:     name,
		registry: registry,
		props:    schema.NewBag(registry),
		actions:  map[string]*action.Action{},
	}
}

// LongName is the target's fully qualified identifier: "//<cell>:<name>",
// or "<parent.long_name>_<name>" when parented.
func (t *Target) LongName() string {
	if t.Parent != nil {
		return t.Parent.LongName() + "_" + t.Name
	}
	return "//" + t.CellName + ":" + t.Name
}

// SetTrait attaches the target's main trait. It may only be called once.
func (t *Target) SetTrait(tr Trait) error {
	if t.MainTrait != nil {
		return fmt.Errorf("target: %s: main trait already set", t.LongName())
	}
	t.MainTrait = tr
	return nil
}

// Traits returns the main trait's sub-traits, recursively flattened in
// post-order (leaves first), followed by the main trait itself — the
// order complete/translate loops iterate traits in. Sub-traits recorded
// with AddSubTrait are not part of this list.
func (t *Target) Traits() []Trait {
	if t.MainTrait == nil {
		return nil
	}
	var out []Trait
	var walk func(Trait)
	walk = func(tr Trait) {
		for _, sub := range tr.SubTraits() {
			walk(sub)
		}
		out = append(out, tr)
	}
	walk(t.MainTrait)
	return out
}

// IsCompleted reports whether Complete() has finished running for t.
func (t *Target) IsCompleted() bool { return t.isCompleted }

// IsTranslated reports whether Translate() has finished running for t.
func (t *Target) IsTranslated() bool { return t.isTranslated }

// MarkCompleted seals the property bag and flags the target completed.
// Called by the lowering pipeline, never by traits directly.
func (t *Target) MarkCompleted() {
	t.props.Seal()
	t.isCompleted = true
}

// MarkTranslated flags the target translated, after which no further
// actions may be added.
func (t *Target) MarkTranslated() { t.isTranslated = true }

// AddInternalDep appends a dependency visible only to direct dependents.
// Rejected once the target has completed.
func (t *Target) AddInternalDep(dep *Target) error {
	if t.isCompleted {
		return fmt.Errorf("target: %s: cannot add deps after complete()", t.LongName())
	}
	t.InternalDeps = append(t.InternalDeps, dep)
	return nil
}

// AddTransitiveDep appends an exported dependency.
func (t *Target) AddTransitiveDep(dep *Target) error {
	if t.isCompleted {
		return fmt.Errorf("target: %s: cannot add deps after complete()", t.LongName())
	}
	t.TransitiveDeps = append(t.TransitiveDeps, dep)
	return nil
}

// AllDeps returns internal then transitive dependencies, the traversal
// order used throughout the lowering pipeline.
func (t *Target) AllDeps() []*Target {
	out := make([]*Target, 0, len(t.InternalDeps)+len(t.TransitiveDeps))
	out = append(out, t.InternalDeps...)
	out = append(out, t.TransitiveDeps...)
	return out
}

// AddSubTrait registers a sub-trait instantiated by the main trait during
// Complete. This is distinct from Trait.SubTraits(), which a trait
// implementation answers directly; AddSubTrait is bookkeeping for traits
// that want Target to own the sub-trait's lifetime.
func (t *Target) AddSubTrait(tr Trait) { t.subTraits = append(t.subTraits, tr) }

// Props returns the target's property bag for direct get/set access. Most
// callers should prefer the typed Get helpers in properties.go.
func (t *Target) Props() *schema.Bag { return t.props }

// Registry returns the schema registry this target's properties resolve
// against.
func (t *Target) Registry() *schema.Registry { return t.registry }

// AddAction registers a new action on the target. Sentinel dependency
// entries are expanded to "every action added so far". Rejected once the
// target has translated, or if the name collides with an existing action.
func (t *Target) AddAction(a *action.Action) error {
	if t.isTranslated {
		return fmt.Errorf("target: %s: cannot add actions after translate()", t.LongName())
	}
	if _, exists := t.actions[a.Name]; exists {
		return fmt.Errorf("target: %s: duplicate action name %q", t.LongName(), a.Name)
	}
	a.OwnerLongName = t.LongName()
	prior := make([]*action.Action, len(t.actionOrder))
	for i, name := range t.actionOrder {
		prior[i] = t.actions[name]
	}
	a.Deps = action.ExpandDeps(a.Deps, prior)
	if err := a.Validate(); err != nil {
		return err
	}
	t.actions[a.Name] = a
	t.actionOrder = append(t.actionOrder, a.Name)
	return nil
}

// Actions returns the target's actions in the order they were added.
func (t *Target) Actions() []*action.Action {
	out := make([]*action.Action, len(t.actionOrder))
	for i, name := range t.actionOrder {
		out[i] = t.actions[name]
	}
	return out
}
