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

// Package schema implements the typed per-target property registry: kind
// declarations with optional inheritance, and the homogeneous value bag
// each target stores its property values in.
package schema

import "fmt"

// Kind is the type tag of a property.
type Kind int

const (
	Bool Kind = iota
	Int
	String
	StringList
	PathList
	Map
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case String:
		return "String"
	case StringList:
		return "StringList"
	case PathList:
		return "PathList"
	case Map:
		return "Map"
	default:
		return "Unknown"
	}
}

// Def is a schema entry: a property's key, kind, default and whether its
// value is accumulated from dependencies during resolution.
type Def struct {
	Key     string
	Kind    Kind
	Default Value
	Inherit bool
}

// Value is a homogeneous container for one property value. Exactly one
// field is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int
	Str    string
	List   []string          // StringList or PathList
	MapVal map[string]string // Map
}

func zero(kind Kind) Value {
	switch kind {
	case Bool:
		return Value{Kind: Bool}
	case Int:
		return Value{Kind: Int}
	case String:
		return Value{Kind: String}
	case StringList, PathList:
		return Value{Kind: kind, List: nil}
	case Map:
		return Value{Kind: Map, MapVal: map[string]string{}}
	default:
		return Value{Kind: kind}
	}
}

// Registry is the session-wide collection of property schema entries,
// registered by collaborators (traits). Registration is idempotent:
// re-registering a key with a matching kind is a no-op; a conflicting kind
// is an error.
type Registry struct {
	defs map[string]Def
}

// NewRegistry creates an empty property schema registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Def{}}
}

// Register adds or confirms a schema entry. namespace and name combine into
// the full property key "<namespace>.<name>".
func (r *Registry) Register(namespace, name string, kind Kind, def Value, inherit bool) (string, error) {
	key := namespace + "." + name
	if existing, ok := r.defs[key]; ok {
		if existing.Kind != kind {
			return "", fmt.Errorf("schema: property %q already registered with kind %s, cannot re-register as %s", key, existing.Kind, kind)
		}
		return key, nil
	}
	if def.Kind == 0 && kind != Bool {
		def = zero(kind)
	}
	r.defs[key] = Def{Key: key, Kind: kind, Default: def, Inherit: inherit}
	return key, nil
}

// Lookup returns the schema entry for key.
func (r *Registry) Lookup(key string) (Def, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Bag is a target's property value store. Values not explicitly set
// resolve through the schema's inheritance/default rules by the caller
// (see internal/target.Target.Get), which owns the dependency list Bag
// itself does not know about.
type Bag struct {
	registry *Registry
	values   map[string]Value
	sealed   bool
}

// NewBag creates an empty property bag bound to registry.
func NewBag(registry *Registry) *Bag {
	return &Bag{registry: registry, values: map[string]Value{}}
}

// Seal prevents further mutation; called once a target completes lowering.
func (b *Bag) Seal() { b.sealed = true }

// Sealed reports whether the bag has been sealed.
func (b *Bag) Sealed() bool { return b.sealed }

// Has reports whether key has an explicit value set on this bag.
func (b *Bag) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

// Explicit returns the explicit value set for key, if any.
func (b *Bag) Explicit(key string) (Value, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Set assigns an explicit value, type-checked against the schema and
// rejected once the bag is sealed.
func (b *Bag) Set(key string, v Value) error {
	if b.sealed {
		return fmt.Errorf("schema: cannot set %q: target already completed", key)
	}
	def, ok := b.registry.Lookup(key)
	if !ok {
		return fmt.Errorf("schema: unknown property %q", key)
	}
	if v.Kind != def.Kind {
		return fmt.Errorf("schema: property %q expects kind %s, got %s", key, def.Kind, v.Kind)
	}
	b.values[key] = v
	return nil
}

// Append appends to a list-typed property, type-checked and rejected once
// sealed. This is the "+=" write API.
func (b *Bag) Append(key string, items ...string) error {
	if b.sealed {
		return fmt.Errorf("schema: cannot append to %q: target already completed", key)
	}
	def, ok := b.registry.Lookup(key)
	if !ok {
		return fmt.Errorf("schema: unknown property %q", key)
	}
	if def.Kind != StringList && def.Kind != PathList {
		return fmt.Errorf("schema: property %q (kind %s) does not support append", key, def.Kind)
	}
	cur := b.values[key]
	cur.Kind = def.Kind
	cur.List = append(append([]string(nil), cur.List...), items...)
	b.values[key] = cur
	return nil
}

// Default returns the schema default for key.
func (r *Registry) Default(key string) (Value, bool) {
	d, ok := r.defs[key]
	if !ok {
		return Value{}, false
	}
	return d.Default, true
}

// IsInherit reports whether key is flagged inherit=true in the schema.
func (r *Registry) IsInherit(key string) bool {
	d, ok := r.defs[key]
	return ok && d.Inherit
}
