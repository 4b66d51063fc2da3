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

package target

import "github.com/craftr-build/mbs/internal/schema"

// Get resolves a property value:
//  1. an explicit value on this target wins;
//  2. otherwise, if the schema flags the property inherited, values are
//     collected from transitive dependencies in dependency order and
//     merged;
//  3. otherwise the schema default applies.
func (t *Target) Get(key string) (schema.Value, error) {
	if v, ok := t.props.Explicit(key); ok {
		return v, nil
	}
	def, ok := t.registry.Lookup(key)
	if !ok {
		return schema.Value{}, errUnknownProperty(key)
	}
	if def.Inherit {
		var values []schema.Value
		for _, dep := range t.TransitiveDeps {
			v, err := dep.Get(key)
			if err != nil {
				return schema.Value{}, err
			}
			values = append(values, v)
		}
		return schema.Merge(def.Kind, values), nil
	}
	return def.Default, nil
}

// Set assigns an explicit property value.
func (t *Target) Set(key string, v schema.Value) error { return t.props.Set(key, v) }

// Append appends to a list-typed property.
func (t *Target) Append(key string, items ...string) error { return t.props.Append(key, items...) }

type errUnknownProperty string

func (e errUnknownProperty) Error() string { return "target: unknown property " + string(e) }
