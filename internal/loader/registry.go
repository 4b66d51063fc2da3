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

package loader

import (
	"fmt"

	"github.com/craftr-build/mbs/internal/cell"
	"github.com/craftr-build/mbs/internal/target"
)

// FactoryFunc adapts a cell.Factory[K]'s typed Build call to the generic,
// string-keyed kwargs a manifest target entry carries. Adapters register
// one of these per factory name they expose to manifests; the closure does
// the map[string]interface{} -> K conversion itself, since only the
// adapter's own package knows K.
type FactoryFunc func(c *cell.Cell, opts cell.BuildOpts, kwargs map[string]interface{}) (*target.Target, error)

// Registry maps manifest "factory:" names to the FactoryFunc that builds
// them, the manifest-side counterpart of an in-process factory(...) call
// table.
type Registry struct {
	factories map[string]FactoryFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]FactoryFunc{}}
}

// Register binds name to fn. Registering the same name twice is fatal,
// the same duplicate-registration posture Cell.Register takes for targets.
func (r *Registry) Register(name string, fn FactoryFunc) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("loader: factory %q already registered", name))
	}
	r.factories[name] = fn
}

func (r *Registry) lookup(name string) (FactoryFunc, bool) {
	fn, ok := r.factories[name]
	return fn, ok
}

// StringList reads kwargs[key] as a YAML sequence of strings, the shape
// goccy/go-yaml produces for a "key: [a, b]" or "key:\n  - a\n  - b" entry.
// FactoryFuncs use this to pull typed slices out of the raw kwargs map.
func StringList(kwargs map[string]interface{}, key string) ([]string, error) {
	raw, ok := kwargs[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("loader: kwarg %q: expected a list, got %T", key, raw)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("loader: kwarg %q: element %d is not a string (%T)", key, i, it)
		}
		out[i] = s
	}
	return out, nil
}

// String reads kwargs[key] as a string, returning def when the key is
// absent.
func String(kwargs map[string]interface{}, key, def string) (string, error) {
	raw, ok := kwargs[key]
	if !ok {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("loader: kwarg %q: expected a string, got %T", key, raw)
	}
	return s, nil
}
