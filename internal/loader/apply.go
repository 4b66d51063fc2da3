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

// Apply walks m in declaration order, driving reg to construct one target
// per TargetManifest entry against session. Cells and targets are built in
// file order so a dep reference always resolves against an
// already-constructed target, the same left-to-right rule an imperative
// build script obeys.
func Apply(session *cell.Session, reg *Registry, m *Manifest) ([]*target.Target, error) {
	var built []*target.Target
	for _, cm := range m.Cells {
		c := session.Cell(cm.Name)
		if cm.Directory != "" {
			c.Directory = cm.Directory
		}
		if cm.Version != "" {
			if err := c.SetVersion(cm.Version); err != nil {
				return nil, err
			}
		}

		for _, tm := range cm.Targets {
			tg, err := applyTarget(session, c, reg, cm.Name, tm)
			if err != nil {
				return nil, err
			}
			built = append(built, tg)
		}
	}
	return built, nil
}

func applyTarget(session *cell.Session, c *cell.Cell, reg *Registry, cellName string, tm TargetManifest) (*target.Target, error) {
	fn, ok := reg.lookup(tm.Factory)
	if !ok {
		return nil, fmt.Errorf("loader: cell %s: target %s: unknown factory %q", cellName, tm.Name, tm.Factory)
	}

	opts := cell.BuildOpts{Name: tm.Name, Explicit: tm.Explicit, Console: tm.Console}
	if tm.Parent != "" {
		parent, err := session.Target(tm.Parent, cellName)
		if err != nil {
			return nil, fmt.Errorf("loader: cell %s: target %s: parent: %w", cellName, tm.Name, err)
		}
		opts.Parent = parent
	}
	for _, d := range tm.Deps {
		opts.Deps = append(opts.Deps, cell.Dep(d))
	}

	tg, err := fn(c, opts, tm.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("loader: cell %s: target %s: %w", cellName, tm.Name, err)
	}
	return tg, nil
}
