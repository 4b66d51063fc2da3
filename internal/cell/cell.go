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
	"path/filepath"

	"github.com/coreos/go-semver/semver"
	"github.com/craftr-build/mbs/internal/target"
)

// Cell is a namespace grouping of targets bound to one user script
// package: a name, a semver version, a source directory, and the derived
// build directory beneath the session's root.
type Cell struct {
	session   *Session
	Name      string
	Version   *semver.Version
	Directory string

	targets map[string]*target.Target
	order   []string
}

func newCell(s *Session, name string) *Cell {
	return &Cell{session: s, Name: name, targets: map[string]*target.Target{}}
}

// BuildDirectory is "<session.build_dir>/cells/<name>".
func (c *Cell) BuildDirectory() string {
	return filepath.Join(c.session.BuildDir, "cells", c.Name)
}

// SetVersion parses and stores the cell's semver version string.
func (c *Cell) SetVersion(v string) error {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("cell: %s: invalid version %q: %w", c.Name, v, err)
	}
	c.Version = parsed
	return nil
}

// Register adds a newly constructed target to the cell. Re-adding a name
// that already exists is fatal.
func (c *Cell) Register(tg *target.Target) error {
	if _, exists := c.targets[tg.Name]; exists {
		return fmt.Errorf("cell: %s: target %q already registered", c.Name, tg.Name)
	}
	c.targets[tg.Name] = tg
	c.order = append(c.order, tg.Name)
	return nil
}

// New allocates a Target bound to this cell, registered against the
// session's global property schema. It does not register the target in
// the cell — callers attach a trait and call Register once construction
// succeeds, matching the Factory protocol.
func (c *Cell) New(name string) *target.Target {
	return target.New(c.Name, name, c.session.Schema)
}

func (c *Cell) target(name string) (*target.Target, bool) {
	tg, ok := c.targets[name]
	return tg, ok
}

// Targets returns all targets registered in the cell, in registration
// order.
func (c *Cell) Targets() []*target.Target {
	out := make([]*target.Target, len(c.order))
	for i, name := range c.order {
		out[i] = c.targets[name]
	}
	return out
}

// Session returns the owning session.
func (c *Cell) Session() *Session { return c.session }
