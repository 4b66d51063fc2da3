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

// Package cell implements the Cell namespace and the process-wide Session
// singleton: config, the global property schema, the registry of
// cells, and the on-disk cache shared across runs.
package cell

import (
	"fmt"
	"path/filepath"

	"github.com/craftr-build/mbs/internal/cache"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"go.uber.org/zap"
)

// Config is the subset of session-wide configuration that collaborators
// read through Session.Config. Values come from mbs.yml only; no CLI flag
// is merged into them (see internal/loader for the on-disk format).
type Config struct {
	Values map[string]string
}

// Get returns a config value, or "" if unset.
func (c *Config) Get(key string) string {
	if c == nil {
		return ""
	}
	return c.Values[key]
}

// GetBool parses a config value as a boolean, defaulting to def on
// missing/unparseable input.
func (c *Config) GetBool(key string, def bool) bool {
	v := c.Get(key)
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

// Session is the process-wide singleton: root build directory,
// configuration, the global property schema, the cell registry, and the
// shared on-disk cache. Created at tool startup, its cache is persisted at
// clean exit.
type Session struct {
	BuildDir string
	Config   *Config
	Schema   *schema.Registry
	Log      *zap.Logger

	cache *cache.Cache
	cells map[string]*Cell
	order []string
}

// New creates a Session rooted at buildDir. The session cache is opened
// (and advisory-locked, see internal/cache) eagerly so configuration
// errors surface before any target construction happens.
func New(buildDir string, cfg *Config, logger *zap.Logger) (*Session, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := cache.Open(filepath.Join(buildDir, ".cache.json"))
	if err != nil {
		return nil, fmt.Errorf("cell: session: %w", err)
	}
	return &Session{
		BuildDir: buildDir,
		Config:   cfg,
		Schema:   schema.NewRegistry(),
		Log:      logger,
		cache:    c,
		cells:    map[string]*Cell{},
	}, nil
}

// Cache returns the session's shared on-disk cache.
func (s *Session) Cache() *cache.Cache { return s.cache }

// Close persists the cache (on clean exit only — callers on the error
// path should not call this, matching the "persists on clean exit" rule.
func (s *Session) Close() error {
	return s.cache.Close()
}

// Cell returns the named cell, creating it lazily on first use.
func (s *Session) Cell(name string) *Cell {
	if c, ok := s.cells[name]; ok {
		return c
	}
	c := newCell(s, name)
	s.cells[name] = c
	s.order = append(s.order, name)
	return c
}

// Cells returns all registered cells in creation order.
func (s *Session) Cells() []*Cell {
	out := make([]*Cell, len(s.order))
	for i, name := range s.order {
		out[i] = s.cells[name]
	}
	return out
}

// Target resolves a dependency reference of the form "//cell:name" (fully
// qualified) or ":name" (relative to fromCell). Used by factories when
// resolving a deps=[...] argument expressed as a string.
func (s *Session) Target(ref, fromCell string) (*target.Target, error) {
	cellName, name, err := splitRef(ref, fromCell)
	if err != nil {
		return nil, err
	}
	c, ok := s.cells[cellName]
	if !ok {
		return nil, fmt.Errorf("cell: unknown cell %q referenced by %q", cellName, ref)
	}
	tg, ok := c.target(name)
	if !ok {
		return nil, fmt.Errorf("cell: unknown target %q in cell %q", name, cellName)
	}
	return tg, nil
}

func splitRef(ref, fromCell string) (cellName, name string, err error) {
	if len(ref) == 0 {
		return "", "", fmt.Errorf("cell: empty target reference")
	}
	if ref[0] == ':' {
		return fromCell, ref[1:], nil
	}
	if len(ref) > 2 && ref[0] == '/' && ref[1] == '/' {
		rest := ref[2:]
		for i := 0; i < len(rest); i++ {
			if rest[i] == ':' {
				return rest[:i], rest[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("cell: malformed target reference %q", ref)
}
