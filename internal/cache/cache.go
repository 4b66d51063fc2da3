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

// Package cache implements the session's on-disk JSON cache
// (<build_dir>/.cache.json). It resolves the "cache concurrency" Open
// question with an advisory file lock: a second tool invocation
// against the same build directory fails fast with ErrLocked rather than
// racing the first writer.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// ErrLocked is returned by Open when another process already holds the
// cache lock for this build directory.
var ErrLocked = errors.New("cache: build directory is locked by another mbs invocation")

// Cache is the session's shared JSON object, read once at startup,
// mutated in memory, and written once at clean exit.
type Cache struct {
	path   string
	lock   lockfile.Lockfile
	locked bool
	data   map[string]json.RawMessage
}

// Open reads (or initialises) the cache file at path and takes its
// advisory lock.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: mkdir: %w", err)
	}
	absLockPath, err := filepath.Abs(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	lf, err := lockfile.New(absLockPath)
	if err != nil {
		return nil, fmt.Errorf("cache: lockfile: %w", err)
	}
	if err := lf.TryLock(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	c := &Cache{path: path, lock: lf, locked: true, data: map[string]json.RawMessage{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		c.unlock()
		return nil, fmt.Errorf("cache: read %q: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.data); err != nil {
			c.unlock()
			return nil, fmt.Errorf("cache: parse %q: %w", path, err)
		}
	}
	return c, nil
}

func (c *Cache) unlock() {
	if c.locked {
		_ = c.lock.Unlock()
		c.locked = false
	}
}

// Namespace returns a view of the cache scoped to a key prefix, so
// collaborators (traits, adapters) don't collide with each other's keys.
func (c *Cache) Namespace(name string) *Namespace {
	return &Namespace{cache: c, prefix: name + "."}
}

// Get decodes the raw value stored under key into v. It reports whether
// key was present.
func (c *Cache) Get(key string, v interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores v under key, encoding it to JSON immediately so later
// mutation of v does not affect the stored snapshot.
func (c *Cache) Set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	c.data[key] = raw
	return nil
}

// Close writes the cache back to disk and releases the lock. Only call
// this on a clean exit path, matching the session lifecycle.
func (c *Cache) Close() error {
	defer c.unlock()
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cache: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("cache: rename %q: %w", c.path, err)
	}
	return nil
}

// Namespace is a key-prefixed view of a Cache.
type Namespace struct {
	cache  *Cache
	prefix string
}

// Get decodes the value stored under name (scoped to this namespace).
func (n *Namespace) Get(name string, v interface{}) (bool, error) {
	return n.cache.Get(n.prefix+name, v)
}

// Set stores v under name (scoped to this namespace).
func (n *Namespace) Set(name string, v interface{}) error {
	return n.cache.Set(n.prefix+name, v)
}
