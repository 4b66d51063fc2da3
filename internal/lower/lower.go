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

// Package lower implements the two-phase complete-then-translate
// traversal of the target DAG: complete() finalises inherited
// properties bottom-up, translate() emits actions.
package lower

import (
	"fmt"
	"strings"

	"github.com/craftr-build/mbs/internal/target"
)

// CycleError is reported when the target DAG contains a cycle, with the
// offending path for diagnostics.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("lower: dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Warnf is called for every non-fatal diagnostic raised by a trait through
// Context.Warn, or by the pipeline itself (e.g. conflicting preferred
// linkage). The default, if nil, writes to nothing — callers wire this to
// their logger.
type Warnf func(format string, args ...interface{})

// Pipeline runs complete() then translate() across the set of targets
// passed to Run; it applies no selection of its own.
// Pipeline itself implements target.Context.
type Pipeline struct {
	warn Warnf

	completed  map[*target.Target]bool
	translated map[*target.Target]bool
	inProgress map[*target.Target]bool
	stack      []*target.Target
	dependents map[*target.Target][]*target.Target
}

var _ target.Context = (*Pipeline)(nil)

// New creates an empty pipeline. warn may be nil to discard warnings.
func New(warn Warnf) *Pipeline {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Pipeline{
		warn:       warn,
		completed:  map[*target.Target]bool{},
		translated: map[*target.Target]bool{},
		inProgress: map[*target.Target]bool{},
		dependents: map[*target.Target][]*target.Target{},
	}
}

// Dependents implements target.Context.
func (p *Pipeline) Dependents(t *target.Target) []*target.Target {
	return p.dependents[t]
}

// Warn implements target.Context.
func (p *Pipeline) Warn(format string, args ...interface{}) { p.warn(format, args...) }

// Run completes then translates every target in selected. Idempotent:
// targets already completed/translated from an earlier Run on the same
// Pipeline are skipped, matching the "idempotent re-invocation is a
// no-op" property.
func (p *Pipeline) Run(selected []*target.Target) error {
	p.indexDependents(selected)

	for _, t := range selected {
		if err := p.complete(p, t); err != nil {
			return err
		}
	}
	for _, t := range selected {
		if err := p.translate(p, t); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) indexDependents(selected []*target.Target) {
	seen := map[*target.Target]bool{}
	var walk func(t *target.Target)
	walk = func(t *target.Target) {
		if seen[t] {
			return
		}
		seen[t] = true
		for _, d := range t.AllDeps() {
			p.dependents[d] = append(p.dependents[d], t)
			walk(d)
		}
	}
	for _, t := range selected {
		walk(t)
	}
}

func (p *Pipeline) complete(ctx target.Context, t *target.Target) error {
	if p.completed[t] {
		return nil
	}
	if p.inProgress[t] {
		return p.cycleError(t)
	}
	p.inProgress[t] = true
	p.stack = append(p.stack, t)

	for _, d := range t.AllDeps() {
		if err := p.complete(ctx, d); err != nil {
			return err
		}
	}
	for _, tr := range t.Traits() {
		if err := tr.Complete(ctx, t); err != nil {
			return fmt.Errorf("lower: complete %s: %w", t.LongName(), err)
		}
	}
	t.MarkCompleted()

	p.stack = p.stack[:len(p.stack)-1]
	delete(p.inProgress, t)
	p.completed[t] = true
	return nil
}

func (p *Pipeline) translate(ctx target.Context, t *target.Target) error {
	if p.translated[t] {
		return nil
	}
	for _, d := range t.AllDeps() {
		if err := p.translate(ctx, d); err != nil {
			return err
		}
	}
	for _, tr := range t.Traits() {
		if err := tr.Translate(ctx, t); err != nil {
			return fmt.Errorf("lower: translate %s: %w", t.LongName(), err)
		}
	}
	t.MarkTranslated()
	p.translated[t] = true
	return nil
}

func (p *Pipeline) cycleError(t *target.Target) error {
	path := make([]string, 0, len(p.stack)+1)
	start := 0
	for i, s := range p.stack {
		if s == t {
			start = i
			break
		}
	}
	for _, s := range p.stack[start:] {
		path = append(path, s.LongName())
	}
	path = append(path, t.LongName())
	return &CycleError{Path: path}
}
