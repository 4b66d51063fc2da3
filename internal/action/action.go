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

// Package action implements the Action: a hermetic command node with
// typed inputs/outputs, translated from targets during the lowering
// pipeline's translate phase.
package action

import "fmt"

// Sentinel is a placeholder Deps entry meaning "every action registered on
// the same target before this one". The owning target expands it at
// registration time (see internal/target.Target.AddAction); Action itself
// never sees it survive construction.
var Sentinel = &Action{Name: "..."}

// Action is a hermetic system-command node: one or more argv command
// lines, run sequentially, against a declared set of inputs and outputs.
type Action struct {
	// OwnerLongName is the long_name of the target this action belongs to,
	// e.g. "//app:hello". Actions do not hold a back-reference to their
	// Target to avoid an import cycle between the target and action
	// packages; owner identity is a string, same as it will be once the
	// graph is serialised.
	OwnerLongName string
	Name          string

	Commands    [][]string
	InputFiles  []string
	OutputFiles []string
	Cwd         string
	Environ     map[string]string

	Deps []*Action

	Foreach  bool
	Explicit bool
	Console  bool
	Syncio   bool

	// OptionalOutputs marks OutputFiles (keyed by path) whose absence
	// after a successful run is a warning, not an error.
	OptionalOutputs map[string]bool
}

// LongName is the action's fully qualified identifier,
// "<target.long_name>#<name>".
func (a *Action) LongName() string {
	return a.OwnerLongName + "#" + a.Name
}

// Validate checks the invariants: for foreach actions, the
// input/output counts must match one-for-one.
func (a *Action) Validate() error {
	if a.Foreach && len(a.InputFiles) != len(a.OutputFiles) {
		return fmt.Errorf("action: %s: foreach requires len(input_files)==len(output_files), got %d and %d",
			a.LongName(), len(a.InputFiles), len(a.OutputFiles))
	}
	return nil
}

// ExpandDeps replaces occurrences of Sentinel in a.Deps with prior, the
// ordered list of actions already registered on the same target before a.
// Called by the target package at registration time.
func ExpandDeps(deps []*Action, prior []*Action) []*Action {
	var out []*Action
	for _, d := range deps {
		if d == Sentinel {
			out = append(out, prior...)
			continue
		}
		out = append(out, d)
	}
	return out
}
