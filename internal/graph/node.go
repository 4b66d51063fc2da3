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

// Package graph implements the BuildGraph: a flat, Target-decoupled
// dictionary of action nodes keyed by long name, with stable content
// hashing and JSON persistence. This is the representation the ninja
// emitter, action server, and direct executor all consume — none of them
// ever see a *target.Target again once the graph is built.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/craftr-build/mbs/internal/action"
)

// BuildNode is a flat record equivalent to one Action, with no reference
// back to the in-memory Target/Trait objects that produced it — exactly
// what the action server needs to answer requests after a graph reload
// from disk.
type BuildNode struct {
	LongName string `json:"name"`
	// ActionID is the owning action's long name with no foreach-pair
	// suffix — shared by every pair split from the same foreach action,
	// and used by the ninja emitter to group them under one rule.
	ActionID    string            `json:"action_id"`
	Commands    [][]string        `json:"commands"`
	InputFiles  []string          `json:"input_files"`
	OutputFiles []string          `json:"output_files"`
	Cwd         string            `json:"cwd"`
	Environ     map[string]string `json:"environ"`
	Deps        []string          `json:"deps"` // long names of dependency nodes
	Explicit    bool              `json:"explicit"`
	Console     bool              `json:"console"`
	Foreach     bool              `json:"foreach,omitempty"`
	// OptionalOutputs names OutputFiles whose absence after a successful
	// run is a warning rather than a build-breaking error.
	OptionalOutputs map[string]bool `json:"optional_outputs,omitempty"`
}

// Hash is a stable SHA-256 over a canonical JSON serialisation of the
// node's semantic fields (commands, inputs, outputs, env, cwd, foreach,
// console) — deliberately excluding LongName, ActionID, Deps and
// Explicit, which do not affect what the node actually does when it
// runs. Map keys (Environ) are sorted so two semantically-equal nodes
// hash identically regardless of how their environment map was built.
func (n *BuildNode) Hash() string {
	type canon struct {
		Commands    [][]string `json:"commands"`
		InputFiles  []string   `json:"input_files"`
		OutputFiles []string   `json:"output_files"`
		Cwd         string     `json:"cwd"`
		Environ     [][2]string `json:"environ"`
		Foreach     bool       `json:"foreach"`
		Console     bool       `json:"console"`
	}
	keys := make([]string, 0, len(n.Environ))
	for k := range n.Environ {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([][2]string, len(keys))
	for i, k := range keys {
		env[i] = [2]string{k, n.Environ[k]}
	}
	c := canon{
		Commands:    n.Commands,
		InputFiles:  n.InputFiles,
		OutputFiles: n.OutputFiles,
		Cwd:         n.Cwd,
		Environ:     env,
		Foreach:     n.Foreach,
		Console:     n.Console,
	}
	raw, err := json.Marshal(c)
	if err != nil {
		// json.Marshal over these field types cannot fail; a panic here
		// would indicate a new field type was added without updating canon.
		panic(fmt.Sprintf("graph: hash: %v", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// fromAction flattens an in-memory Action into zero or more BuildNodes:
// one, unless the action is foreach, in which case one node per (input,
// output) pair, each independently schedulable and carrying no ordering
// guarantee relative to its siblings.
func fromAction(a *action.Action) []*BuildNode {
	deps := make([]string, len(a.Deps))
	for i, d := range a.Deps {
		deps[i] = d.LongName()
	}
	if !a.Foreach {
		return []*BuildNode{{
			LongName:        a.LongName(),
			ActionID:        a.LongName(),
			Commands:        a.Commands,
			InputFiles:      a.InputFiles,
			OutputFiles:     a.OutputFiles,
			Cwd:             a.Cwd,
			Environ:         a.Environ,
			Deps:            deps,
			Explicit:        a.Explicit,
			Console:         a.Console,
			OptionalOutputs: a.OptionalOutputs,
		}}
	}
	nodes := make([]*BuildNode, len(a.InputFiles))
	for i := range a.InputFiles {
		out := a.OutputFiles[i]
		var optional map[string]bool
		if a.OptionalOutputs[out] {
			optional = map[string]bool{out: true}
		}
		nodes[i] = &BuildNode{
			LongName:        fmt.Sprintf("%s#%d", a.LongName(), i),
			ActionID:        a.LongName(),
			Commands:        a.Commands,
			InputFiles:      []string{a.InputFiles[i]},
			OutputFiles:     []string{out},
			Cwd:             a.Cwd,
			Environ:         a.Environ,
			Deps:            deps,
			Explicit:        a.Explicit,
			Console:         a.Console,
			Foreach:         true,
			OptionalOutputs: optional,
		}
	}
	return nodes
}
