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

// Package traits declares the contract a language adapter (a "compiler
// collaborator": C/C++, Java, ...) must implement to plug into the
// lowering pipeline. Concrete adapters are out of scope as full products;
// internal/traits/example exercises the contract end-to-end with a
// minimal cc-style adapter.
package traits

import (
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
)

// Lang identifies the source language one compile/link command applies
// to, e.g. "c", "cpp".
type Lang string

// Adapter is the contract provided to compiler collaborators. Data is an
// adapter-owned, opaque per-target value (typically a struct the adapter
// type-asserts back out of); mbs never inspects it.
type Adapter interface {
	// Init registers the adapter's own namespaced properties against reg.
	// Called once, before any target using this adapter completes.
	Init(reg *schema.Registry) error

	// GetCompileCommand returns the argv for one compile of a single
	// source file. The build slave substitutes the per-source
	// placeholders (see Substituter) at run time.
	GetCompileCommand(t *target.Target, data interface{}, lang Lang) ([]string, error)

	// GetLinkCommand returns the argv for the target's link step.
	GetLinkCommand(t *target.Target, data interface{}, lang Lang) ([]string, error)

	// AddObjectsForSource declares the object file a given source
	// compiles to, rooted under objDir, for the given foreach buildSet.
	AddObjectsForSource(t *target.Target, data interface{}, lang Lang, src string, buildSet int, objDir string) (string, error)

	// AddLinkOutputs declares any outputs beyond the primary link
	// artefact (import library, debug symbols).
	AddLinkOutputs(t *target.Target, data interface{}, lang Lang, buildSet int) ([]string, error)
}
