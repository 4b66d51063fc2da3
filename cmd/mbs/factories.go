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

package main

import (
	"github.com/craftr-build/mbs/internal/loader"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/traits/example"
)

// registerFactories wires every adapter this binary ships with into reg
// and registers their schema properties. Real deployments would build
// this list from a plugin manifest; this binary ships only the one
// in-tree example adapter, enough to drive a real compile-then-link
// manifest end to end.
func registerFactories(reg *loader.Registry, schemaReg *schema.Registry) error {
	if err := (example.Adapter{}).Init(schemaReg); err != nil {
		return err
	}
	example.Register(reg)
	return nil
}
