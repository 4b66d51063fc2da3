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

// Package example is a minimal cc-style compiler adapter exercising the
// traits.Adapter contract end-to-end. It is deliberately not a real
// language build system — just enough of one to drive internal/traits,
// internal/lower and internal/graph through a realistic compile-then-link
// target.
package example

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/schema"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/craftr-build/mbs/internal/traits"
)

// Namespace is the property schema namespace this adapter registers
// under: "cc.srcs", "cc.defines", "cc.includes", ...
const Namespace = "cc"

// Data is the adapter-owned per-target configuration, opaque to mbs and
// passed back to every traits.Adapter method unchanged.
type Data struct {
	Compiler string // defaults to "cc"
	Linker   string // defaults to Compiler
	Type     string // "executable" (default) or "static_library"
}

// Adapter is a traits.Adapter implementation compiling/linking C-family
// sources with a single-flag-per-property command line.
type Adapter struct{}

var _ traits.Adapter = Adapter{}

// Init registers cc's namespaced properties.
func (Adapter) Init(reg *schema.Registry) error {
	for _, p := range []struct {
		name    string
		kind    schema.Kind
		inherit bool
	}{
		{"srcs", schema.PathList, false},
		{"defines", schema.StringList, true},
		{"includes", schema.PathList, true},
		{"libraryPaths", schema.PathList, true},
		{"dynamicLibraries", schema.StringList, true},
	} {
		if _, err := reg.Register(Namespace, p.name, p.kind, schema.Value{}, p.inherit); err != nil {
			return fmt.Errorf("traits/example: %w", err)
		}
	}
	return nil
}

func (Adapter) data(d interface{}) (*Data, error) {
	data, ok := d.(*Data)
	if !ok {
		return nil, fmt.Errorf("traits/example: expected *Data, got %T", d)
	}
	if data.Compiler == "" {
		data.Compiler = "cc"
	}
	if data.Linker == "" {
		data.Linker = data.Compiler
	}
	return data, nil
}

// GetCompileCommand returns "cc <defines> <includes> -c ${<src} -o ${@obj}".
func (a Adapter) GetCompileCommand(t *target.Target, d interface{}, lang traits.Lang) ([]string, error) {
	data, err := a.data(d)
	if err != nil {
		return nil, err
	}
	argv := []string{data.Compiler}
	defines, err := listProp(t, "defines")
	if err != nil {
		return nil, err
	}
	for _, def := range defines {
		argv = append(argv, "-D"+def)
	}
	includes, err := listProp(t, "includes")
	if err != nil {
		return nil, err
	}
	for _, inc := range includes {
		argv = append(argv, "-I"+inc)
	}
	argv = append(argv, "-c", "${<src}", "-o", "${@obj}")
	return argv, nil
}

// GetLinkCommand returns "cc <objs> <libpaths> <libs> -o ${@bin}".
func (a Adapter) GetLinkCommand(t *target.Target, d interface{}, lang traits.Lang) ([]string, error) {
	data, err := a.data(d)
	if err != nil {
		return nil, err
	}
	argv := []string{data.Linker, "${<objs}"}
	libPaths, err := listProp(t, "libraryPaths")
	if err != nil {
		return nil, err
	}
	for _, p := range libPaths {
		argv = append(argv, "-L"+p)
	}
	libs, err := listProp(t, "dynamicLibraries")
	if err != nil {
		return nil, err
	}
	for _, l := range libs {
		argv = append(argv, "-l"+l)
	}
	if data.Type == "static_library" {
		return []string{"ar", "rcs", "${@bin}", "${<objs}"}, nil
	}
	argv = append(argv, "-o", "${@bin}")
	return argv, nil
}

// AddObjectsForSource declares "<objDir>/<src-basename-minus-ext>.o".
func (Adapter) AddObjectsForSource(t *target.Target, d interface{}, lang traits.Lang, src string, buildSet int, objDir string) (string, error) {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	return filepath.Join(objDir, strings.TrimSuffix(base, ext)+".o"), nil
}

// AddLinkOutputs declares no extra outputs: this minimal adapter does not
// model import libraries or separate debug info.
func (Adapter) AddLinkOutputs(t *target.Target, d interface{}, lang traits.Lang, buildSet int) ([]string, error) {
	return nil, nil
}

func listProp(t *target.Target, name string) ([]string, error) {
	v, err := t.Get(Namespace + "." + name)
	if err != nil {
		return nil, err
	}
	return v.List, nil
}
