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

package example

import (
	"fmt"
	"path/filepath"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/cell"
	"github.com/craftr-build/mbs/internal/target"
	"github.com/craftr-build/mbs/internal/traits"
)

// Trait is the target.Trait built on top of Adapter: one foreach compile
// action (one (src, obj) pair per source) feeding one link action, wired
// together the way a real cxx/java adapter's target handler would be.
type Trait struct {
	Data *Data
	Srcs []string
	Lang traits.Lang

	objDir string
}

var _ target.Trait = (*Trait)(nil)

// Complete finalises the object directory and records nothing further:
// this adapter has no inherited tie-breaks to resolve.
func (tr *Trait) Complete(ctx target.Context, t *target.Target) error {
	tr.objDir = filepath.Join("obj", t.Name)
	return nil
}

// Translate emits the compile (foreach) and link actions via Adapter. The
// link command's ${<objs}/${@bin} placeholders are substituted here with
// traits.Substituter; the compile command's per-source ${<src}/${@obj}
// tokens are left in place for the build slave to resolve at run time.
func (tr *Trait) Translate(ctx target.Context, t *target.Target) error {
	a := Adapter{}
	objs := make([]string, len(tr.Srcs))
	for i, src := range tr.Srcs {
		obj, err := a.AddObjectsForSource(t, tr.Data, tr.Lang, src, 0, tr.objDir)
		if err != nil {
			return err
		}
		objs[i] = obj
	}

	compileArgv, err := a.GetCompileCommand(t, tr.Data, tr.Lang)
	if err != nil {
		return err
	}
	if len(tr.Srcs) > 0 {
		if err := t.AddAction(&action.Action{
			Name:        "compile",
			Commands:    [][]string{compileArgv},
			InputFiles:  tr.Srcs,
			OutputFiles: objs,
			Foreach:     true,
		}); err != nil {
			return err
		}
	}

	linkArgv, err := a.GetLinkCommand(t, tr.Data, tr.Lang)
	if err != nil {
		return err
	}
	bin := binaryName(t, tr.Data)
	linkArgv, err = substituteLink(linkArgv, objs, bin)
	if err != nil {
		return err
	}
	extra, err := a.AddLinkOutputs(t, tr.Data, tr.Lang, 0)
	if err != nil {
		return err
	}
	return t.AddAction(&action.Action{
		Name:        "link",
		Commands:    [][]string{linkArgv},
		InputFiles:  objs,
		OutputFiles: append([]string{bin}, extra...),
		Deps:        []*action.Action{action.Sentinel},
	})
}

// SubTraits implements target.Trait; this adapter never nests traits.
func (tr *Trait) SubTraits() []target.Trait { return nil }

func binaryName(t *target.Target, d *Data) string {
	if d.Type == "static_library" {
		return "lib" + t.Name + ".a"
	}
	return t.Name
}

func substituteLink(argv []string, objs []string, bin string) ([]string, error) {
	s := &traits.Substituter{
		Inputs:  map[string][]string{"objs": objs},
		Outputs: map[string][]string{"bin": {bin}},
	}
	return s.Apply(argv)
}

// NewFactory returns a cell.Factory wiring Trait into the factory(...)
// construction protocol, so embedders call
// NewFactory().Build(cell, cell.BuildOpts{...}, Params{...}) the same way
// any other trait's factory would be invoked.
func NewFactory() *cell.Factory[Params] {
	return &cell.Factory[Params]{
		New: func(t *target.Target, p Params) (target.Trait, error) {
			if len(p.Srcs) == 0 {
				return nil, fmt.Errorf("traits/example: %s: srcs is required", t.LongName())
			}
			return &Trait{Data: &p.Data, Srcs: p.Srcs, Lang: p.Lang}, nil
		},
	}
}

// Params is the factory(...) kwargs type for this adapter's targets.
type Params struct {
	Data
	Srcs []string
	Lang traits.Lang
}
