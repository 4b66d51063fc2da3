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
	"github.com/craftr-build/mbs/internal/cell"
	"github.com/craftr-build/mbs/internal/loader"
	"github.com/craftr-build/mbs/internal/target"
)

// Register exposes this adapter's target kinds to manifest-driven builds
// under the factory names "cc.binary" and "cc.static_library". Callers
// combine this with Adapter{}.Init(session.Schema) before loading any
// manifest that references these factories.
func Register(reg *loader.Registry) {
	reg.Register("cc.binary", buildFactory(""))
	reg.Register("cc.static_library", buildFactory("static_library"))
}

func buildFactory(libType string) loader.FactoryFunc {
	return func(c *cell.Cell, opts cell.BuildOpts, kwargs map[string]interface{}) (*target.Target, error) {
		srcs, err := loader.StringList(kwargs, "srcs")
		if err != nil {
			return nil, err
		}
		defines, err := loader.StringList(kwargs, "defines")
		if err != nil {
			return nil, err
		}
		includes, err := loader.StringList(kwargs, "includes")
		if err != nil {
			return nil, err
		}
		compiler, err := loader.String(kwargs, "compiler", "")
		if err != nil {
			return nil, err
		}
		linker, err := loader.String(kwargs, "linker", "")
		if err != nil {
			return nil, err
		}

		p := Params{
			Data: Data{Type: libType, Compiler: compiler, Linker: linker},
			Srcs: srcs,
		}
		tg, err := NewFactory().Build(c, opts, p)
		if err != nil {
			return nil, err
		}
		for _, d := range defines {
			if err := tg.Append("cc.defines", d); err != nil {
				return nil, err
			}
		}
		for _, inc := range includes {
			if err := tg.Append("cc.includes", inc); err != nil {
				return nil, err
			}
		}
		return tg, nil
	}
}
