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

package traits

import (
	"fmt"

	"github.com/craftr-build/mbs/internal/action"
	"github.com/craftr-build/mbs/internal/target"
)

// Run is the minimal trait for a "run" target: a target whose sole
// purpose is to execute an already-built program with console=true,
// attached to the caller's TTY and scheduled in the size-1 console pool.
// It supplements the distilled spec with Craftr's foreignbuild/rts
// run-target pattern.
type Run struct {
	// Program is the target whose primary output this run executes.
	Program *target.Target
	// OutputTag names which of Program's outputs to run; empty selects
	// the first output file.
	OutputTag string
	Args      []string
	Environ   map[string]string
}

var _ target.Trait = (*Run)(nil)

// Complete implements target.Trait. Run has no properties to finalise.
func (r *Run) Complete(ctx target.Context, t *target.Target) error { return nil }

// Translate implements target.Trait: it emits a single console=true,
// explicit action invoking the program target's primary output.
func (r *Run) Translate(ctx target.Context, t *target.Target) error {
	if !r.Program.IsTranslated() {
		return fmt.Errorf("traits: run %s: program %s has not been translated yet", t.LongName(), r.Program.LongName())
	}
	bin, err := r.primaryOutput()
	if err != nil {
		return err
	}
	argv := append([]string{bin}, r.Args...)
	return t.AddAction(&action.Action{
		Name:       "run",
		Commands:   [][]string{argv},
		InputFiles: []string{bin},
		Environ:    r.Environ,
		Explicit:   true,
		Console:    true,
	})
}

// SubTraits implements target.Trait; Run never installs sub-traits.
func (r *Run) SubTraits() []target.Trait { return nil }

func (r *Run) primaryOutput() (string, error) {
	for _, a := range r.Program.Actions() {
		if len(a.OutputFiles) == 0 {
			continue
		}
		if r.OutputTag == "" || a.Name == r.OutputTag {
			return a.OutputFiles[0], nil
		}
	}
	return "", fmt.Errorf("traits: run: program %s has no output to run", r.Program.LongName())
}
